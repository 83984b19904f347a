// Package parser turns raw source documents into front-matter metadata and
// heading-delimited chunks ready for indexing. Parsing is a pure function
// over its inputs; persistence is the store's concern.
package parser

import (
	"strings"
	"time"

	"github.com/notedex/notedex/internal/domain"
)

// maxSectionChars bounds a single chunk; longer heading sections are split
// further on blank-line paragraph boundaries.
const maxSectionChars = 1200

// Document is the parse result for one source object.
type Document struct {
	FrontMatter domain.FrontMatter
	Chunks      []domain.Chunk
}

// Parse splits raw text into front matter and ordered chunks. Line numbers
// are 1-based positions in the raw input, so a chunk's text can be
// reconstructed exactly from its start and end lines. An empty document
// yields zero chunks without error.
func Parse(raw, path string, modified time.Time) (*Document, error) {
	fmText, body, fmLines := splitFrontMatter(raw)

	front, err := parseFrontMatter(fmText)
	if err != nil {
		return nil, err
	}

	chunks := splitChunks(path, body, fmLines)
	for i := range chunks {
		tokens := Tokenize(chunks[i].Text)
		chunks[i].TokenCount = len(tokens)
		chunks[i].TermFreqs = TermFreqs(tokens)
	}

	return &Document{FrontMatter: front, Chunks: chunks}, nil
}

// FileRecord builds the File row for a parsed document.
func FileRecord(path, etag string, size int64, modified time.Time, doc *Document) *domain.File {
	return &domain.File{
		Path:       path,
		ETag:       etag,
		ModifiedAt: modified.UTC(),
		Size:       size,
		Title:      doc.FrontMatter.Title,
		CreatedAt:  doc.FrontMatter.Date,
		Tags:       doc.FrontMatter.Tags,
	}
}

func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "#")
}

func headingText(line string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimLeft(line, " \t"), "#"))
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

type section struct {
	heading string
	start   int // line index, inclusive; points at the heading line
	end     int // exclusive
}

// splitChunks produces ordered, non-overlapping chunks. Each chunk starts
// at a heading line (or document start for a preamble) and ends at the
// line before the next heading. lineOffset is the number of lines consumed
// by the front-matter block.
func splitChunks(path, body string, lineOffset int) []domain.Chunk {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	lines := strings.Split(body, "\n")

	var sections []section
	start := 0
	heading := ""
	for i, ln := range lines {
		if isHeading(ln) {
			sections = append(sections, section{heading: heading, start: start, end: i})
			heading = headingText(ln)
			start = i
		}
	}
	sections = append(sections, section{heading: heading, start: start, end: len(lines)})

	var chunks []domain.Chunk
	emit := func(heading string, s, e int) {
		chunks = append(chunks, domain.Chunk{
			Path:      path,
			Heading:   heading,
			StartLine: lineOffset + s + 1,
			EndLine:   lineOffset + e,
			Text:      strings.Join(lines[s:e], "\n"),
		})
	}

	for _, sec := range sections {
		s, e := sec.start, sec.end
		for s < e && isBlank(lines[s]) {
			s++
		}
		for e > s && isBlank(lines[e-1]) {
			e--
		}
		if s >= e {
			continue
		}

		if spanLen(lines, s, e) <= maxSectionChars {
			emit(sec.heading, s, e)
			continue
		}

		runs := paragraphRuns(lines, s, e)
		rs, re := runs[0][0], runs[0][1]
		for _, r := range runs[1:] {
			if spanLen(lines, rs, r[1]) > maxSectionChars {
				emit(sec.heading, rs, re)
				rs, re = r[0], r[1]
				continue
			}
			re = r[1]
		}
		emit(sec.heading, rs, re)
	}

	return chunks
}

// paragraphRuns returns [start, end) index pairs of consecutive non-blank
// lines within [s, e).
func paragraphRuns(lines []string, s, e int) [][2]int {
	var runs [][2]int
	i := s
	for i < e {
		for i < e && isBlank(lines[i]) {
			i++
		}
		if i >= e {
			break
		}
		start := i
		for i < e && !isBlank(lines[i]) {
			i++
		}
		runs = append(runs, [2]int{start, i})
	}
	return runs
}

// spanLen is the byte length of lines[s:e] joined with newlines.
func spanLen(lines []string, s, e int) int {
	n := 0
	for i := s; i < e; i++ {
		n += len(lines[i])
	}
	return n + (e - s - 1)
}
