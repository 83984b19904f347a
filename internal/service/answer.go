package service

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/notedex/notedex/internal/parser"
)

const (
	defaultAnswerTopK   = 6
	maxAnswerLines      = 5
	maxRelatedPaths     = 3
	defaultBackendLimit = 10 * time.Second
)

// Searcher is the slice of the query engine the synthesizer needs.
type Searcher interface {
	Search(ctx context.Context, input SearchInput) (*SearchOutput, error)
}

// AnswerService assembles extractive, citation-backed answers from top
// ranked chunks. A summarization backend is optional; on absence, error
// or timeout the rule-based extractive mode takes over, so a backend
// failure never fails the request.
type AnswerService struct {
	search         Searcher
	backend        Summarizer
	backendTimeout time.Duration
}

func NewAnswerService(search Searcher, backend Summarizer) *AnswerService {
	return &AnswerService{
		search:         search,
		backend:        backend,
		backendTimeout: defaultBackendLimit,
	}
}

// WithBackendTimeout overrides the deadline applied to backend calls.
// Non-positive values keep the default.
func (s *AnswerService) WithBackendTimeout(d time.Duration) *AnswerService {
	if d > 0 {
		s.backendTimeout = d
	}
	return s
}

// Answer runs the question as a search, takes the top topK chunks and
// synthesizes bullet lines with one citation per referenced chunk. No
// matching chunks yields an empty answer, not an error.
func (s *AnswerService) Answer(ctx context.Context, question string, topK int, filters FilterSpec) (*AnswerOutput, error) {
	if topK <= 0 {
		topK = defaultAnswerTopK
	}

	res, err := s.search.Search(ctx, SearchInput{
		Query:   question,
		Filters: filters,
		Sort:    SortByScore,
		Limit:   topK,
	})
	if err != nil {
		return nil, err
	}

	out := &AnswerOutput{
		Answer:    []string{},
		Citations: []Citation{},
		Related:   []string{},
	}
	if res.FellBack || len(res.Results) == 0 {
		return out, nil
	}

	chunks := make([]RankedChunk, 0, len(res.Results))
	for _, r := range res.Results {
		chunks = append(chunks, RankedChunk{
			Path:    r.Path,
			Heading: r.Heading,
			Text:    r.Text(),
			Score:   r.Score,
		})
	}

	if s.backend != nil {
		lines, err := s.summarizeWithBackend(ctx, question, chunks)
		if err == nil && len(lines) > 0 {
			out.Answer = lines
			out.Citations = citationsFor(chunks)
			out.Related = relatedPaths(chunks)
			return out, nil
		}
		if err != nil {
			log.Printf("answer backend failed, using extractive fallback: %v", err)
		}
	}

	lines, cited := extractiveAnswer(question, chunks)
	out.Answer = lines
	out.Citations = citationsFor(cited)
	out.Related = relatedPaths(chunks)
	return out, nil
}

func (s *AnswerService) summarizeWithBackend(ctx context.Context, question string, chunks []RankedChunk) ([]string, error) {
	timeout := s.backendTimeout
	if timeout <= 0 {
		timeout = defaultBackendLimit
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.backend.Summarize(ctx, question, chunks)
}

var sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

func splitSentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(strings.TrimLeft(s, "#-* "))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractiveAnswer selects the sentences from the top chunks with the
// highest token overlap against the question and emits them as bullet
// lines, in reading order per chunk rank. Every line traces to at least
// one cited chunk.
func extractiveAnswer(question string, chunks []RankedChunk) ([]string, []RankedChunk) {
	qTokens := make(map[string]struct{})
	for _, t := range parser.Tokenize(question) {
		qTokens[t] = struct{}{}
	}

	type scored struct {
		line    string
		overlap int
		chunk   int
		order   int
	}

	var candidates []scored
	for ci, c := range chunks {
		for si, sentence := range splitSentences(c.Text) {
			overlap := 0
			for _, t := range parser.Tokenize(sentence) {
				if _, ok := qTokens[t]; ok {
					overlap++
				}
			}
			if overlap == 0 {
				continue
			}
			candidates = append(candidates, scored{
				line:    sentence,
				overlap: overlap,
				chunk:   ci,
				order:   si,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		if candidates[i].chunk != candidates[j].chunk {
			return candidates[i].chunk < candidates[j].chunk
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > maxAnswerLines {
		candidates = candidates[:maxAnswerLines]
	}

	lines := make([]string, 0, len(candidates))
	citedIdx := make(map[int]struct{})
	for _, c := range candidates {
		lines = append(lines, "- "+c.line)
		citedIdx[c.chunk] = struct{}{}
	}

	cited := make([]RankedChunk, 0, len(citedIdx))
	for ci := range chunks {
		if _, ok := citedIdx[ci]; ok {
			cited = append(cited, chunks[ci])
		}
	}
	return lines, cited
}

func citationsFor(chunks []RankedChunk) []Citation {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]Citation, 0, len(chunks))
	for _, c := range chunks {
		ref := c.Path + "#" + c.Heading
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, Citation{Ref: ref})
	}
	return out
}

func relatedPaths(chunks []RankedChunk) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxRelatedPaths)
	for _, c := range chunks {
		if _, ok := seen[c.Path]; ok {
			continue
		}
		seen[c.Path] = struct{}{}
		out = append(out, c.Path)
		if len(out) == maxRelatedPaths {
			break
		}
	}
	return out
}
