package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testModified = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"case folds", "Machine LEARNING", []string{"machine", "learning"}},
		{"strips punctuation", "hello, world! (really)", []string{"hello", "world", "really"}},
		{"drops short tokens", "a is go", []string{"is", "go"}},
		{"keeps digits", "port 8080 v2", []string{"port", "8080", "v2"}},
		{"empty input", "   \n\t ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTermFreqs(t *testing.T) {
	freqs := TermFreqs([]string{"go", "go", "search"})
	assert.Equal(t, map[string]int{"go": 2, "search": 1}, freqs)
}

func TestParseFrontMatter(t *testing.T) {
	raw := `---
title: Deployment Notes
date: 2024-01-31
tags:
  - Docker
  - "#ops"
---
# Rollout
Use blue-green deployments.
`
	doc, err := Parse(raw, "notes/deploy.md", testModified)
	require.NoError(t, err)

	assert.Equal(t, "Deployment Notes", doc.FrontMatter.Title)
	require.NotNil(t, doc.FrontMatter.Date)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *doc.FrontMatter.Date)
	assert.Equal(t, []string{"docker", "ops"}, doc.FrontMatter.Tags)

	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, "Rollout", doc.Chunks[0].Heading)
}

func TestParseFrontMatterTagString(t *testing.T) {
	raw := "---\ntags: ai, security\n---\nbody text here\n"
	doc, err := Parse(raw, "n.md", testModified)
	require.NoError(t, err)
	assert.Equal(t, []string{"ai", "security"}, doc.FrontMatter.Tags)
}

func TestParseInvalidFrontMatter(t *testing.T) {
	raw := "---\ntitle: [unclosed\n---\nbody\n"
	_, err := Parse(raw, "n.md", testModified)
	assert.Error(t, err)
}

func TestParseInvalidDate(t *testing.T) {
	raw := "---\ndate: not-a-date\n---\nbody\n"
	_, err := Parse(raw, "n.md", testModified)
	assert.Error(t, err)
}

func TestParseNoHeadings(t *testing.T) {
	raw := "just a plain paragraph\nwith two lines"
	doc, err := Parse(raw, "plain.md", testModified)
	require.NoError(t, err)

	require.Len(t, doc.Chunks, 1)
	c := doc.Chunks[0]
	assert.Empty(t, c.Heading)
	assert.Equal(t, 1, c.StartLine)
	assert.Equal(t, 2, c.EndLine)
	assert.Equal(t, raw, c.Text)
}

func TestParseEmptyDocument(t *testing.T) {
	doc, err := Parse("", "empty.md", testModified)
	require.NoError(t, err)
	assert.Empty(t, doc.Chunks)

	doc, err = Parse("\n\n  \n", "blank.md", testModified)
	require.NoError(t, err)
	assert.Empty(t, doc.Chunks)
}

func TestParsePreambleAndSections(t *testing.T) {
	raw := strings.Join([]string{
		"intro before any heading",
		"",
		"# First",
		"first body",
		"",
		"## Second",
		"second body",
	}, "\n")

	doc, err := Parse(raw, "doc.md", testModified)
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 3)

	assert.Empty(t, doc.Chunks[0].Heading)
	assert.Equal(t, "intro before any heading", doc.Chunks[0].Text)

	assert.Equal(t, "First", doc.Chunks[1].Heading)
	assert.Equal(t, 3, doc.Chunks[1].StartLine)
	assert.Equal(t, "# First\nfirst body", doc.Chunks[1].Text)

	assert.Equal(t, "Second", doc.Chunks[2].Heading)
	assert.Equal(t, "## Second\nsecond body", doc.Chunks[2].Text)
}

// Chunk boundaries must reconstruct the stored text exactly from the raw
// source, including documents with front matter offsets.
func TestParseRoundTrip(t *testing.T) {
	raw := strings.Join([]string{
		"---",
		"title: RT",
		"tags: [x]",
		"---",
		"preamble line",
		"",
		"# Alpha",
		"alpha one",
		"alpha two",
		"",
		"# Beta",
		"beta body",
	}, "\n")

	doc, err := Parse(raw, "rt.md", testModified)
	require.NoError(t, err)
	require.NotEmpty(t, doc.Chunks)

	lines := strings.Split(raw, "\n")
	for _, c := range doc.Chunks {
		rebuilt := strings.Join(lines[c.StartLine-1:c.EndLine], "\n")
		assert.Equal(t, c.Text, rebuilt, "chunk %q", c.Heading)
	}
}

func TestParseSplitsLongSections(t *testing.T) {
	para := strings.Repeat("tokens all the way down ", 40) // ~960 chars
	raw := "# Long\n" + para + "\n\n" + para + "\n\n" + para

	doc, err := Parse(raw, "long.md", testModified)
	require.NoError(t, err)
	require.Greater(t, len(doc.Chunks), 1)

	lines := strings.Split(raw, "\n")
	for _, c := range doc.Chunks {
		assert.Equal(t, "Long", c.Heading)
		assert.LessOrEqual(t, len(c.Text), maxSectionChars+len(para))
		rebuilt := strings.Join(lines[c.StartLine-1:c.EndLine], "\n")
		assert.Equal(t, c.Text, rebuilt)
	}
}

func TestParseTokenStats(t *testing.T) {
	raw := "# Title\nmachine learning, machine vision"
	doc, err := Parse(raw, "ml.md", testModified)
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 1)

	c := doc.Chunks[0]
	assert.Equal(t, 5, c.TokenCount) // title machine learning machine vision
	assert.Equal(t, 2, c.TermFreqs["machine"])
	assert.Equal(t, 1, c.TermFreqs["learning"])
}

func TestParseUnterminatedFrontMatter(t *testing.T) {
	raw := "---\ntitle: dangling\nbody continues"
	doc, err := Parse(raw, "d.md", testModified)
	require.NoError(t, err)
	assert.Empty(t, doc.FrontMatter.Title)
	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, raw, doc.Chunks[0].Text)
}

func TestFileRecord(t *testing.T) {
	raw := "---\ntitle: T\ndate: 2024-02-02\ntags: [go]\n---\nbody\n"
	doc, err := Parse(raw, "f.md", testModified)
	require.NoError(t, err)

	f := FileRecord("f.md", "etag-1", int64(len(raw)), testModified, doc)
	assert.Equal(t, "f.md", f.Path)
	assert.Equal(t, "etag-1", f.ETag)
	assert.Equal(t, "T", f.Title)
	assert.Equal(t, []string{"go"}, f.Tags)
	require.NotNil(t, f.CreatedAt)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), f.EffectiveDate())
}
