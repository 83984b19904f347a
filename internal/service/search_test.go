package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notedex/notedex/internal/domain"
)

func mlCandidate(path string, freq int) *Candidate {
	return &Candidate{
		ChunkID:    path + "-c1",
		Path:       path,
		Heading:    "Overview",
		StartLine:  1,
		EndLine:    10,
		Text:       "machine learning " + strings.Repeat("filler ", 40),
		TokenCount: 100,
		ModifiedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		TermFreqs:  map[string]int{"machine": freq, "learning": freq},
	}
}

func TestSearchRanksHigherTermFrequencyFirst(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	// doc A mentions the phrase once, doc B three times, equal length
	cands := []*Candidate{mlCandidate("notes/a.md", 1), mlCandidate("notes/b.md", 3)}
	store.On("CandidatesForTerms", mock.Anything, []string{"machine", "learning"}, mock.Anything).Return(cands, nil)
	store.On("Stats", mock.Anything).Return(domain.CorpusStats{ChunkCount: 2, TotalTokens: 200}, nil)
	store.On("TermDocFreqs", mock.Anything, []string{"machine", "learning"}).
		Return(map[string]int{"machine": 2, "learning": 2}, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: "machine learning"})
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, "notes/b.md", out.Results[0].Path)
	assert.Equal(t, "notes/a.md", out.Results[1].Path)
	assert.Greater(t, out.Results[0].Score, out.Results[1].Score)
	assert.Equal(t, out.Results[0].Score, out.Results[0].Signals["bm25"])
	assert.Equal(t, 2, out.TotalCandidates)
	assert.False(t, out.FellBack)
}

func TestSearchEqualLengthMoreOccurrencesScoresAtLeastAsHigh(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	low := mlCandidate("low.md", 2)
	high := mlCandidate("high.md", 5)
	store.On("CandidatesForTerms", mock.Anything, mock.Anything, mock.Anything).
		Return([]*Candidate{low, high}, nil)
	store.On("Stats", mock.Anything).Return(domain.CorpusStats{ChunkCount: 10, TotalTokens: 1000}, nil)
	store.On("TermDocFreqs", mock.Anything, mock.Anything).
		Return(map[string]int{"machine": 4, "learning": 4}, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: "machine learning"})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.GreaterOrEqual(t, out.Results[0].Score, out.Results[1].Score)
	assert.Equal(t, "high.md", out.Results[0].Path)
}

func TestSearchNoCandidatesReturnsEmptyNotError(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	store.On("CandidatesForTerms", mock.Anything, []string{"nonexistent", "term", "xyz"}, mock.Anything).
		Return([]*Candidate{}, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: "nonexistent_term_xyz"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.Zero(t, out.TotalCandidates)
	assert.False(t, out.FellBack)
}

func TestSearchEmptyQueryFallsBackToListing(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	recent := []*Candidate{mlCandidate("recent.md", 1)}
	store.On("RecentChunks", mock.Anything, mock.Anything, defaultSearchLimit).Return(recent, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: "! ?"})
	require.NoError(t, err)
	assert.True(t, out.FellBack)
	require.Len(t, out.Results, 1)
	assert.Zero(t, out.Results[0].Score)
	store.AssertNotCalled(t, "CandidatesForTerms", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchInvalidDateRange(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Search(context.Background(), SearchInput{
		Query:   "anything",
		Filters: FilterSpec{Since: &since, Until: &until},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestSearchInvalidSortMode(t *testing.T) {
	svc := NewSearchService(new(MockIndexStore))
	_, err := svc.Search(context.Background(), SearchInput{Query: "q", Sort: "relevance"})
	assert.ErrorIs(t, err, domain.ErrInvalidSortMode)
}

func TestSearchDateSortKeepsScores(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	older := mlCandidate("older.md", 5)
	older.ModifiedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := mlCandidate("newer.md", 1)
	newer.ModifiedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	store.On("CandidatesForTerms", mock.Anything, mock.Anything, mock.Anything).
		Return([]*Candidate{older, newer}, nil)
	store.On("Stats", mock.Anything).Return(domain.CorpusStats{ChunkCount: 2, TotalTokens: 200}, nil)
	store.On("TermDocFreqs", mock.Anything, mock.Anything).
		Return(map[string]int{"machine": 2, "learning": 2}, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: "machine learning", Sort: SortByDate})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "newer.md", out.Results[0].Path)
	assert.Positive(t, out.Results[0].Score)
	assert.Positive(t, out.Results[1].Score)
}

func TestSearchTieBreaksByDateThenPath(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	a := mlCandidate("b-path.md", 2)
	b := mlCandidate("a-path.md", 2)
	store.On("CandidatesForTerms", mock.Anything, mock.Anything, mock.Anything).
		Return([]*Candidate{a, b}, nil)
	store.On("Stats", mock.Anything).Return(domain.CorpusStats{ChunkCount: 2, TotalTokens: 200}, nil)
	store.On("TermDocFreqs", mock.Anything, mock.Anything).
		Return(map[string]int{"machine": 2, "learning": 2}, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: "machine learning"})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "a-path.md", out.Results[0].Path)
}

func TestSearchLimitTruncates(t *testing.T) {
	store := new(MockIndexStore)
	svc := NewSearchService(store)

	cands := []*Candidate{
		mlCandidate("1.md", 1), mlCandidate("2.md", 2), mlCandidate("3.md", 3),
	}
	store.On("CandidatesForTerms", mock.Anything, mock.Anything, mock.Anything).Return(cands, nil)
	store.On("Stats", mock.Anything).Return(domain.CorpusStats{ChunkCount: 3, TotalTokens: 300}, nil)
	store.On("TermDocFreqs", mock.Anything, mock.Anything).
		Return(map[string]int{"machine": 3, "learning": 3}, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: "machine learning", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Results, 2)
	assert.Equal(t, 3, out.TotalCandidates)
}

func TestMakeSnippet(t *testing.T) {
	long := strings.Repeat("x", 400) + " needle here " + strings.Repeat("y", 400)
	snip := makeSnippet(long, []string{"needle"})
	assert.Contains(t, snip, "needle")
	assert.LessOrEqual(t, len([]rune(snip)), snippetMaxChars+2)
	assert.True(t, strings.HasPrefix(snip, "…"))

	short := "tiny chunk"
	assert.Equal(t, short, makeSnippet(short, []string{"chunk"}))

	// no literal match degrades to chunk start
	nomatch := makeSnippet(long, []string{"absent"})
	assert.True(t, strings.HasPrefix(nomatch, "xxx"))
}
