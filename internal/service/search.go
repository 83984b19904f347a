package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/parser"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75

	defaultSearchLimit = 10
	maxSearchLimit     = 100

	snippetMaxChars = 260
	snippetContext  = 80
)

// SearchService is the BM25 query engine. It is stateless over the index
// store and deterministic for an unchanged index.
type SearchService struct {
	store IndexStore
	now   func() time.Time
}

func NewSearchService(store IndexStore) *SearchService {
	return &SearchService{store: store, now: time.Now}
}

// Search tokenizes the query the same way documents are indexed, retrieves
// filtered candidates, scores them with BM25 and returns the ranked page.
// Zero matches yield an empty result list, not an error. A query that
// produces no index tokens degrades to a recency listing with FellBack set.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	if err := input.Filters.Validate(); err != nil {
		return nil, err
	}

	sortMode := input.Sort
	switch sortMode {
	case "":
		sortMode = SortByScore
	case SortByScore, SortByDate:
	default:
		return nil, domain.ErrInvalidSortMode
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	out := &SearchOutput{
		Query:          input.Query,
		AppliedFilters: appliedFilters(input.Filters, sortMode),
		Results:        []*SearchResult{},
		GeneratedAt:    s.now().UTC(),
	}

	terms := parser.Tokenize(input.Query)
	if len(terms) == 0 {
		cands, err := s.store.RecentChunks(ctx, input.Filters, limit)
		if err != nil {
			return nil, err
		}
		out.FellBack = true
		out.TotalCandidates = len(cands)
		for _, c := range cands {
			out.Results = append(out.Results, resultFromCandidate(c, 0, nil))
		}
		return out, nil
	}

	cands, err := s.store.CandidatesForTerms(ctx, terms, input.Filters)
	if err != nil {
		return nil, err
	}
	out.TotalCandidates = len(cands)
	if len(cands) == 0 {
		return out, nil
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	dfs, err := s.store.TermDocFreqs(ctx, uniqueTerms(terms))
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(cands))
	for _, c := range cands {
		score := bm25Score(terms, c, stats, dfs)
		results = append(results, resultFromCandidate(c, score, terms))
	}

	sortResults(results, sortMode)
	if len(results) > limit {
		results = results[:limit]
	}
	out.Results = results
	return out, nil
}

// bm25Score accumulates the standard BM25 contribution of every query
// term present in the chunk. N and the average chunk length come from the
// corpus aggregates maintained by the store.
func bm25Score(terms []string, c *Candidate, stats domain.CorpusStats, dfs map[string]int) float64 {
	avgLen := stats.AvgChunkLen()
	if avgLen <= 0 {
		avgLen = 1
	}
	n := float64(stats.ChunkCount)

	score := 0.0
	for _, t := range terms {
		tf := float64(c.TermFreqs[t])
		if tf == 0 {
			continue
		}
		df := float64(dfs[t])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := tf + bm25K1*(1-bm25B+bm25B*float64(c.TokenCount)/avgLen)
		score += idf * (tf * (bm25K1 + 1)) / norm
	}
	return score
}

// sortResults orders by score descending with deterministic tie-breaks:
// most recent file date, then path. Date mode sorts by file date with the
// score still computed and reported.
func sortResults(results []*SearchResult, sortMode string) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if sortMode == SortByDate {
			if !a.fileDate.Equal(b.fileDate) {
				return a.fileDate.After(b.fileDate)
			}
			return a.Path < b.Path
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.fileDate.Equal(b.fileDate) {
			return a.fileDate.After(b.fileDate)
		}
		return a.Path < b.Path
	})
}

func resultFromCandidate(c *Candidate, score float64, terms []string) *SearchResult {
	return &SearchResult{
		Path:      c.Path,
		Heading:   c.Heading,
		Score:     score,
		Snippet:   makeSnippet(c.Text, terms),
		StartLine: c.StartLine,
		Signals:   map[string]float64{"bm25": score},
		text:      c.Text,
		fileDate:  c.EffectiveDate(),
	}
}

// makeSnippet extracts a window around the first literal occurrence of any
// query term, falling back to the chunk start when the match was not
// literal (for example a token that never appears as a contiguous
// substring after normalization).
func makeSnippet(text string, terms []string) string {
	pos := -1
	lower := strings.ToLower(text)
	for _, t := range terms {
		if i := strings.Index(lower, t); i >= 0 && (pos == -1 || i < pos) {
			pos = i
		}
	}
	if pos < 0 || pos >= len(text) {
		pos = 0
	}

	start := pos - snippetContext
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}

	end := start + snippetMaxChars
	if end >= len(text) {
		end = len(text)
	} else {
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(text) {
		snippet += "…"
	}
	return snippet
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func appliedFilters(f FilterSpec, sortMode string) AppliedFilters {
	af := AppliedFilters{
		Tags:           f.Tags,
		RequireAllTags: f.RequireAll,
		DateField:      f.DateField,
		PathPrefix:     f.PathPrefix,
		Sort:           sortMode,
	}
	if af.Tags == nil {
		af.Tags = []string{}
	}
	if af.DateField == "" {
		af.DateField = DateFieldAuto
	}
	if f.Since != nil {
		af.Since = f.Since.UTC().Format("2006-01-02")
	}
	if f.Until != nil {
		af.Until = f.Until.UTC().Format("2006-01-02")
	}
	return af
}
