package domain

// Chunk is a contiguous, heading-delimited slice of a File's content.
// Chunks of a file are ordered and non-overlapping; re-ingesting a file
// atomically replaces its entire chunk set.
type Chunk struct {
	ID      string
	Path    string
	Heading string
	// StartLine and EndLine are 1-based, inclusive line numbers in the
	// source document.
	StartLine int
	EndLine   int
	Text      string
	// TokenCount is the chunk length used for BM25 normalization.
	TokenCount int
	// TermFreqs maps each index token to its occurrence count in Text.
	// Filled at parse time so the store can maintain postings without
	// re-tokenizing.
	TermFreqs map[string]int
}

// Posting records one chunk's occurrence data for a term.
type Posting struct {
	ChunkID string
	Term    string
	Freq    int
}

// CorpusStats holds the global aggregates needed for BM25 scoring. They
// are adjusted in the same transaction as the postings they describe.
type CorpusStats struct {
	ChunkCount  int64
	TotalTokens int64
}

// AvgChunkLen returns the average chunk length, 0 for an empty corpus.
func (s CorpusStats) AvgChunkLen() float64 {
	if s.ChunkCount == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.ChunkCount)
}
