package service

import (
	"context"
	"time"

	"github.com/notedex/notedex/internal/domain"
)

// Date field selection for filtering and sorting.
const (
	DateFieldAuto     = "auto"
	DateFieldCreated  = "created"
	DateFieldModified = "modified"
)

// Sort modes for search results.
const (
	SortByScore = "score"
	SortByDate  = "date"
)

// FilterSpec narrows the candidate population for search and facets.
type FilterSpec struct {
	Tags       []string
	RequireAll bool
	Since      *time.Time
	Until      *time.Time
	DateField  string
	PathPrefix string
}

// Validate rejects inverted date ranges and unknown field selectors.
func (f FilterSpec) Validate() error {
	if f.Since != nil && f.Until != nil && f.Since.After(*f.Until) {
		return domain.ErrInvalidDateRange
	}
	switch f.DateField {
	case "", DateFieldAuto, DateFieldCreated, DateFieldModified:
	default:
		return domain.ErrInvalidDateField
	}
	return nil
}

// Candidate is a chunk retrieved for scoring, joined with its file's
// metadata and the per-query-term frequencies from the postings table.
type Candidate struct {
	ChunkID    string
	Path       string
	Heading    string
	StartLine  int
	EndLine    int
	Text       string
	TokenCount int
	ModifiedAt time.Time
	CreatedAt  *time.Time
	TermFreqs  map[string]int
}

// EffectiveDate mirrors domain.File date semantics for a candidate row.
func (c *Candidate) EffectiveDate() time.Time {
	if c.CreatedAt != nil {
		return *c.CreatedAt
	}
	return c.ModifiedAt
}

// TimeBucket is one month-granularity histogram entry.
type TimeBucket struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// IndexStore is the persistent inverted index consumed by the engine.
type IndexStore interface {
	// UpsertFile atomically replaces all chunks of file.Path with the
	// given set and restores posting consistency. All-or-nothing.
	UpsertFile(ctx context.Context, file *domain.File, chunks []domain.Chunk) error
	// DeleteFile removes the file, its chunks and postings. No-op for
	// unknown paths.
	DeleteFile(ctx context.Context, path string) error
	// GetEtag returns the stored change token; ok is false when the path
	// has never been indexed.
	GetEtag(ctx context.Context, path string) (etag string, ok bool, err error)
	// ListFilePaths returns every indexed path.
	ListFilePaths(ctx context.Context) ([]string, error)
	// CandidatesForTerms returns the union of filtered chunks whose
	// postings intersect any given term.
	CandidatesForTerms(ctx context.Context, terms []string, filters FilterSpec) ([]*Candidate, error)
	// RecentChunks lists filtered chunks by recency, used when a query
	// produces no tokens and search falls back to a listing.
	RecentChunks(ctx context.Context, filters FilterSpec, limit int) ([]*Candidate, error)
	// TermDocFreqs returns corpus-wide document frequency per term.
	TermDocFreqs(ctx context.Context, terms []string) (map[string]int, error)
	// Stats returns the global chunk count and token total.
	Stats(ctx context.Context) (domain.CorpusStats, error)
	// TagCounts groups the filtered chunk population by tag.
	TagCounts(ctx context.Context, filters FilterSpec, limit int) (map[string]int, error)
	// TimeHistogram buckets the filtered chunk population by month.
	TimeHistogram(ctx context.Context, filters FilterSpec, limit int) ([]TimeBucket, error)
}

// BlobInfo describes one listed source object.
type BlobInfo struct {
	Path       string
	ETag       string
	ModifiedAt time.Time
	Size       int64
}

// BlobObject is a fetched source object with its content.
type BlobObject struct {
	BlobInfo
	Content string
}

// BlobSource lists and fetches raw documents from the object store.
type BlobSource interface {
	List(ctx context.Context) ([]BlobInfo, error)
	Fetch(ctx context.Context, path string) (*BlobObject, error)
}

// RankedChunk is the unit handed to the answer backend: full chunk text
// plus the citation coordinates.
type RankedChunk struct {
	Path    string
	Heading string
	Text    string
	Score   float64
}

// Summarizer turns ranked chunks into free-text answer lines. The engine
// stays fully functional without one; the extractive fallback takes over
// on absence, error or timeout.
type Summarizer interface {
	Summarize(ctx context.Context, question string, chunks []RankedChunk) ([]string, error)
}

// SearchInput is a single search invocation.
type SearchInput struct {
	Query   string
	Filters FilterSpec
	Sort    string
	Limit   int
}

// SearchResult is one ranked chunk.
type SearchResult struct {
	Path      string             `json:"path"`
	Heading   string             `json:"heading"`
	Score     float64            `json:"score"`
	Snippet   string             `json:"snippet"`
	StartLine int                `json:"start_line"`
	Signals   map[string]float64 `json:"signals"`

	text     string
	fileDate time.Time
}

// Text returns the full chunk text backing this result.
func (r *SearchResult) Text() string { return r.text }

// FileDate returns the owning file's effective date.
func (r *SearchResult) FileDate() time.Time { return r.fileDate }

// AppliedFilters echoes the resolved filter set back to the caller.
type AppliedFilters struct {
	Tags           []string `json:"tags"`
	RequireAllTags bool     `json:"require_all_tags"`
	Since          string   `json:"since,omitempty"`
	Until          string   `json:"until,omitempty"`
	DateField      string   `json:"date_field"`
	PathPrefix     string   `json:"path_prefix,omitempty"`
	Sort           string   `json:"sort"`
}

// SearchOutput is the full search response.
type SearchOutput struct {
	Query           string          `json:"query"`
	AppliedFilters  AppliedFilters  `json:"applied_filters"`
	TotalCandidates int             `json:"total_candidates"`
	Results         []*SearchResult `json:"results"`
	FellBack        bool            `json:"fell_back"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// FacetOutput reports tag and time distributions over the filtered corpus.
type FacetOutput struct {
	Tags          map[string]int `json:"tags"`
	TimeHistogram []TimeBucket   `json:"time_histogram"`
}

// Citation points an answer line back to its source chunk.
type Citation struct {
	Ref string `json:"ref"`
}

// AnswerOutput is the synthesized answer with its provenance.
type AnswerOutput struct {
	Answer    []string   `json:"answer"`
	Citations []Citation `json:"citations"`
	Related   []string   `json:"related"`
}

// SyncError reports one skipped path.
type SyncError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SyncReport summarizes one ingestion run.
type SyncReport struct {
	Scanned int         `json:"scanned"`
	Added   int         `json:"added"`
	Updated int         `json:"updated"`
	Removed int         `json:"removed"`
	Skipped int         `json:"skipped"`
	Errors  []SyncError `json:"errors"`
}
