package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/notedex/notedex/internal/api"
	"github.com/notedex/notedex/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

type SearchHandler struct {
	svc SearchService
	now func() time.Time
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc, now: time.Now}
}

type SearchResultResponse struct {
	Path      string             `json:"path"`
	Heading   string             `json:"heading"`
	Score     float64            `json:"score"`
	Snippet   string             `json:"snippet"`
	StartLine int                `json:"start_line"`
	Signals   map[string]float64 `json:"signals"`
}

type SearchResponse struct {
	Query           string                  `json:"query"`
	AppliedFilters  service.AppliedFilters  `json:"applied_filters"`
	TotalCandidates int                     `json:"total_candidates"`
	Results         []*SearchResultResponse `json:"results"`
	FellBack        bool                    `json:"fell_back"`
	GeneratedAt     string                  `json:"generated_at"`
}

// Search handles GET /search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters, err := parseFilters(query, h.now())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	output, err := h.svc.Search(r.Context(), service.SearchInput{
		Query:   query.Get("q"),
		Filters: filters,
		Sort:    query.Get("sort"),
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*SearchResultResponse, len(output.Results))
	for i, result := range output.Results {
		results[i] = &SearchResultResponse{
			Path:      result.Path,
			Heading:   result.Heading,
			Score:     result.Score,
			Snippet:   result.Snippet,
			StartLine: result.StartLine,
			Signals:   result.Signals,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Query:           output.Query,
		AppliedFilters:  output.AppliedFilters,
		TotalCandidates: output.TotalCandidates,
		Results:         results,
		FellBack:        output.FellBack,
		GeneratedAt:     output.GeneratedAt.Format(time.RFC3339Nano),
	})
}
