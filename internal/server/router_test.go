package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notedex/notedex/internal/api/handlers"
	"github.com/notedex/notedex/internal/service"
)

type stubSearch struct{}

func (stubSearch) Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error) {
	return &service.SearchOutput{Query: input.Query, Results: []*service.SearchResult{}}, nil
}

type stubFacets struct{}

func (stubFacets) Facets(ctx context.Context, filters service.FilterSpec) (*service.FacetOutput, error) {
	return &service.FacetOutput{Tags: map[string]int{}, TimeHistogram: []service.TimeBucket{}}, nil
}

type stubAnswer struct{}

func (stubAnswer) Answer(ctx context.Context, question string, topK int, filters service.FilterSpec) (*service.AnswerOutput, error) {
	return &service.AnswerOutput{Answer: []string{}, Citations: []service.Citation{}, Related: []string{}}, nil
}

type stubSync struct{}

func (stubSync) Run(ctx context.Context) (*service.SyncReport, error) {
	return &service.SyncReport{Errors: []service.SyncError{}}, nil
}

func newTestRouter() http.Handler {
	return NewRouter(RouterConfig{
		SearchHandler: handlers.NewSearchHandler(stubSearch{}),
		FacetHandler:  handlers.NewFacetHandler(stubFacets{}),
		AnswerHandler: handlers.NewAnswerHandler(stubAnswer{}),
		SyncHandler:   handlers.NewSyncHandler(stubSync{}),
	})
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/search?q=test", http.StatusOK},
		{http.MethodGet, "/facets", http.StatusOK},
		{http.MethodGet, "/answer?q=test", http.StatusOK},
		{http.MethodPost, "/sync", http.StatusOK},
		{http.MethodGet, "/sync", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouterSetsRequestID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
