package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/notedex/notedex/internal/api"
	"github.com/notedex/notedex/internal/service"
)

type FacetService interface {
	Facets(ctx context.Context, filters service.FilterSpec) (*service.FacetOutput, error)
}

type FacetHandler struct {
	svc FacetService
	now func() time.Time
}

func NewFacetHandler(svc FacetService) *FacetHandler {
	return &FacetHandler{svc: svc, now: time.Now}
}

type FacetResponse struct {
	Tags          map[string]int       `json:"tags"`
	TimeHistogram []service.TimeBucket `json:"time_histogram"`
}

// Facets handles GET /facets.
func (h *FacetHandler) Facets(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query(), h.now())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	output, err := h.svc.Facets(r.Context(), filters)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, FacetResponse{
		Tags:          output.Tags,
		TimeHistogram: output.TimeHistogram,
	})
}
