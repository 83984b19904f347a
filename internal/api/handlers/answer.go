package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/notedex/notedex/internal/api"
	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/service"
)

type AnswerService interface {
	Answer(ctx context.Context, question string, topK int, filters service.FilterSpec) (*service.AnswerOutput, error)
}

type AnswerHandler struct {
	svc AnswerService
	now func() time.Time
}

func NewAnswerHandler(svc AnswerService) *AnswerHandler {
	return &AnswerHandler{svc: svc, now: time.Now}
}

type AnswerResponse struct {
	Answer    []string           `json:"answer"`
	Citations []service.Citation `json:"citations"`
	Related   []string           `json:"related"`
}

// Answer handles GET /answer.
func (h *AnswerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	question := strings.TrimSpace(query.Get("q"))
	if question == "" {
		api.HandleError(w, domain.ErrEmptyQuery)
		return
	}

	filters, err := parseFilters(query, h.now())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	topK, err := parseLimit(query.Get("k"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	output, err := h.svc.Answer(r.Context(), question, topK, filters)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AnswerResponse{
		Answer:    output.Answer,
		Citations: output.Citations,
		Related:   output.Related,
	})
}
