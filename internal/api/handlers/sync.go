package handlers

import (
	"context"
	"net/http"

	"github.com/notedex/notedex/internal/api"
	"github.com/notedex/notedex/internal/service"
)

type SyncService interface {
	Run(ctx context.Context) (*service.SyncReport, error)
}

type SyncHandler struct {
	svc SyncService
}

func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Trigger handles POST /sync. A run already in progress answers 409; the
// caller retries once the active run finishes.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Run(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, report)
}
