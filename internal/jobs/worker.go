package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/service"
	"github.com/notedex/notedex/internal/telemetry"
)

// SyncRunner defines the interface for running one ingestion pass
type SyncRunner interface {
	Run(ctx context.Context) (*service.SyncReport, error)
}

// Worker periodically re-synchronizes the index with the blob source
type Worker struct {
	runner       SyncRunner
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(runner SyncRunner, pollInterval time.Duration) *Worker {
	return &Worker{
		runner:       runner,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Sync worker started with poll interval: %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Sync worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Sync worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	spanCtx, span := telemetry.StartSpan(ctx, "sync.run", telemetry.SpanAttributes{Operation: "periodic"})
	defer span.End()

	report, err := w.runner.Run(spanCtx)
	if err != nil {
		// A manually triggered run may still be active; that is not a failure.
		if errors.Is(err, domain.ErrSyncInProgress) {
			log.Println("Sync worker: run already in progress, skipping tick")
			return
		}
		span.SetError(err)
		log.Printf("Error running sync: %v", err)
		return
	}

	log.Printf("Sync run complete: scanned=%d added=%d updated=%d removed=%d errors=%d",
		report.Scanned, report.Added, report.Updated, report.Removed, len(report.Errors))
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Sync worker shutdown complete")
}
