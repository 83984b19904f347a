package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/parser"
)

const defaultSyncWorkers = 4

// SyncService reconciles the index with the current state of the blob
// source. Runs are idempotent: a second run over an unchanged source
// reports zero added, updated and removed paths.
type SyncService struct {
	source  BlobSource
	store   IndexStore
	workers int

	running atomic.Bool
	locks   pathLocks
}

func NewSyncService(source BlobSource, store IndexStore, workers int) *SyncService {
	if workers <= 0 {
		workers = defaultSyncWorkers
	}
	return &SyncService{source: source, store: store, workers: workers}
}

// Run lists the source, re-ingests every path whose change token differs
// from the stored one, and deletes paths that vanished from the listing.
// Per-path fetch, parse or store failures are recorded and skipped; a
// listing failure aborts the whole run. Only one run is active at a time.
//
// Paths are processed by a bounded worker pool. Each path's work is
// serialized by a per-path lock, and every store write is individually
// atomic, so concurrent upserts of different paths are safe. Cancellation
// is honored between per-path units of work; paths completed before
// cancellation stay correctly indexed and the report counts the rest as
// skipped.
func (s *SyncService) Run(ctx context.Context) (*SyncReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer s.running.Store(false)

	infos, err := s.source.List(ctx)
	if err != nil {
		return nil, domain.NewSourceError("list", err)
	}

	stored, err := s.store.ListFilePaths(ctx)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Errors: []SyncError{}}
	var mu sync.Mutex

	listed := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		listed[info.Path] = struct{}{}
	}

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, info := range infos {
		if ctx.Err() != nil {
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			outcome, err := s.syncPath(ctx, info)
			mu.Lock()
			defer mu.Unlock()
			report.Scanned++
			switch {
			case err != nil:
				report.Errors = append(report.Errors, SyncError{Path: info.Path, Message: err.Error()})
				log.Printf("sync: skipping %s: %v", info.Path, err)
			case outcome == outcomeAdded:
				report.Added++
			case outcome == outcomeUpdated:
				report.Updated++
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, path := range stored {
		if _, ok := listed[path]; ok {
			continue
		}
		if ctx.Err() != nil {
			report.Skipped++
			continue
		}
		if err := s.store.DeleteFile(ctx, path); err != nil {
			report.Errors = append(report.Errors, SyncError{Path: path, Message: err.Error()})
			continue
		}
		report.Removed++
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type syncOutcome int

const (
	outcomeUnchanged syncOutcome = iota
	outcomeAdded
	outcomeUpdated
)

func (s *SyncService) syncPath(ctx context.Context, info BlobInfo) (syncOutcome, error) {
	unlock := s.locks.lock(info.Path)
	defer unlock()

	stored, known, err := s.store.GetEtag(ctx, info.Path)
	if err != nil {
		return outcomeUnchanged, err
	}
	if known && stored == info.ETag {
		return outcomeUnchanged, nil
	}

	obj, err := s.source.Fetch(ctx, info.Path)
	if err != nil {
		return outcomeUnchanged, domain.NewSourceError("fetch", err)
	}

	doc, err := parser.Parse(obj.Content, obj.Path, obj.ModifiedAt)
	if err != nil {
		return outcomeUnchanged, domain.NewParseError(obj.Path, err)
	}

	file := parser.FileRecord(obj.Path, obj.ETag, obj.Size, obj.ModifiedAt, doc)
	if err := s.store.UpsertFile(ctx, file, doc.Chunks); err != nil {
		return outcomeUnchanged, err
	}

	if known {
		return outcomeUpdated, nil
	}
	return outcomeAdded, nil
}

// pathLocks serializes work on the same path. Distinct paths proceed in
// parallel.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
