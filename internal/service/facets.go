package service

import "context"

const (
	maxFacetTags    = 50
	maxFacetBuckets = 24
)

// FacetService computes tag and time distributions over the same filtered
// candidate population the query engine scores. It always reads the live
// index, so results reflect the last completed ingestion.
type FacetService struct {
	store IndexStore
}

func NewFacetService(store IndexStore) *FacetService {
	return &FacetService{store: store}
}

// Facets returns tag counts and a month-granularity time histogram for
// the filtered corpus.
func (s *FacetService) Facets(ctx context.Context, filters FilterSpec) (*FacetOutput, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	tags, err := s.store.TagCounts(ctx, filters, maxFacetTags)
	if err != nil {
		return nil, err
	}

	histogram, err := s.store.TimeHistogram(ctx, filters, maxFacetBuckets)
	if err != nil {
		return nil, err
	}
	if histogram == nil {
		histogram = []TimeBucket{}
	}

	return &FacetOutput{Tags: tags, TimeHistogram: histogram}, nil
}
