package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/notedex/notedex/internal/domain"
)

// MockIndexStore is a mock implementation of IndexStore
type MockIndexStore struct {
	mock.Mock
}

func (m *MockIndexStore) UpsertFile(ctx context.Context, file *domain.File, chunks []domain.Chunk) error {
	args := m.Called(ctx, file, chunks)
	return args.Error(0)
}

func (m *MockIndexStore) DeleteFile(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockIndexStore) GetEtag(ctx context.Context, path string) (string, bool, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIndexStore) ListFilePaths(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIndexStore) CandidatesForTerms(ctx context.Context, terms []string, filters FilterSpec) ([]*Candidate, error) {
	args := m.Called(ctx, terms, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Candidate), args.Error(1)
}

func (m *MockIndexStore) RecentChunks(ctx context.Context, filters FilterSpec, limit int) ([]*Candidate, error) {
	args := m.Called(ctx, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Candidate), args.Error(1)
}

func (m *MockIndexStore) TermDocFreqs(ctx context.Context, terms []string) (map[string]int, error) {
	args := m.Called(ctx, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockIndexStore) Stats(ctx context.Context) (domain.CorpusStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.CorpusStats), args.Error(1)
}

func (m *MockIndexStore) TagCounts(ctx context.Context, filters FilterSpec, limit int) (map[string]int, error) {
	args := m.Called(ctx, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockIndexStore) TimeHistogram(ctx context.Context, filters FilterSpec, limit int) ([]TimeBucket, error) {
	args := m.Called(ctx, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TimeBucket), args.Error(1)
}

// MockBlobSource is a mock implementation of BlobSource
type MockBlobSource struct {
	mock.Mock
}

func (m *MockBlobSource) List(ctx context.Context) ([]BlobInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BlobInfo), args.Error(1)
}

func (m *MockBlobSource) Fetch(ctx context.Context, path string) (*BlobObject, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BlobObject), args.Error(1)
}

// MockSummarizer is a mock implementation of Summarizer
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, question string, chunks []RankedChunk) ([]string, error) {
	args := m.Called(ctx, question, chunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
