package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "lowercases and strips hash",
			in:   []string{"#Python", "Backend"},
			want: []string{"backend", "python"},
		},
		{
			name: "splits csv and semicolons",
			in:   []string{"ai, docker; security"},
			want: []string{"ai", "docker", "security"},
		},
		{
			name: "dedupes",
			in:   []string{"go", "Go", "#go"},
			want: []string{"go"},
		},
		{
			name: "drops empties",
			in:   []string{"", " , ", "#"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTags(tt.in))
		})
	}
}

func TestFileEffectiveDate(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC)

	f := &File{Path: "notes/a.md", ETag: "v1", ModifiedAt: modified}
	assert.Equal(t, modified, f.EffectiveDate())

	f.CreatedAt = &created
	assert.Equal(t, created, f.EffectiveDate())
}

func TestValidateFile(t *testing.T) {
	now := time.Now().UTC()

	require.Error(t, ValidateFile(nil))
	require.Error(t, ValidateFile(&File{ETag: "v1", ModifiedAt: now}))
	require.Error(t, ValidateFile(&File{Path: "a.md", ModifiedAt: now}))
	require.Error(t, ValidateFile(&File{Path: "a.md", ETag: "v1"}))
	require.NoError(t, ValidateFile(&File{Path: "a.md", ETag: "v1", ModifiedAt: now}))
}

func TestCorpusStatsAvgChunkLen(t *testing.T) {
	assert.Zero(t, CorpusStats{}.AvgChunkLen())
	assert.InDelta(t, 50.0, CorpusStats{ChunkCount: 2, TotalTokens: 100}.AvgChunkLen(), 1e-9)
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := assert.AnError
	err := NewStoreError("upsert", cause)

	assert.Equal(t, ErrCodeStore, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "STORE_ERROR")
}
