package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notedex/notedex/internal/domain"
)

func blobInfo(path, etag string) BlobInfo {
	return BlobInfo{
		Path:       path,
		ETag:       etag,
		ModifiedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Size:       64,
	}
}

func blobObject(info BlobInfo, content string) *BlobObject {
	return &BlobObject{BlobInfo: info, Content: content}
}

const sampleDoc = "# Notes\n\nSome indexed text about databases.\n"

func TestSyncAddsNewFiles(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 1)

	info := blobInfo("notes/new.md", "etag-1")
	source.On("List", mock.Anything).Return([]BlobInfo{info}, nil)
	store.On("ListFilePaths", mock.Anything).Return([]string{}, nil)
	store.On("GetEtag", mock.Anything, "notes/new.md").Return("", false, nil)
	source.On("Fetch", mock.Anything, "notes/new.md").Return(blobObject(info, sampleDoc), nil)
	store.On("UpsertFile", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Added)
	assert.Zero(t, report.Updated)
	assert.Zero(t, report.Removed)
	assert.Empty(t, report.Errors)
	store.AssertExpectations(t)
}

func TestSyncUnchangedEtagIsIdempotent(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 2)

	info := blobInfo("notes/same.md", "etag-1")
	source.On("List", mock.Anything).Return([]BlobInfo{info}, nil)
	store.On("ListFilePaths", mock.Anything).Return([]string{"notes/same.md"}, nil)
	store.On("GetEtag", mock.Anything, "notes/same.md").Return("etag-1", true, nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Zero(t, report.Added)
	assert.Zero(t, report.Updated)
	assert.Zero(t, report.Removed)
	source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpsertFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncReingestsChangedEtag(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 1)

	info := blobInfo("notes/changed.md", "etag-2")
	source.On("List", mock.Anything).Return([]BlobInfo{info}, nil)
	store.On("ListFilePaths", mock.Anything).Return([]string{"notes/changed.md"}, nil)
	store.On("GetEtag", mock.Anything, "notes/changed.md").Return("etag-1", true, nil)
	source.On("Fetch", mock.Anything, "notes/changed.md").Return(blobObject(info, sampleDoc), nil)
	store.On("UpsertFile", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Added)
}

func TestSyncRemovesVanishedFiles(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 1)

	source.On("List", mock.Anything).Return([]BlobInfo{}, nil)
	store.On("ListFilePaths", mock.Anything).Return([]string{"notes/gone.md"}, nil)
	store.On("DeleteFile", mock.Anything, "notes/gone.md").Return(nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Removed)
	store.AssertExpectations(t)
}

func TestSyncPerPathFailureDoesNotAbortRun(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 1)

	bad := blobInfo("notes/bad.md", "etag-b")
	good := blobInfo("notes/good.md", "etag-g")
	source.On("List", mock.Anything).Return([]BlobInfo{bad, good}, nil)
	store.On("ListFilePaths", mock.Anything).Return([]string{}, nil)
	store.On("GetEtag", mock.Anything, mock.Anything).Return("", false, nil)
	source.On("Fetch", mock.Anything, "notes/bad.md").Return(nil, errors.New("connection reset"))
	source.On("Fetch", mock.Anything, "notes/good.md").Return(blobObject(good, sampleDoc), nil)
	store.On("UpsertFile", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Added)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "notes/bad.md", report.Errors[0].Path)
}

func TestSyncListingFailureAbortsRun(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 1)

	source.On("List", mock.Anything).Return(nil, errors.New("bucket unreachable"))

	_, err := svc.Run(context.Background())
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeSourceUnavailable, derr.Code)
	store.AssertNotCalled(t, "ListFilePaths", mock.Anything)
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	source.On("List", mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return([]BlobInfo{}, nil)
	store.On("ListFilePaths", mock.Anything).Return([]string{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()

	<-started
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestSyncCancellationReportsSkipped(t *testing.T) {
	source := new(MockBlobSource)
	store := new(MockIndexStore)
	svc := NewSyncService(source, store, 1)

	infos := []BlobInfo{blobInfo("a.md", "e1"), blobInfo("b.md", "e2")}
	source.On("List", mock.Anything).Return(infos, nil)
	store.On("ListFilePaths", mock.Anything).Return([]string{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Skipped)
	store.AssertNotCalled(t, "GetEtag", mock.Anything, mock.Anything)
}
