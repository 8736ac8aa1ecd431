package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
)

func completedFile(fileID string, captureType models.CaptureType, size int64, uploadedAt time.Time) models.CaseFile {
	return models.CaseFile{
		FileID:      fileID,
		FileKey:     testCaseID + "/" + string(captureType) + "/2024-01-01/" + fileID + ".bin",
		CaseID:      testCaseID,
		CaptureType: captureType,
		Status:      models.FileStatusCompleted,
		FileSize:    size,
		CreatedAt:   uploadedAt.Add(-time.Minute),
		UploadedAt:  uploadedAt,
	}
}

func TestRecomputeCountsOnlyCompleted(t *testing.T) {
	now := time.Now().UTC()
	pending := pendingFile("p1", testCaseID+"/screenshot/2024-01-01/p1.png", now.Add(time.Hour))

	caseStore := newFakeCaseStore(testCase())
	fileStore := newFakeFileStore(
		completedFile("s1", models.CaptureTypeScreenshot, 100, now.Add(-2*time.Hour)),
		completedFile("s2", models.CaptureTypeScreenshot, 200, now.Add(-time.Hour)),
		completedFile("v1", models.CaptureTypeVideo, 5000, now.Add(-30*time.Minute)),
		pending,
	)
	svc := NewCaseAggregateServiceImpl(caseStore, fileStore, logging.NewNopLogger())

	require.NoError(t, svc.RecomputeCaseAggregates(context.Background(), testCaseID))

	c, err := caseStore.Get(context.Background(), testCaseID)
	require.NoError(t, err)
	require.Equal(t, 2, c.TotalScreenshots)
	require.Equal(t, 1, c.TotalVideos)
	require.Equal(t, int64(5300), c.TotalFileSize)
	require.WithinDuration(t, now.Add(-30*time.Minute), c.LastActivity, time.Second)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	caseStore := newFakeCaseStore(testCase())
	fileStore := newFakeFileStore(
		completedFile("s1", models.CaptureTypeScreenshot, 100, now),
	)
	svc := NewCaseAggregateServiceImpl(caseStore, fileStore, logging.NewNopLogger())

	require.NoError(t, svc.RecomputeCaseAggregates(context.Background(), testCaseID))
	first, err := caseStore.Get(context.Background(), testCaseID)
	require.NoError(t, err)

	require.NoError(t, svc.RecomputeCaseAggregates(context.Background(), testCaseID))
	second, err := caseStore.Get(context.Background(), testCaseID)
	require.NoError(t, err)

	require.Equal(t, first.TotalScreenshots, second.TotalScreenshots)
	require.Equal(t, first.TotalVideos, second.TotalVideos)
	require.Equal(t, first.TotalFileSize, second.TotalFileSize)
	require.Equal(t, first.LastActivity, second.LastActivity)
}

func TestRecomputeAfterDeletion(t *testing.T) {
	now := time.Now().UTC()
	caseStore := newFakeCaseStore(testCase())
	fileStore := newFakeFileStore(
		completedFile("s1", models.CaptureTypeScreenshot, 100, now.Add(-time.Hour)),
		completedFile("s2", models.CaptureTypeScreenshot, 200, now),
	)
	svc := NewCaseAggregateServiceImpl(caseStore, fileStore, logging.NewNopLogger())

	require.NoError(t, svc.RecomputeCaseAggregates(context.Background(), testCaseID))

	require.NoError(t, fileStore.Delete(context.Background(), "s1"))
	require.NoError(t, svc.RecomputeCaseAggregates(context.Background(), testCaseID))

	c, err := caseStore.Get(context.Background(), testCaseID)
	require.NoError(t, err)
	require.Equal(t, 1, c.TotalScreenshots)
	require.Equal(t, int64(200), c.TotalFileSize)
}

func TestRecomputeEmptyCaseFallsBackToCaseTimestamp(t *testing.T) {
	base := testCase()
	caseStore := newFakeCaseStore(base)
	svc := NewCaseAggregateServiceImpl(caseStore, newFakeFileStore(), logging.NewNopLogger())

	require.NoError(t, svc.RecomputeCaseAggregates(context.Background(), testCaseID))

	c, err := caseStore.Get(context.Background(), testCaseID)
	require.NoError(t, err)
	require.Zero(t, c.TotalScreenshots)
	require.Zero(t, c.TotalVideos)
	require.Zero(t, c.TotalFileSize)
	require.Equal(t, base.CreatedAt, c.LastActivity)
}

func TestRecomputeUnknownCase(t *testing.T) {
	svc := NewCaseAggregateServiceImpl(newFakeCaseStore(), newFakeFileStore(), logging.NewNopLogger())

	err := svc.RecomputeCaseAggregates(context.Background(), "Case-2099123100000")
	require.ErrorIs(t, err, apperror.ErrCaseNotFound)
}
