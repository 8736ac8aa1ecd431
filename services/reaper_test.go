package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
)

func newReaper(fileStore *fakeFileStore, storage *fakeObjectStorage) *ReaperServiceImpl {
	return NewReaperServiceImpl(context.Background(), fileStore, storage, 0, logging.NewNopLogger())
}

func TestReapExpiredRemovesRecordWithoutObject(t *testing.T) {
	key := testCaseID + "/screenshot/2024-01-01/ghost_a1b2c3d4.png"
	fileStore := newFakeFileStore(pendingFile("f1", key, time.Now().UTC().Add(-time.Hour)))
	// No object was ever uploaded for this session.
	storage := newFakeObjectStorage()
	svc := newReaper(fileStore, storage)

	reaped, err := svc.ReapExpired(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, reaped)
	_, ok := fileStore.get("f1")
	require.False(t, ok)
}

func TestReapExpiredDeletesAbandonedObject(t *testing.T) {
	key := testCaseID + "/video/2024-01-01/clip_a1b2c3d4.mp4"
	fileStore := newFakeFileStore(pendingFile("f1", key, time.Now().UTC().Add(-time.Minute)))
	storage := newFakeObjectStorage(key)
	svc := newReaper(fileStore, storage)

	reaped, err := svc.ReapExpired(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, reaped)
	require.Contains(t, storage.deleted, key)
}

func TestReapExpiredToleratesStorageFailure(t *testing.T) {
	key := testCaseID + "/screenshot/2024-01-01/x_a1b2c3d4.png"
	fileStore := newFakeFileStore(pendingFile("f1", key, time.Now().UTC().Add(-time.Hour)))
	storage := newFakeObjectStorage(key)
	storage.deleteErr = errors.New("storage unavailable")
	svc := newReaper(fileStore, storage)

	reaped, err := svc.ReapExpired(context.Background())

	// The record still goes; the object delete is best-effort.
	require.NoError(t, err)
	require.Equal(t, 1, reaped)
	_, ok := fileStore.get("f1")
	require.False(t, ok)
}

func TestReapSparesLiveSessionsAndCompletedFiles(t *testing.T) {
	now := time.Now().UTC()
	live := pendingFile("live", testCaseID+"/screenshot/2024-01-01/live.png", now.Add(time.Hour))
	done := completedFile("done", models.CaptureTypeScreenshot, 100, now.Add(-48*time.Hour))
	done.ExpiresAt = now.Add(-47 * time.Hour) // long past, but completed

	fileStore := newFakeFileStore(live, done)
	svc := newReaper(fileStore, newFakeObjectStorage())

	reaped, err := svc.ReapExpired(context.Background())

	require.NoError(t, err)
	require.Zero(t, reaped)
	_, liveOK := fileStore.get("live")
	_, doneOK := fileStore.get("done")
	require.True(t, liveOK)
	require.True(t, doneOK)
}
