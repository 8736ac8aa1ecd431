package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
)

const (
	testCaseID  = "Case-2024010100001"
	testMaxSize = int64(100 * 1024 * 1024)
)

func newSessionService(caseStore *fakeCaseStore, fileStore *fakeFileStore, storage *fakeObjectStorage) *UploadSessionServiceImpl {
	return NewUploadSessionServiceImpl(
		caseStore, fileStore, storage,
		time.Hour, testMaxSize,
		logging.NewNopLogger(),
	)
}

func testCase() models.Case {
	return models.Case{
		CaseID:    testCaseID,
		Title:     "test case",
		CreatedAt: time.Now().UTC().Add(-24 * time.Hour),
	}
}

func TestCreateSessionRejectsDisallowedFileType(t *testing.T) {
	svc := newSessionService(newFakeCaseStore(testCase()), newFakeFileStore(), newFakeObjectStorage())

	_, err := svc.CreateSession(context.Background(), models.Identity{UserID: "u1"}, models.CreateUploadSessionRequest{
		CaseID:      testCaseID,
		CaptureType: "screenshot",
		FileName:    "report.pdf",
		FileType:    "application/pdf",
		FileSize:    1024,
	})

	require.Error(t, err)
	require.True(t, apperror.IsValidation(err))
}

func TestCreateSessionAcceptsAllowedFileType(t *testing.T) {
	fileStore := newFakeFileStore()
	svc := newSessionService(newFakeCaseStore(testCase()), fileStore, newFakeObjectStorage())

	resp, err := svc.CreateSession(context.Background(), models.Identity{UserID: "u1"}, models.CreateUploadSessionRequest{
		CaseID:      testCaseID,
		CaptureType: "screenshot",
		FileName:    "shot.png",
		FileType:    "image/png",
		FileSize:    1024,
	})

	require.NoError(t, err)
	require.NotEmpty(t, resp.UploadURL)
	require.NotEmpty(t, resp.FileID)
	require.Equal(t, int64(3600), resp.ExpiresIn)
}

func TestCreateSessionRejectsOversizedFile(t *testing.T) {
	svc := newSessionService(newFakeCaseStore(testCase()), newFakeFileStore(), newFakeObjectStorage())

	_, err := svc.CreateSession(context.Background(), models.Identity{UserID: "u1"}, models.CreateUploadSessionRequest{
		CaseID:      testCaseID,
		CaptureType: "video",
		FileName:    "clip.mp4",
		FileType:    "video/mp4",
		FileSize:    testMaxSize + 1,
	})

	require.True(t, apperror.IsValidation(err))
}

func TestCreateSessionUnknownCase(t *testing.T) {
	fileStore := newFakeFileStore()
	svc := newSessionService(newFakeCaseStore(), fileStore, newFakeObjectStorage())

	_, err := svc.CreateSession(context.Background(), models.Identity{UserID: "u1"}, models.CreateUploadSessionRequest{
		CaseID:      "Case-2099123100000",
		CaptureType: "screenshot",
		FileName:    "shot.png",
		FileType:    "image/png",
	})

	require.ErrorIs(t, err, apperror.ErrCaseNotFound)
	require.Empty(t, fileStore.files)
}

func TestCreateSessionWritesPendingRecord(t *testing.T) {
	fileStore := newFakeFileStore()
	svc := newSessionService(newFakeCaseStore(testCase()), fileStore, newFakeObjectStorage())

	before := time.Now().UTC()
	resp, err := svc.CreateSession(context.Background(), models.Identity{UserID: "investigator-7"}, models.CreateUploadSessionRequest{
		CaseID:      testCaseID,
		CaptureType: "video",
		FileName:    "interview room.mp4",
		FileType:    "video/mp4",
		FileSize:    500000,
	})
	require.NoError(t, err)

	file, ok := fileStore.get(resp.FileID)
	require.True(t, ok)
	require.Equal(t, models.FileStatusPending, file.Status)
	require.Equal(t, testCaseID, file.CaseID)
	require.Equal(t, models.CaptureTypeVideo, file.CaptureType)
	require.Equal(t, "investigator-7", file.UploadedBy)
	require.Equal(t, "interview room.mp4", file.OriginalName)
	require.Equal(t, resp.FileKey, file.FileKey)
	require.True(t, file.ExpiresAt.After(before.Add(59*time.Minute)))
	require.True(t, file.UploadedAt.IsZero())

	// caseId/captureType/date/sanitized_suffix.ext
	keyPattern := regexp.MustCompile(
		`^Case-2024010100001/video/\d{4}-\d{2}-\d{2}/interview_room_[0-9a-f]{8}\.mp4$`,
	)
	require.Regexp(t, keyPattern, file.FileKey)
}

func TestCreateSessionFileStoreFailureReturnsNoURL(t *testing.T) {
	fileStore := newFakeFileStore()
	fileStore.createErr = context.DeadlineExceeded
	svc := newSessionService(newFakeCaseStore(testCase()), fileStore, newFakeObjectStorage())

	resp, err := svc.CreateSession(context.Background(), models.Identity{UserID: "u1"}, models.CreateUploadSessionRequest{
		CaseID:      testCaseID,
		CaptureType: "screenshot",
		FileName:    "shot.png",
		FileType:    "image/png",
	})

	require.Error(t, err)
	require.Nil(t, resp)
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my file (1)", "my_file__1_"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"snímek obrazovky", "sn_mek_obrazovky"},
		{"", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, sanitizeFileName(tt.in))
		})
	}
}

func TestBuildFileKeyUniqueness(t *testing.T) {
	now := time.Now().UTC()

	k1 := buildFileKey(testCaseID, models.CaptureTypeScreenshot, "shot.PNG", now)
	k2 := buildFileKey(testCaseID, models.CaptureTypeScreenshot, "shot.PNG", now)

	require.NotEqual(t, k1, k2)
	require.Contains(t, k1, ".png") // extension lowercased
}
