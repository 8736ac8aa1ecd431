package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/internal/metrics"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/store"
)

// MIME allow-lists per capture type.
var allowedFileTypes = map[models.CaptureType]map[string]bool{
	models.CaptureTypeScreenshot: {
		"image/png":  true,
		"image/jpeg": true,
		"image/webp": true,
	},
	models.CaptureTypeVideo: {
		"video/mp4":       true,
		"video/webm":      true,
		"video/quicktime": true,
	},
}

type UploadSessionService interface {
	CreateSession(ctx context.Context, identity models.Identity, req models.CreateUploadSessionRequest) (*models.UploadSessionResponse, error)
}

type UploadSessionServiceImpl struct {
	caseStore   store.CaseStore
	fileStore   store.FileStore
	storage     store.ObjectStorage
	uploadTTL   time.Duration
	maxFileSize int64

	logger logging.Logger
}

func NewUploadSessionServiceImpl(
	caseStore store.CaseStore,
	fileStore store.FileStore,
	storage store.ObjectStorage,
	uploadTTL time.Duration,
	maxFileSize int64,
	l logging.Logger,
) *UploadSessionServiceImpl {
	return &UploadSessionServiceImpl{
		caseStore:   caseStore,
		fileStore:   fileStore,
		storage:     storage,
		uploadTTL:   uploadTTL,
		maxFileSize: maxFileSize,
		logger:      l,
	}
}

// CreateSession validates the request, signs an upload URL scoped to a fresh
// storage key, and writes the pending file record. The URL is signed before
// the metadata write; if the write fails the caller gets an error and the URL
// never leaves this function, so no credential exists without a record.
func (svc *UploadSessionServiceImpl) CreateSession(ctx context.Context, identity models.Identity, req models.CreateUploadSessionRequest) (*models.UploadSessionResponse, error) {
	captureType, err := models.ParseCaptureType(req.CaptureType)
	if err != nil {
		return nil, apperror.Validationf("captureType must be one of: screenshot, video")
	}

	if !allowedFileTypes[captureType][req.FileType] {
		return nil, apperror.Validationf("file type %q is not allowed for capture type %q", req.FileType, captureType)
	}

	if req.FileSize > svc.maxFileSize {
		return nil, apperror.Validationf("file size %d exceeds the maximum of %d bytes", req.FileSize, svc.maxFileSize)
	}
	if req.FileSize < 0 {
		return nil, apperror.Validationf("file size cannot be negative")
	}

	exists, err := svc.caseStore.Exists(ctx, req.CaseID)
	if err != nil {
		svc.logger.Error("failed to check case existence", "case_id", req.CaseID, "error", err)
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrCaseNotFound
	}

	now := time.Now().UTC()
	fileID := uuid.NewString()
	fileKey := buildFileKey(req.CaseID, captureType, req.FileName, now)

	uploadURL, err := svc.storage.PresignUpload(ctx, fileKey, req.FileType, svc.uploadTTL)
	if err != nil {
		svc.logger.Error("failed to presign upload url", "case_id", req.CaseID, "file_key", fileKey, "error", err)
		return nil, err
	}

	file := models.CaseFile{
		FileID:       fileID,
		FileKey:      fileKey,
		FileName:     path.Base(fileKey),
		OriginalName: req.FileName,
		FileType:     req.FileType,
		FileSize:     req.FileSize,
		CaseID:       req.CaseID,
		CaptureType:  captureType,
		UploadedBy:   identity.UserID,
		Status:       models.FileStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(svc.uploadTTL),
	}

	if err := svc.fileStore.Create(ctx, file); err != nil {
		svc.logger.Error("failed to create pending file record", "case_id", req.CaseID, "file_id", fileID, "error", err)
		return nil, err
	}

	metrics.SessionsCreated.Inc()
	svc.logger.Info("upload session created",
		"case_id", req.CaseID,
		"file_id", fileID,
		"file_key", fileKey,
		"capture_type", captureType,
		"uploaded_by", identity.UserID,
	)

	return &models.UploadSessionResponse{
		UploadURL: uploadURL,
		FileKey:   fileKey,
		FileID:    fileID,
		ExpiresIn: int64(svc.uploadTTL.Seconds()),
	}, nil
}

// buildFileKey derives the storage key: case id, capture type, upload date,
// sanitized file name and a random suffix before the extension.
// Example: Case-2024010100001/screenshot/2024-01-01/report_a1b2c3d4.png
func buildFileKey(caseID string, captureType models.CaptureType, fileName string, now time.Time) string {
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	return fmt.Sprintf("%s/%s/%s/%s_%s%s",
		caseID,
		captureType,
		now.Format("2006-01-02"),
		sanitizeFileName(base),
		suffix,
		strings.ToLower(ext),
	)
}

// sanitizeFileName keeps [A-Za-z0-9._-] and replaces everything else with an
// underscore so the key is safe for storage paths and URLs.
func sanitizeFileName(name string) string {
	if name == "" {
		return "file"
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
