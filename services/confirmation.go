package services

import (
	"context"
	"fmt"
	"time"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/caching"
	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/internal/metrics"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/store"
)

type UploadConfirmationService interface {
	ConfirmUpload(ctx context.Context, req models.ConfirmUploadRequest) (*models.ConfirmUploadResponse, error)
}

type UploadConfirmationServiceImpl struct {
	fileStore  store.FileStore
	storage    store.ObjectStorage
	aggregates CaseAggregateService
	cachingSvc caching.CachingService

	logger logging.Logger
}

func NewUploadConfirmationServiceImpl(
	fileStore store.FileStore,
	storage store.ObjectStorage,
	aggregates CaseAggregateService,
	cachingSvc caching.CachingService,
	l logging.Logger,
) *UploadConfirmationServiceImpl {
	return &UploadConfirmationServiceImpl{
		fileStore:  fileStore,
		storage:    storage,
		aggregates: aggregates,
		cachingSvc: cachingSvc,
		logger:     l,
	}
}

// ConfirmUpload transitions a pending record to completed, but only after
// verifying the object really landed in storage. The record write is the
// hard part of the operation; aggregate recomputation afterwards is
// best-effort and never fails the confirmation.
func (svc *UploadConfirmationServiceImpl) ConfirmUpload(ctx context.Context, req models.ConfirmUploadRequest) (*models.ConfirmUploadResponse, error) {
	if req.ActualFileSize <= 0 {
		return nil, apperror.Validationf("actualFileSize must be positive")
	}

	file, err := svc.fileStore.Get(ctx, req.FileID)
	if err != nil {
		svc.logger.Warn("confirmation for unknown file", "file_id", req.FileID, "error", err)
		return nil, err
	}

	if file.FileKey != req.FileKey {
		return nil, apperror.Validationf("fileKey does not match the upload session")
	}

	if file.Status != models.FileStatusPending {
		svc.logger.Warn("confirmation for non-pending file", "file_id", req.FileID, "status", file.Status)
		return nil, apperror.ErrInvalidState
	}

	now := time.Now().UTC()
	if file.Expired(now) {
		// Left in place for the reaper; confirmation never deletes.
		svc.logger.Info("confirmation after session expiry", "file_id", req.FileID, "expires_at", file.ExpiresAt)
		return nil, apperror.ErrSessionExpired
	}

	exists, err := svc.storage.Exists(ctx, file.FileKey)
	if err != nil {
		svc.logger.Error("failed to probe storage for upload", "file_id", req.FileID, "file_key", file.FileKey, "error", err)
		return nil, err
	}
	if !exists {
		// The client may retry the raw upload and confirm again.
		svc.logger.Info("confirmation without uploaded object", "file_id", req.FileID, "file_key", file.FileKey)
		return nil, apperror.ErrObjectMissing
	}

	if err := svc.fileStore.MarkCompleted(ctx, req.FileID, req.ActualFileSize, req.Checksum, now); err != nil {
		svc.logger.Error("failed to mark upload completed", "file_id", req.FileID, "error", err)
		return nil, err
	}

	metrics.UploadsConfirmed.Inc()
	svc.logger.Info("upload confirmed",
		"file_id", req.FileID,
		"file_key", file.FileKey,
		"case_id", file.CaseID,
		"file_size", req.ActualFileSize,
	)

	// The record is durably completed; the aggregate self-heals on the next
	// recomputation if this one fails.
	if err := svc.aggregates.RecomputeCaseAggregates(ctx, file.CaseID); err != nil {
		svc.logger.Error("aggregate recomputation failed after confirmation", "case_id", file.CaseID, "error", err)
	}

	if err := svc.cachingSvc.Delete(ctx, caseFilesCacheKey(file.CaseID)); err != nil {
		svc.logger.Error("cached case files invalidation failed", "case_id", file.CaseID, "error", err)
	}

	return &models.ConfirmUploadResponse{
		FileID:  req.FileID,
		FileKey: file.FileKey,
		Message: "upload confirmed",
	}, nil
}

func caseFilesCacheKey(caseID string) string {
	return fmt.Sprintf("case:files:%s", caseID)
}
