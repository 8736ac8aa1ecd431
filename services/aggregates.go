package services

import (
	"context"
	"time"

	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/store"
)

// CaseAggregateService owns the denormalized statistics on the case record.
// Nothing else writes those fields.
type CaseAggregateService interface {
	RecomputeCaseAggregates(ctx context.Context, caseID string) error
}

type CaseAggregateServiceImpl struct {
	caseStore store.CaseStore
	fileStore store.FileStore

	logger logging.Logger
}

func NewCaseAggregateServiceImpl(caseStore store.CaseStore, fileStore store.FileStore, l logging.Logger) *CaseAggregateServiceImpl {
	return &CaseAggregateServiceImpl{
		caseStore: caseStore,
		fileStore: fileStore,
		logger:    l,
	}
}

// RecomputeCaseAggregates rebuilds the four aggregate fields from scratch as
// a pure reduction over the case's completed files, then overwrites the
// previous snapshot. Rebuilding instead of patching keeps partial failures
// from accumulating drift.
func (svc *CaseAggregateServiceImpl) RecomputeCaseAggregates(ctx context.Context, caseID string) error {
	c, err := svc.caseStore.Get(ctx, caseID)
	if err != nil {
		return err
	}

	files, err := svc.fileStore.ListByCase(ctx, caseID)
	if err != nil {
		return err
	}

	agg := reduceAggregates(c, files)

	if err := svc.caseStore.UpdateAggregates(ctx, caseID, agg, time.Now().UTC()); err != nil {
		return err
	}

	svc.logger.Debug("case aggregates recomputed",
		"case_id", caseID,
		"total_screenshots", agg.TotalScreenshots,
		"total_videos", agg.TotalVideos,
		"total_file_size", agg.TotalFileSize,
	)
	return nil
}

func reduceAggregates(c *models.Case, files []models.CaseFile) models.CaseAggregates {
	agg := models.CaseAggregates{
		// Falls back to the case's own timestamp when no file is completed.
		LastActivity: c.CreatedAt,
	}

	for _, f := range files {
		if f.Status != models.FileStatusCompleted {
			continue
		}

		switch f.CaptureType {
		case models.CaptureTypeScreenshot:
			agg.TotalScreenshots++
		case models.CaptureTypeVideo:
			agg.TotalVideos++
		}

		agg.TotalFileSize += f.FileSize

		if f.UploadedAt.After(agg.LastActivity) {
			agg.LastActivity = f.UploadedAt
		}
	}

	return agg
}
