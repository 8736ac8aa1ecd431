package services

import (
	"context"
	"sync"
	"time"

	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/internal/metrics"
	"github.com/casevault/casevault/store"
)

// ReaperService removes pending upload records whose session deadline has
// passed. It is the only component that deletes pending records.
type ReaperService interface {
	ReapExpired(ctx context.Context) (int, error)
}

type ReaperServiceImpl struct {
	fileStore store.FileStore
	storage   store.ObjectStorage
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger logging.Logger
}

// NewReaperServiceImpl builds the reaper. interval is the background sweep
// period; zero or negative means no background loop, sweeps happen only on
// explicit ReapExpired calls.
func NewReaperServiceImpl(parent context.Context, fileStore store.FileStore, storage store.ObjectStorage, interval time.Duration, l logging.Logger) *ReaperServiceImpl {
	ctx, cancel := context.WithCancel(parent)

	return &ReaperServiceImpl{
		fileStore: fileStore,
		storage:   storage,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		logger:    l,
	}
}

// ReapExpired scans for expired pending records, deletes the storage object
// if one exists (the client may never have uploaded anything, so absence and
// even failure are tolerated), then deletes the record. Returns how many
// records were removed.
func (svc *ReaperServiceImpl) ReapExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	expired, err := svc.fileStore.ScanExpiredPending(ctx, now)
	if err != nil {
		svc.logger.Error("failed to scan for expired uploads", "error", err)
		return 0, err
	}

	reaped := 0
	for _, f := range expired {
		if err := svc.storage.Delete(ctx, f.FileKey); err != nil {
			svc.logger.Warn("failed to delete storage object for expired upload", "file_id", f.FileID, "file_key", f.FileKey, "error", err)
		}

		if err := svc.fileStore.Delete(ctx, f.FileID); err != nil {
			svc.logger.Error("failed to delete expired file record", "file_id", f.FileID, "error", err)
			continue
		}

		reaped++
		svc.logger.Info("expired upload reaped", "file_id", f.FileID, "file_key", f.FileKey, "case_id", f.CaseID)
	}

	metrics.FilesReaped.Add(float64(reaped))
	if len(expired) > 0 {
		svc.logger.Info("reap pass finished", "expired", len(expired), "reaped", reaped)
	}

	return reaped, nil
}

// Start launches the background sweep loop when an interval is configured.
func (svc *ReaperServiceImpl) Start() {
	if svc.interval <= 0 {
		return
	}

	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()

		ticker := time.NewTicker(svc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-svc.ctx.Done():
				return
			case <-ticker.C:
				if _, err := svc.ReapExpired(svc.ctx); err != nil {
					svc.logger.Error("background reap pass failed", "error", err)
				}
			}
		}
	}()
}

func (svc *ReaperServiceImpl) Shutdown(ctx context.Context) error {
	svc.cancel()

	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
