package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/caching"
	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/internal/metrics"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/store"
)

const (
	maxListLimit      = 100
	recentUploadCount = 10
	listCacheTTL      = 5 * time.Minute
)

type FileService interface {
	ListCaseFiles(ctx context.Context, caseID string, q models.ListCaseFilesQuery) (*models.FileListResponse, error)
	DeleteFile(ctx context.Context, fileKey string) error
	GetDownloadURL(ctx context.Context, fileKey string, expiresIn time.Duration, asAttachment bool, filename string) (*models.DownloadURLResponse, error)
	UploadStats(ctx context.Context, q models.UploadStatsQuery) (*models.UploadStatsResponse, error)
	CompletedCaseFiles(ctx context.Context, caseID string) ([]models.CaseFile, error)
}

type FileServiceImpl struct {
	fileStore   store.FileStore
	caseStore   store.CaseStore
	storage     store.ObjectStorage
	aggregates  CaseAggregateService
	cachingSvc  caching.CachingService
	downloadTTL time.Duration
	maxTTL      time.Duration

	logger logging.Logger
}

func NewFileServiceImpl(
	fileStore store.FileStore,
	caseStore store.CaseStore,
	storage store.ObjectStorage,
	aggregates CaseAggregateService,
	cachingSvc caching.CachingService,
	downloadTTL time.Duration,
	maxTTL time.Duration,
	l logging.Logger,
) *FileServiceImpl {
	return &FileServiceImpl{
		fileStore:   fileStore,
		caseStore:   caseStore,
		storage:     storage,
		aggregates:  aggregates,
		cachingSvc:  cachingSvc,
		downloadTTL: downloadTTL,
		maxTTL:      maxTTL,
		logger:      l,
	}
}

// ListCaseFiles returns the completed files of a case, filtered, sorted and
// paginated, each carrying a freshly signed download URL. URLs are never
// cached or persisted; only the record set is cached.
func (svc *FileServiceImpl) ListCaseFiles(ctx context.Context, caseID string, q models.ListCaseFilesQuery) (*models.FileListResponse, error) {
	exists, err := svc.caseStore.Exists(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrCaseNotFound
	}

	files, err := svc.completedFiles(ctx, caseID)
	if err != nil {
		return nil, err
	}

	summary := models.FileListSummary{}
	for _, f := range files {
		switch f.CaptureType {
		case models.CaptureTypeScreenshot:
			summary.TotalScreenshots++
		case models.CaptureTypeVideo:
			summary.TotalVideos++
		}
		summary.TotalFileSize += f.FileSize
	}

	if q.CaptureType != "" {
		captureType, err := models.ParseCaptureType(q.CaptureType)
		if err != nil {
			return nil, apperror.Validationf("captureType must be one of: screenshot, video")
		}
		filtered := files[:0]
		for _, f := range files {
			if f.CaptureType == captureType {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}

	if err := sortFiles(files, q.SortBy, q.SortOrder); err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	total := len(files)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	pageFiles := files[start:end]

	listed := make([]models.ListedFile, 0, len(pageFiles))
	for _, f := range pageFiles {
		entry := models.ListedFile{CaseFile: f}

		url, err := svc.storage.PresignDownload(ctx, f.FileKey, svc.downloadTTL, "")
		if err != nil {
			// One bad signature must not fail the whole listing.
			svc.logger.Warn("failed to sign download url for listing", "file_id", f.FileID, "file_key", f.FileKey, "error", err)
		} else {
			entry.DownloadURL = url
		}

		listed = append(listed, entry)
	}

	return &models.FileListResponse{
		Files: listed,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: totalPages,
		},
		Summary: summary,
	}, nil
}

// DeleteFile removes a completed file by storage key. The storage object goes
// first: if that fails, the metadata record survives as evidence of an object
// that may still need cleanup.
func (svc *FileServiceImpl) DeleteFile(ctx context.Context, fileKey string) error {
	file, err := svc.fileStore.GetByKey(ctx, fileKey)
	if err != nil {
		return err
	}

	if err := svc.storage.Delete(ctx, fileKey); err != nil {
		svc.logger.Error("failed to delete storage object", "file_key", fileKey, "error", err)
		return err
	}

	if err := svc.fileStore.Delete(ctx, file.FileID); err != nil {
		svc.logger.Error("failed to delete file record", "file_id", file.FileID, "error", err)
		return err
	}

	metrics.FilesDeleted.Inc()
	svc.logger.Info("file deleted", "file_id", file.FileID, "file_key", fileKey, "case_id", file.CaseID)

	if err := svc.aggregates.RecomputeCaseAggregates(ctx, file.CaseID); err != nil {
		svc.logger.Error("aggregate recomputation failed after deletion", "case_id", file.CaseID, "error", err)
	}

	if err := svc.cachingSvc.Delete(ctx, caseFilesCacheKey(file.CaseID)); err != nil {
		svc.logger.Error("cached case files invalidation failed", "case_id", file.CaseID, "error", err)
	}

	return nil
}

// GetDownloadURL signs a fresh, time-limited URL for one completed file.
func (svc *FileServiceImpl) GetDownloadURL(ctx context.Context, fileKey string, expiresIn time.Duration, asAttachment bool, filename string) (*models.DownloadURLResponse, error) {
	file, err := svc.fileStore.GetByKey(ctx, fileKey)
	if err != nil {
		return nil, err
	}
	if file.Status != models.FileStatusCompleted {
		return nil, apperror.ErrFileNotFound
	}

	ttl := expiresIn
	if ttl <= 0 {
		ttl = svc.downloadTTL
	}
	if ttl > svc.maxTTL {
		ttl = svc.maxTTL
	}

	responseFilename := ""
	if asAttachment {
		responseFilename = filename
		if responseFilename == "" {
			responseFilename = file.OriginalName
		}
	}

	url, err := svc.storage.PresignDownload(ctx, fileKey, ttl, responseFilename)
	if err != nil {
		svc.logger.Error("failed to sign download url", "file_key", fileKey, "error", err)
		return nil, err
	}

	return &models.DownloadURLResponse{
		DownloadURL: url,
		FileName:    file.OriginalName,
		FileSize:    file.FileSize,
	}, nil
}

// UploadStats aggregates completed uploads over a trailing window, scoped to
// one case when a caseId is given.
func (svc *FileServiceImpl) UploadStats(ctx context.Context, q models.UploadStatsQuery) (*models.UploadStatsResponse, error) {
	days := q.Days
	if days < 1 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var files []models.CaseFile
	var err error
	if q.CaseID != "" {
		files, err = svc.completedFiles(ctx, q.CaseID)
	} else {
		files, err = svc.fileStore.ScanCompletedSince(ctx, since)
	}
	if err != nil {
		return nil, err
	}

	windowed := files[:0]
	for _, f := range files {
		if f.Status == models.FileStatusCompleted && !f.UploadedAt.Before(since) {
			windowed = append(windowed, f)
		}
	}
	files = windowed

	resp := &models.UploadStatsResponse{
		TotalFiles: len(files),
		Since:      since,
	}
	daily := map[string]*models.DailyUploadStats{}

	for _, f := range files {
		switch f.CaptureType {
		case models.CaptureTypeScreenshot:
			resp.TotalScreenshots++
		case models.CaptureTypeVideo:
			resp.TotalVideos++
		}
		resp.TotalFileSize += f.FileSize

		if q.Detailed {
			day := f.UploadedAt.Format("2006-01-02")
			d, ok := daily[day]
			if !ok {
				d = &models.DailyUploadStats{Date: day}
				daily[day] = d
			}
			if f.CaptureType == models.CaptureTypeScreenshot {
				d.Screenshots++
			} else {
				d.Videos++
			}
			d.TotalSize += f.FileSize
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	if len(files) > recentUploadCount {
		resp.RecentUploads = append([]models.CaseFile(nil), files[:recentUploadCount]...)
	} else {
		resp.RecentUploads = append([]models.CaseFile(nil), files...)
	}

	if q.Detailed {
		for _, d := range daily {
			resp.Daily = append(resp.Daily, *d)
		}
		sort.Slice(resp.Daily, func(i, j int) bool {
			return resp.Daily[i].Date < resp.Daily[j].Date
		})
	}

	return resp, nil
}

// CompletedCaseFiles is the export surface: the full completed set ordered by
// creation time.
func (svc *FileServiceImpl) CompletedCaseFiles(ctx context.Context, caseID string) ([]models.CaseFile, error) {
	exists, err := svc.caseStore.Exists(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrCaseNotFound
	}

	files, err := svc.completedFiles(ctx, caseID)
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.Before(files[j].CreatedAt)
	})
	return files, nil
}

// completedFiles fetches a case's completed file records, consulting the
// cache first. A cache failure is just a miss.
func (svc *FileServiceImpl) completedFiles(ctx context.Context, caseID string) ([]models.CaseFile, error) {
	key := caseFilesCacheKey(caseID)

	if cached, err := svc.cachingSvc.Get(ctx, key); err == nil {
		var files []models.CaseFile
		if err := json.Unmarshal(cached, &files); err == nil {
			return files, nil
		}
		svc.logger.Warn("corrupt cache entry dropped", "case_id", caseID)
		_ = svc.cachingSvc.Delete(ctx, key)
	} else if !errors.Is(err, caching.ErrCacheMiss) {
		svc.logger.Warn("cache read failed", "case_id", caseID, "error", err)
	}

	all, err := svc.fileStore.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	files := make([]models.CaseFile, 0, len(all))
	for _, f := range all {
		if f.Status == models.FileStatusCompleted {
			files = append(files, f)
		}
	}

	if encoded, err := json.Marshal(files); err == nil {
		if err := svc.cachingSvc.Set(ctx, key, encoded, listCacheTTL); err != nil {
			svc.logger.Warn("cache write failed", "case_id", caseID, "error", err)
		}
	}

	return files, nil
}

func sortFiles(files []models.CaseFile, sortBy, sortOrder string) error {
	desc := true
	switch strings.ToLower(sortOrder) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return apperror.Validationf("sortOrder must be asc or desc")
	}

	var less func(a, b models.CaseFile) bool
	switch sortBy {
	case "", "createdAt":
		less = func(a, b models.CaseFile) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "uploadedAt":
		less = func(a, b models.CaseFile) bool { return a.UploadedAt.Before(b.UploadedAt) }
	case "fileName":
		less = func(a, b models.CaseFile) bool { return a.FileName < b.FileName }
	case "fileSize":
		less = func(a, b models.CaseFile) bool { return a.FileSize < b.FileSize }
	default:
		return apperror.Validationf("sortBy must be one of: createdAt, uploadedAt, fileName, fileSize")
	}

	sort.SliceStable(files, func(i, j int) bool {
		if desc {
			return less(files[j], files[i])
		}
		return less(files[i], files[j])
	})
	return nil
}
