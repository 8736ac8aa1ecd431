package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/store"
)

var (
	_ store.CaseStore      = (*fakeCaseStore)(nil)
	_ store.FileStore      = (*fakeFileStore)(nil)
	_ store.ObjectStorage  = (*fakeObjectStorage)(nil)
	_ CaseAggregateService = (*fakeAggregateService)(nil)
)

type fakeCaseStore struct {
	mu    sync.Mutex
	cases map[string]models.Case

	updateErr error
}

func newFakeCaseStore(cases ...models.Case) *fakeCaseStore {
	s := &fakeCaseStore{cases: make(map[string]models.Case)}
	for _, c := range cases {
		s.cases[c.CaseID] = c
	}
	return s
}

func (s *fakeCaseStore) Create(ctx context.Context, c models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.CaseID]; ok {
		return apperror.ErrDuplicateFile
	}
	s.cases[c.CaseID] = c
	return nil
}

func (s *fakeCaseStore) Get(ctx context.Context, caseID string) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, apperror.ErrCaseNotFound
	}
	out := c
	return &out, nil
}

func (s *fakeCaseStore) Exists(ctx context.Context, caseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cases[caseID]
	return ok, nil
}

func (s *fakeCaseStore) List(ctx context.Context) ([]models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeCaseStore) UpdateAggregates(ctx context.Context, caseID string, agg models.CaseAggregates, updatedAt time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return apperror.ErrCaseNotFound
	}
	c.TotalScreenshots = agg.TotalScreenshots
	c.TotalVideos = agg.TotalVideos
	c.TotalFileSize = agg.TotalFileSize
	c.LastActivity = agg.LastActivity
	c.UpdatedAt = updatedAt
	s.cases[caseID] = c
	return nil
}

func (s *fakeCaseStore) IsReady(ctx context.Context) error { return nil }
func (s *fakeCaseStore) Name() string                      { return "fakeCaseStore" }

type fakeFileStore struct {
	mu    sync.Mutex
	files map[string]models.CaseFile

	createErr error
	listErr   error
	scanErr   error
}

func newFakeFileStore(files ...models.CaseFile) *fakeFileStore {
	s := &fakeFileStore{files: make(map[string]models.CaseFile)}
	for _, f := range files {
		s.files[f.FileID] = f
	}
	return s
}

func (s *fakeFileStore) Create(ctx context.Context, file models.CaseFile) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[file.FileID]; ok {
		return apperror.ErrDuplicateFile
	}
	s.files[file.FileID] = file
	return nil
}

func (s *fakeFileStore) Get(ctx context.Context, fileID string) (*models.CaseFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return nil, apperror.ErrFileNotFound
	}
	out := f
	return &out, nil
}

func (s *fakeFileStore) GetByKey(ctx context.Context, fileKey string) (*models.CaseFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.FileKey == fileKey {
			out := f
			return &out, nil
		}
	}
	return nil, apperror.ErrFileNotFound
}

func (s *fakeFileStore) ListByCase(ctx context.Context, caseID string) ([]models.CaseFile, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CaseFile
	for _, f := range s.files {
		if f.CaseID == caseID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeFileStore) MarkCompleted(ctx context.Context, fileID string, fileSize int64, checksum string, uploadedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok || f.Status != models.FileStatusPending {
		return apperror.ErrInvalidState
	}
	f.Status = models.FileStatusCompleted
	f.FileSize = fileSize
	f.UploadedAt = uploadedAt
	if checksum != "" {
		f.Checksum = checksum
	}
	s.files[fileID] = f
	return nil
}

func (s *fakeFileStore) Delete(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[fileID]; !ok {
		return apperror.ErrFileNotFound
	}
	delete(s.files, fileID)
	return nil
}

func (s *fakeFileStore) ScanExpiredPending(ctx context.Context, now time.Time) ([]models.CaseFile, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CaseFile
	for _, f := range s.files {
		if f.Status == models.FileStatusPending && now.After(f.ExpiresAt) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeFileStore) ScanCompletedSince(ctx context.Context, since time.Time) ([]models.CaseFile, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CaseFile
	for _, f := range s.files {
		if f.Status == models.FileStatusCompleted && !f.UploadedAt.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeFileStore) IsReady(ctx context.Context) error { return nil }
func (s *fakeFileStore) Name() string                      { return "fakeFileStore" }

func (s *fakeFileStore) get(fileID string) (models.CaseFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	return f, ok
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string]bool
	deleted []string

	signErr      error
	deleteErr    error
	failSignKeys map[string]bool
}

func newFakeObjectStorage(keys ...string) *fakeObjectStorage {
	s := &fakeObjectStorage{objects: make(map[string]bool)}
	for _, k := range keys {
		s.objects[k] = true
	}
	return s
}

func (s *fakeObjectStorage) PresignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return fmt.Sprintf("https://storage.test/upload/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (s *fakeObjectStorage) PresignDownload(ctx context.Context, key string, ttl time.Duration, responseFilename string) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	if s.failSignKeys[key] {
		return "", fmt.Errorf("signing failed for %s", key)
	}
	return fmt.Sprintf("https://storage.test/download/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (s *fakeObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key], nil
}

func (s *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeAggregateService struct {
	mu      sync.Mutex
	calls   []string
	nextErr error
}

func (s *fakeAggregateService) RecomputeCaseAggregates(ctx context.Context, caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, caseID)
	return s.nextErr
}

func (s *fakeAggregateService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
