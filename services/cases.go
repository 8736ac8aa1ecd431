package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/store"
)

type CaseService interface {
	CreateCase(ctx context.Context, identity models.Identity, req models.CreateCaseRequest) (*models.Case, error)
	GetCase(ctx context.Context, caseID string) (*models.Case, error)
	ListCases(ctx context.Context) ([]models.Case, error)
}

type CaseServiceImpl struct {
	caseStore store.CaseStore

	logger logging.Logger
}

func NewCaseServiceImpl(caseStore store.CaseStore, l logging.Logger) *CaseServiceImpl {
	return &CaseServiceImpl{
		caseStore: caseStore,
		logger:    l,
	}
}

func (svc *CaseServiceImpl) CreateCase(ctx context.Context, identity models.Identity, req models.CreateCaseRequest) (*models.Case, error) {
	now := time.Now().UTC()

	c := models.Case{
		CaseID:       newCaseID(now),
		Title:        req.Title,
		Description:  req.Description,
		CreatedBy:    identity.UserID,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := svc.caseStore.Create(ctx, c); err != nil {
		svc.logger.Error("failed to create case", "case_id", c.CaseID, "error", err)
		return nil, err
	}

	svc.logger.Info("case created", "case_id", c.CaseID, "created_by", identity.UserID)
	return &c, nil
}

func (svc *CaseServiceImpl) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	return svc.caseStore.Get(ctx, caseID)
}

func (svc *CaseServiceImpl) ListCases(ctx context.Context) ([]models.Case, error) {
	return svc.caseStore.List(ctx)
}

// newCaseID produces ids like Case-2024010100421: the creation date plus a
// random five-digit discriminator.
func newCaseID(now time.Time) string {
	return fmt.Sprintf("Case-%s%05d", now.Format("20060102"), rand.Intn(100000))
}
