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

func TestCreateCaseRecordsCreator(t *testing.T) {
	caseStore := newFakeCaseStore()
	svc := NewCaseServiceImpl(caseStore, logging.NewNopLogger())

	created, err := svc.CreateCase(context.Background(), models.Identity{UserID: "investigator-7"}, models.CreateCaseRequest{
		Title:       "Warehouse incident",
		Description: "CCTV and photos from the loading dock",
	})
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^Case-\d{8}\d{5}$`), created.CaseID)
	require.Equal(t, "investigator-7", created.CreatedBy)
	require.False(t, created.CreatedAt.IsZero())
	require.Equal(t, created.CreatedAt, created.LastActivity)

	stored, err := caseStore.Get(context.Background(), created.CaseID)
	require.NoError(t, err)
	require.Equal(t, "Warehouse incident", stored.Title)
}

func TestGetCaseUnknown(t *testing.T) {
	svc := NewCaseServiceImpl(newFakeCaseStore(), logging.NewNopLogger())

	_, err := svc.GetCase(context.Background(), "Case-2099123100000")
	require.ErrorIs(t, err, apperror.ErrCaseNotFound)
}

func TestNewCaseIDEmbedsDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	id := newCaseID(now)
	require.Regexp(t, regexp.MustCompile(`^Case-20240315\d{5}$`), id)
}
