package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

func TestKPIRecordRepositoryClaimPendingIsExclusive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRecordRepository(db)
	ctx := context.Background()

	record := models.KPIRecord{UserID: 1, Period: "2025-06", OverallScore: 72, Rating: "Excellent"}
	require.NoError(t, repo.Create(ctx, &record))

	claimed, err := repo.ClaimPending(ctx, record.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	stored, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, models.AutomationProcessing, stored.AutomationStatus)

	claimed, err = repo.ClaimPending(ctx, record.ID)
	require.NoError(t, err)
	require.False(t, claimed, "a processed record must not be claimable again")
}

func TestKPIRecordRepositoryClaimPendingUnknownID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRecordRepository(db)

	claimed, err := repo.ClaimPending(context.Background(), 404)
	require.NoError(t, err)
	require.False(t, claimed)
}

func TestKPIRecordRepositoryFindActivePrefersNewest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRecordRepository(db)
	ctx := context.Background()

	first := models.KPIRecord{UserID: 7, Period: "2025-06", OverallScore: 40, Rating: "Need Improvement"}
	second := models.KPIRecord{UserID: 7, Period: "2025-06", OverallScore: 68, Rating: "Satisfactory"}
	other := models.KPIRecord{UserID: 7, Period: "2025-05", OverallScore: 90, Rating: "Outstanding"}
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))
	require.NoError(t, repo.Create(ctx, &other))

	active, err := repo.FindActive(ctx, 7, "2025-06")
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)

	_, err = repo.FindActive(ctx, 7, "2025-04")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestKPIRecordRepositoryDeactivateOthers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRecordRepository(db)
	ctx := context.Background()

	stale := models.KPIRecord{UserID: 3, Period: "2025-06", OverallScore: 55, Rating: "Satisfactory"}
	kept := models.KPIRecord{UserID: 3, Period: "2025-06", OverallScore: 61, Rating: "Satisfactory"}
	unrelated := models.KPIRecord{UserID: 4, Period: "2025-06", OverallScore: 80, Rating: "Excellent"}
	require.NoError(t, repo.Create(ctx, &stale))
	require.NoError(t, repo.Create(ctx, &kept))
	require.NoError(t, repo.Create(ctx, &unrelated))

	require.NoError(t, repo.DeactivateOthers(ctx, 3, "2025-06", kept.ID))

	active, err := repo.FindActive(ctx, 3, "2025-06")
	require.NoError(t, err)
	require.Equal(t, kept.ID, active.ID)

	staleRow, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	require.False(t, staleRow.Active)

	otherRow, err := repo.FindByID(ctx, unrelated.ID)
	require.NoError(t, err)
	require.True(t, otherRow.Active, "other users must be untouched")
}

func TestKPIRecordRepositoryListPendingSkipsInactiveAndClaimed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRecordRepository(db)
	ctx := context.Background()

	pending := models.KPIRecord{UserID: 1, Period: "2025-06", OverallScore: 30, Rating: "Unsatisfactory"}
	claimed := models.KPIRecord{UserID: 2, Period: "2025-06", OverallScore: 45, Rating: "Need Improvement"}
	inactive := models.KPIRecord{UserID: 3, Period: "2025-06", OverallScore: 50, Rating: "Satisfactory"}
	require.NoError(t, repo.Create(ctx, &pending))
	require.NoError(t, repo.Create(ctx, &claimed))
	require.NoError(t, repo.Create(ctx, &inactive))

	ok, err := repo.ClaimPending(ctx, claimed.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.DeactivateOthers(ctx, 3, "2025-06", 0))

	records, err := repo.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, pending.ID, records[0].ID)
}

func TestKPIRecordRepositoryListByUserOrdersByPeriod(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRecordRepository(db)
	ctx := context.Background()

	for _, period := range []string{"2025-04", "2025-06", "2025-05"} {
		record := models.KPIRecord{UserID: 9, Period: period, OverallScore: 70, Rating: "Excellent"}
		require.NoError(t, repo.Create(ctx, &record))
	}

	records, err := repo.ListByUser(ctx, 9, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "2025-06", records[0].Period)
	require.Equal(t, "2025-05", records[1].Period)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.KPIRecord{}, &models.User{}))
	return db
}
