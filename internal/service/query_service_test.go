package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

func newQueryFixture(t *testing.T) (*gorm.DB, *miniredis.Miniredis, QueryService) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := openTestDB(t)
	svc := NewQueryService(
		repository.NewKPIRecordRepository(db),
		repository.NewTrainingRepository(db),
		repository.NewAuditScheduleRepository(db),
		NewIdentityService(repository.NewUserRepository(db), zerolog.Nop()),
		redisClient,
		time.Minute,
		zerolog.Nop(),
	)
	return db, mini, svc
}

func TestPendingTriggersListsPendingRecordsOnly(t *testing.T) {
	db, _, svc := newQueryFixture(t)

	records := []models.KPIRecord{
		{UserID: 1, Period: "2025-06", OverallScore: 45, Rating: RatingNeedImprovement, AutomationStatus: models.AutomationPending, Active: true},
		{UserID: 2, Period: "2025-06", OverallScore: 80, Rating: RatingExcellent, AutomationStatus: models.AutomationCompleted, Active: true},
		{UserID: 3, Period: "2025-06", OverallScore: 30, Rating: RatingUnsatisfactory, AutomationStatus: models.AutomationPending, Active: true},
	}
	for i := range records {
		require.NoError(t, db.Create(&records[i]).Error)
	}

	pending, err := svc.PendingTriggers(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, record := range pending {
		require.Equal(t, models.AutomationPending, record.AutomationStatus)
	}
}

func TestTriggerHistoryCollectsLinkedRecords(t *testing.T) {
	db, _, svc := newQueryFixture(t)

	user := models.User{Name: "Agent", Email: "agent@example.com", EmployeeCode: "EMP-001", Role: models.RoleAgent, Active: true}
	require.NoError(t, db.Create(&user).Error)

	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.KPIRecord{UserID: user.ID, Period: "2025-06", OverallScore: 45, Rating: RatingNeedImprovement, AutomationStatus: models.AutomationCompleted, Active: true}).Error)
	require.NoError(t, db.Create(&models.TrainingAssignment{UserID: user.ID, TrainingType: TrainingBasicSkills, AssignedAt: now, DueAt: now.AddDate(0, 0, 14), Status: models.TrainingAssigned, Priority: "high", Reason: "low score"}).Error)
	require.NoError(t, db.Create(&models.AuditSchedule{UserID: user.ID, AuditType: AuditExtendedHistory, ScheduledAt: now, ScheduledDate: now.AddDate(0, 0, 7), Status: models.AuditScheduled, Priority: "high", Reason: "low score"}).Error)

	history, err := svc.TriggerHistory(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Equal(t, user.ID, history.UserID)
	require.Len(t, history.Records, 1)
	require.Len(t, history.Trainings, 1)
	require.Len(t, history.Audits, 1)
	require.Equal(t, TrainingBasicSkills, history.Trainings[0].TrainingType)
}

func TestTriggerHistoryServesFromCache(t *testing.T) {
	db, _, svc := newQueryFixture(t)

	user := models.User{Name: "Agent", Email: "agent@example.com", EmployeeCode: "EMP-001", Role: models.RoleAgent, Active: true}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.KPIRecord{UserID: user.ID, Period: "2025-06", OverallScore: 72, Rating: RatingExcellent, AutomationStatus: models.AutomationCompleted, Active: true}).Error)

	first, err := svc.TriggerHistory(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, first.Records, 1)

	// A record written after the cache fill is invisible until TTL or
	// invalidation.
	require.NoError(t, db.Create(&models.KPIRecord{UserID: user.ID, Period: "2025-05", OverallScore: 60, Rating: RatingSatisfactory, AutomationStatus: models.AutomationCompleted, Active: true}).Error)

	cached, err := svc.TriggerHistory(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, cached.Records, 1)

	svc.InvalidateHistory(context.Background(), user.ID)

	fresh, err := svc.TriggerHistory(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, fresh.Records, 2)
}

func TestTriggerHistoryExpiresWithTTL(t *testing.T) {
	db, mini, svc := newQueryFixture(t)

	user := models.User{Name: "Agent", Email: "agent@example.com", EmployeeCode: "EMP-001", Role: models.RoleAgent, Active: true}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.KPIRecord{UserID: user.ID, Period: "2025-06", OverallScore: 72, Rating: RatingExcellent, AutomationStatus: models.AutomationCompleted, Active: true}).Error)

	_, err := svc.TriggerHistory(context.Background(), user.ID, 0)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.KPIRecord{UserID: user.ID, Period: "2025-05", OverallScore: 60, Rating: RatingSatisfactory, AutomationStatus: models.AutomationCompleted, Active: true}).Error)

	mini.FastForward(2 * time.Minute)

	fresh, err := svc.TriggerHistory(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, fresh.Records, 2)
}

func TestTriggerHistoryUnknownUser(t *testing.T) {
	_, _, svc := newQueryFixture(t)

	_, err := svc.TriggerHistory(context.Background(), 404, 10)
	require.ErrorIs(t, err, ErrUserNotFound)
}
