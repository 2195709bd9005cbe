package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

// ActivityRepository is the activity read store: per-user source records
// within a date range, plus the single recent-activity capability the
// near-real-time cadence scans with.
type ActivityRepository interface {
	WorkRecordsInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.WorkRecord, error)
	NeighborChecksInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.NeighborCheck, error)
	AppSessionsInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.AppSession, error)
	UsersWithRecentActivity(ctx context.Context, since time.Time) ([]uint, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs a repository backed by GORM.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) WorkRecordsInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.WorkRecord, error) {
	var records []models.WorkRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND processed_at BETWEEN ? AND ?", userID, from, to).
		Order("processed_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *activityRepository) NeighborChecksInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.NeighborCheck, error) {
	var checks []models.NeighborCheck
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND assigned_at BETWEEN ? AND ?", userID, from, to).
		Order("assigned_at ASC").
		Find(&checks).Error; err != nil {
		return nil, err
	}
	return checks, nil
}

func (r *activityRepository) AppSessionsInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.AppSession, error) {
	var sessions []models.AppSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND occurred_at BETWEEN ? AND ?", userID, from, to).
		Order("occurred_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// UsersWithRecentActivity unions the three activity sources into one
// distinct user id list, so callers never touch the source tables directly.
func (r *activityRepository) UsersWithRecentActivity(ctx context.Context, since time.Time) ([]uint, error) {
	seen := make(map[uint]struct{})
	var ordered []uint

	collect := func(ids []uint) {
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ordered = append(ordered, id)
			}
		}
	}

	var workUsers []uint
	if err := r.db.WithContext(ctx).
		Model(&models.WorkRecord{}).
		Where("processed_at >= ?", since).
		Distinct().
		Order("user_id ASC").
		Pluck("user_id", &workUsers).Error; err != nil {
		return nil, err
	}
	collect(workUsers)

	var checkUsers []uint
	if err := r.db.WithContext(ctx).
		Model(&models.NeighborCheck{}).
		Where("assigned_at >= ? OR completed_at >= ?", since, since).
		Distinct().
		Order("user_id ASC").
		Pluck("user_id", &checkUsers).Error; err != nil {
		return nil, err
	}
	collect(checkUsers)

	var sessionUsers []uint
	if err := r.db.WithContext(ctx).
		Model(&models.AppSession{}).
		Where("occurred_at >= ?", since).
		Distinct().
		Order("user_id ASC").
		Pluck("user_id", &sessionUsers).Error; err != nil {
		return nil, err
	}
	collect(sessionUsers)

	return ordered, nil
}
