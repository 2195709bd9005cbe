package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

// AuditScheduleRepository handles persistence for audit schedules.
type AuditScheduleRepository interface {
	Create(ctx context.Context, schedule *models.AuditSchedule) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.AuditSchedule, error)
}

type auditScheduleRepository struct {
	db *gorm.DB
}

// NewAuditScheduleRepository constructs a repository backed by GORM.
func NewAuditScheduleRepository(db *gorm.DB) AuditScheduleRepository {
	return &auditScheduleRepository{db: db}
}

func (r *auditScheduleRepository) Create(ctx context.Context, schedule *models.AuditSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *auditScheduleRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.AuditSchedule, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var schedules []models.AuditSchedule
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("scheduled_at DESC").
		Limit(limit).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}
