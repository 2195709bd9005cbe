package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

// EmailLogRepository handles persistence for email dispatch logs.
type EmailLogRepository interface {
	Create(ctx context.Context, log *models.EmailDispatchLog) error
	Update(ctx context.Context, log *models.EmailDispatchLog) error
	ListRetryable(ctx context.Context, limit int) ([]models.EmailDispatchLog, error)
	ListByKPIRecord(ctx context.Context, kpiRecordID uint) ([]models.EmailDispatchLog, error)
}

type emailLogRepository struct {
	db *gorm.DB
}

// NewEmailLogRepository constructs a repository backed by GORM.
func NewEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &emailLogRepository{db: db}
}

func (r *emailLogRepository) Create(ctx context.Context, log *models.EmailDispatchLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *emailLogRepository) Update(ctx context.Context, log *models.EmailDispatchLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

func (r *emailLogRepository) ListRetryable(ctx context.Context, limit int) ([]models.EmailDispatchLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.EmailDispatchLog
	if err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", models.EmailFailed).
		Order("updated_at ASC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *emailLogRepository) ListByKPIRecord(ctx context.Context, kpiRecordID uint) ([]models.EmailDispatchLog, error) {
	var logs []models.EmailDispatchLog
	if err := r.db.WithContext(ctx).
		Where("kpi_record_id = ?", kpiRecordID).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
