package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

// KPIRecordRepository handles persistence for KPI records. All writers go
// through FindActive + Create/Update so the one-active-record-per-(user,
// period) invariant holds; ClaimPending is the conditional state transition
// that guards trigger execution.
type KPIRecordRepository interface {
	Create(ctx context.Context, record *models.KPIRecord) error
	Update(ctx context.Context, record *models.KPIRecord) error
	FindByID(ctx context.Context, id uint) (models.KPIRecord, error)
	FindActive(ctx context.Context, userID uint, period string) (models.KPIRecord, error)
	ClaimPending(ctx context.Context, id uint) (bool, error)
	SetStatus(ctx context.Context, id uint, status string) error
	ListPending(ctx context.Context, limit int) ([]models.KPIRecord, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.KPIRecord, error)
	DeactivateOthers(ctx context.Context, userID uint, period string, keepID uint) error
}

type kpiRecordRepository struct {
	db *gorm.DB
}

// NewKPIRecordRepository constructs a repository backed by GORM.
func NewKPIRecordRepository(db *gorm.DB) KPIRecordRepository {
	return &kpiRecordRepository{db: db}
}

func (r *kpiRecordRepository) Create(ctx context.Context, record *models.KPIRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *kpiRecordRepository) Update(ctx context.Context, record *models.KPIRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *kpiRecordRepository) FindByID(ctx context.Context, id uint) (models.KPIRecord, error) {
	var record models.KPIRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.KPIRecord{}, err
	}
	return record, nil
}

func (r *kpiRecordRepository) FindActive(ctx context.Context, userID uint, period string) (models.KPIRecord, error) {
	var record models.KPIRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND period = ? AND active = ?", userID, period, true).
		Order("id DESC").
		First(&record).Error; err != nil {
		return models.KPIRecord{}, err
	}
	return record, nil
}

// ClaimPending flips a record from pending to processing. The WHERE clause
// re-reads the status at update time, so when two cadences race for the same
// record only one claim reports success.
func (r *kpiRecordRepository) ClaimPending(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.KPIRecord{}).
		Where("id = ? AND automation_status = ?", id, models.AutomationPending).
		Update("automation_status", models.AutomationProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *kpiRecordRepository) SetStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.KPIRecord{}).
		Where("id = ?", id).
		Update("automation_status", status).Error
}

func (r *kpiRecordRepository) ListPending(ctx context.Context, limit int) ([]models.KPIRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var records []models.KPIRecord
	if err := r.db.WithContext(ctx).
		Where("automation_status = ? AND active = ?", models.AutomationPending, true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *kpiRecordRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.KPIRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 12
	}

	var records []models.KPIRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period DESC, id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *kpiRecordRepository) DeactivateOthers(ctx context.Context, userID uint, period string, keepID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.KPIRecord{}).
		Where("user_id = ? AND period = ? AND id <> ? AND active = ?", userID, period, keepID, true).
		Update("active", false).Error
}
