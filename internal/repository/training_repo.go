package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

// TrainingRepository handles persistence for training assignments.
type TrainingRepository interface {
	Create(ctx context.Context, assignment *models.TrainingAssignment) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.TrainingAssignment, error)
}

type trainingRepository struct {
	db *gorm.DB
}

// NewTrainingRepository constructs a repository backed by GORM.
func NewTrainingRepository(db *gorm.DB) TrainingRepository {
	return &trainingRepository{db: db}
}

func (r *trainingRepository) Create(ctx context.Context, assignment *models.TrainingAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *trainingRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.TrainingAssignment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var assignments []models.TrainingAssignment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("assigned_at DESC").
		Limit(limit).
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}
