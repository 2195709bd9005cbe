package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

// UserRepository is the identity lookup collaborator: it resolves evaluated
// users and role-based recipient lists.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByEmployeeCode(ctx context.Context, code string) (models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role, department string) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByEmployeeCode(ctx context.Context, code string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("employee_code = ?", code).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) ListActive(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListByRole returns active users holding the given role. Compliance is an
// organization-wide role; every other role is resolved within a department.
func (r *userRepository) ListByRole(ctx context.Context, role, department string) ([]models.User, error) {
	query := r.db.WithContext(ctx).Where("active = ? AND role = ?", true, role)
	if role != models.RoleCompliance && department != "" {
		query = query.Where("department = ?", department)
	}

	var users []models.User
	if err := query.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
