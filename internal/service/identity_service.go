package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

// Recipient pairs a resolved user with the directive role that selected it.
type Recipient struct {
	User models.User
	Role string
}

// IdentityService resolves evaluated users and role-based recipient sets.
type IdentityService interface {
	Resolve(ctx context.Context, userID uint) (models.User, error)
	ResolveByEmployeeCode(ctx context.Context, code string) (models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	ResolveRecipients(ctx context.Context, subject models.User, roles []string) ([]Recipient, error)
}

type identityService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewIdentityService constructs the identity lookup service.
func NewIdentityService(users repository.UserRepository, logger zerolog.Logger) IdentityService {
	return &identityService{
		users:  users,
		logger: logger.With().Str("component", "identity_service").Logger(),
	}
}

// Resolve returns the user for evaluation. Deactivated users resolve as not
// found so no cadence or manual run evaluates or emails them.
func (s *identityService) Resolve(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("resolve user %d: %w", userID, ErrUserNotFound)
		}
		return models.User{}, err
	}
	if !user.Active {
		return models.User{}, fmt.Errorf("resolve user %d: %w", userID, ErrUserNotFound)
	}
	return user, nil
}

func (s *identityService) ResolveByEmployeeCode(ctx context.Context, code string) (models.User, error) {
	user, err := s.users.FindByEmployeeCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("resolve employee %q: %w", code, ErrUserNotFound)
		}
		return models.User{}, err
	}
	if !user.Active {
		return models.User{}, fmt.Errorf("resolve employee %q: %w", code, ErrUserNotFound)
	}
	return user, nil
}

func (s *identityService) ListActive(ctx context.Context) ([]models.User, error) {
	return s.users.ListActive(ctx)
}

// ResolveRecipients expands a directive's recipient-role set into concrete
// users, deduplicated by id. The subject role maps to the evaluated user;
// other roles are resolved within the subject's department, compliance
// organization-wide.
func (s *identityService) ResolveRecipients(ctx context.Context, subject models.User, roles []string) ([]Recipient, error) {
	seen := make(map[uint]struct{})
	var recipients []Recipient

	add := func(role string, users ...models.User) {
		for _, user := range users {
			if user.Email == "" {
				continue
			}
			if _, ok := seen[user.ID]; ok {
				continue
			}
			seen[user.ID] = struct{}{}
			recipients = append(recipients, Recipient{User: user, Role: role})
		}
	}

	for _, role := range roles {
		if role == RecipientSubject {
			add(RecipientSubject, subject)
			continue
		}

		users, err := s.users.ListByRole(ctx, role, subject.Department)
		if err != nil {
			return recipients, fmt.Errorf("resolve role %s: %w", role, err)
		}
		if len(users) == 0 {
			s.logger.Warn().Str("role", role).Str("department", subject.Department).Msg("no recipients resolved for role")
		}
		add(role, users...)
	}

	return recipients, nil
}
