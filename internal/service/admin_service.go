package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chaplog/internal/ids"
	"chaplog/internal/models"
	"chaplog/internal/repository"
	"chaplog/internal/security"
)

const defaultUserPageSize = 20

type AdminService struct {
	users UserStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewAdminService(users UserStore, log zerolog.Logger) *AdminService {
	return &AdminService{
		users: users,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminService) ListUsers(ctx context.Context, search string, page PageRequest) (Page[models.User], error) {
	req := page.normalize(defaultUserPageSize)
	users, total, err := s.users.List(ctx, strings.TrimSpace(search), req.PageSize, req.offset())
	if err != nil {
		return Page[models.User]{}, err
	}
	return newPage(users, total, req), nil
}

func (s *AdminService) CountUsers(ctx context.Context) (int, error) {
	return s.users.Count(ctx)
}

func (s *AdminService) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// DeleteUser removes a regular user and, through the foreign keys, all of
// their books, entries, reviews and tokens. Admins cannot be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.UserRoleAdmin {
		return ErrCannotDeleteAdmin
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.log.Warn().Str("actor_id", actorID).Str("user_id", id).Msg("user deleted")
	return nil
}

type AdminSeed struct {
	Email    string
	Password string
	UserName string
}

// SeedAdmin creates the first administrator when no user exists yet. It
// reports whether an account was created.
func (s *AdminService) SeedAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := security.HashPassword(seed.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	now := s.now()
	admin := models.User{
		ID:                 ids.New(),
		Email:              strings.TrimSpace(seed.Email),
		NormalizedEmail:    normalize(seed.Email),
		UserName:           strings.TrimSpace(seed.UserName),
		NormalizedUserName: normalize(seed.UserName),
		PasswordHash:       hash,
		SecurityStamp:      ids.New(),
		ConcurrencyStamp:   ids.New(),
		EmailConfirmed:     true,
		LockoutEnabled:     true,
		Role:               models.UserRoleAdmin,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	s.log.Info().Str("user_id", admin.ID).Str("email", admin.Email).Msg("admin user seeded")
	return true, nil
}
