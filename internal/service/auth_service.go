package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chaplog/internal/config"
	"chaplog/internal/ids"
	"chaplog/internal/models"
	"chaplog/internal/repository"
	"chaplog/internal/security"
)

type AuthService struct {
	users        UserStore
	tokens       RefreshTokenStore
	issuer       *security.TokenIssuer
	cfg          config.SecurityConfig
	log          zerolog.Logger
	now          func() time.Time
	hashPassword func(string) ([]byte, error)
}

func NewAuthService(
	users UserStore,
	tokens RefreshTokenStore,
	issuer *security.TokenIssuer,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		issuer:       issuer,
		cfg:          cfg,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
		hashPassword: security.HashPassword,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	UserName  string
	IPAddress string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         models.User
}

func normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := s.users.FindByEmail(ctx, normalize(email)); err == nil {
		return AuthResult{}, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := s.hashPassword(input.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	userName := strings.TrimSpace(input.UserName)
	user := models.User{
		ID:                 ids.New(),
		Email:              email,
		NormalizedEmail:    normalize(email),
		UserName:           userName,
		NormalizedUserName: normalize(userName),
		PasswordHash:       passwordHash,
		SecurityStamp:      ids.New(),
		ConcurrencyStamp:   ids.New(),
		LockoutEnabled:     true,
		Role:               models.UserRoleUser,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, ErrEmailAlreadyRegistered
		}
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return s.issue(ctx, user, input.IPAddress)
}

// Login checks the lockout before the password, so a locked account answers
// the same way whatever password is tried.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalize(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	now := s.now()
	if user.IsLockedOut(now) {
		return AuthResult{}, ErrLockedOut
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil && !errors.Is(err, security.ErrMalformedHash) {
		return AuthResult{}, err
	}
	if !ok {
		if err := s.recordFailure(ctx, user, now); err != nil {
			return AuthResult{}, err
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return AuthResult{}, err
	}
	user.AccessFailedCount = 0
	user.LockoutEnd = nil
	user.LastLoginAt = &now

	return s.issue(ctx, user, input.IPAddress)
}

func (s *AuthService) recordFailure(ctx context.Context, user models.User, now time.Time) error {
	failures := user.AccessFailedCount + 1
	var lockoutEnd *time.Time
	if user.LockoutEnabled && s.cfg.MaxFailedAttempts > 0 && failures >= s.cfg.MaxFailedAttempts {
		end := now.Add(s.cfg.LockoutDuration)
		lockoutEnd = &end
		failures = 0
		s.log.Warn().Str("user_id", user.ID).Time("lockout_end", end).Msg("account locked out")
	} else {
		s.log.Info().Str("user_id", user.ID).Int("failed_count", failures).Msg("login failed")
	}
	return s.users.RecordLoginFailure(ctx, user.ID, failures, lockoutEnd)
}

// Refresh exchanges an active refresh token for a new pair. The presented
// token is revoked and points at its replacement.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ipAddress string) (AuthResult, error) {
	now := s.now()
	current, err := s.tokens.GetByHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return AuthResult{}, ErrInvalidRefreshToken
		}
		return AuthResult{}, err
	}
	if !current.IsActive(now) {
		return AuthResult{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidRefreshToken
		}
		return AuthResult{}, err
	}

	raw, next, err := s.newRefreshToken(user.ID, ipAddress, now)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.tokens.Rotate(ctx, current, next, optional(ipAddress), now); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return AuthResult{}, ErrInvalidRefreshToken
		}
		return AuthResult{}, err
	}

	accessToken, err := s.issuer.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Debug().Str("user_id", user.ID).Str("token_id", current.ID).Msg("refresh token rotated")
	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: raw,
		ExpiresIn:    s.issuer.TTL(),
		User:         user,
	}, nil
}

// Revoke invalidates one of the caller's active refresh tokens. Tokens
// issued from it are left alone.
func (s *AuthService) Revoke(ctx context.Context, userID, refreshToken, ipAddress string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrInvalidRevokeToken
	}

	now := s.now()
	token, err := s.tokens.GetByHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return ErrInvalidRevokeToken
		}
		return err
	}
	if token.UserID != userID || !token.IsActive(now) {
		return ErrInvalidRevokeToken
	}

	if err := s.tokens.Revoke(ctx, token.ID, optional(ipAddress), now); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return ErrInvalidRevokeToken
		}
		return err
	}
	s.log.Info().Str("user_id", userID).Str("token_id", token.ID).Msg("refresh token revoked")
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// PurgeTokens deletes refresh tokens that expired or were revoked before
// the cutoff.
func (s *AuthService) PurgeTokens(ctx context.Context, before time.Time) (int64, error) {
	return s.tokens.DeleteStale(ctx, before)
}

func (s *AuthService) issue(ctx context.Context, user models.User, ipAddress string) (AuthResult, error) {
	accessToken, err := s.issuer.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}

	raw, token, err := s.newRefreshToken(user.ID, ipAddress, s.now())
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return AuthResult{}, fmt.Errorf("store refresh token: %w", err)
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: raw,
		ExpiresIn:    s.issuer.TTL(),
		User:         user,
	}, nil
}

func (s *AuthService) newRefreshToken(userID, ipAddress string, now time.Time) (string, models.RefreshToken, error) {
	raw, hash, err := security.GenerateRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return "", models.RefreshToken{}, err
	}
	return raw, models.RefreshToken{
		ID:          ids.New(),
		UserID:      userID,
		TokenHash:   hash,
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt:   now,
		CreatedByIP: optional(ipAddress),
	}, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
