package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chaplog/internal/models"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

const refreshTokenColumns = `
	id, user_id, token_hash, expires_at, created_at, created_by_ip, revoked_at,
	revoked_by_ip, replaced_by_token_hash
`

type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token models.RefreshToken) error {
	return insertRefreshToken(ctx, r.pool, token)
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, hash []byte) (models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	return scanRefreshToken(r.pool.QueryRow(ctx, query, hash))
}

// Rotate stores next and revokes current in one transaction. A current token
// that was revoked concurrently yields ErrRefreshTokenNotFound and nothing is
// written.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, current, next models.RefreshToken, ip *string, at time.Time) error {
	const revoke = `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoked_by_ip = $3, replaced_by_token_hash = $4
		WHERE id = $1 AND revoked_at IS NULL
	`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, revoke, current.ID, at, ip, next.TokenHash)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrRefreshTokenNotFound
		}
		return insertRefreshToken(ctx, tx, next)
	})
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string, ip *string, at time.Time) error {
	const query = `
		UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3
		WHERE id = $1 AND revoked_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, at, ip)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// DeleteStale removes tokens that expired or were revoked before the cutoff.
func (r *RefreshTokenRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked_at < $1`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(ctx context.Context, db execer, token models.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, created_at, created_by_ip
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	_, err := db.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
		token.CreatedByIP,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func scanRefreshToken(row rowScanner) (models.RefreshToken, error) {
	var token models.RefreshToken
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.CreatedByIP,
		&token.RevokedAt,
		&token.RevokedByIP,
		&token.ReplacedByTokenHash,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, ErrRefreshTokenNotFound
		}
		return models.RefreshToken{}, err
	}
	return token, nil
}
