package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chaplog/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `
	id, email, normalized_email, user_name, normalized_user_name, password_hash,
	security_stamp, concurrency_stamp, email_confirmed, lockout_enabled, lockout_end,
	access_failed_count, role, created_at, updated_at, last_login_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, email, normalized_email, user_name, normalized_user_name, password_hash,
			security_stamp, concurrency_stamp, email_confirmed, lockout_enabled,
			access_failed_count, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.NormalizedEmail,
		user.UserName,
		user.NormalizedUserName,
		user.PasswordHash,
		user.SecurityStamp,
		user.ConcurrencyStamp,
		user.EmailConfirmed,
		user.LockoutEnabled,
		user.AccessFailedCount,
		user.Role,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByEmail looks a user up by the upper-cased email.
func (r *UserRepository) FindByEmail(ctx context.Context, normalizedEmail string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE normalized_email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, normalizedEmail))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, failedCount int, lockoutEnd *time.Time) error {
	const query = `
		UPDATE users
		SET access_failed_count = $2, lockout_end = $3, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, failedCount, lockoutEnd)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET access_failed_count = 0, lockout_end = NULL, last_login_at = $2, updated_at = $2
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List pages through users newest first. search matches email or user name.
func (r *UserRepository) List(ctx context.Context, search string, limit, offset int) ([]models.User, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE email ILIKE $1 OR user_name ILIKE $1`
		args = append(args, likePattern(search))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]models.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.NormalizedEmail,
		&user.UserName,
		&user.NormalizedUserName,
		&user.PasswordHash,
		&user.SecurityStamp,
		&user.ConcurrencyStamp,
		&user.EmailConfirmed,
		&user.LockoutEnabled,
		&user.LockoutEnd,
		&user.AccessFailedCount,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
