package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chaplog/internal/models"
)

var ErrReviewNotFound = errors.New("review not found")

const reviewColumns = `
	r.id, r.book_id, r.user_id, r.completed_date, r.overall_impression, r.key_learnings,
	r.overall_rating, r.recommendation_level, r.created_at, r.updated_at
`

const reviewBookColumns = `b.title, b.author, b.genre, b.total_pages, b.cover_image_url`

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create returns ErrDuplicate when the book already has a review.
func (r *ReviewRepository) Create(ctx context.Context, review models.BookReview) error {
	const query = `
		INSERT INTO book_reviews (
			id, book_id, user_id, completed_date, overall_impression, key_learnings,
			overall_rating, recommendation_level, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.BookID,
		review.UserID,
		review.CompletedDate,
		review.OverallImpression,
		nonNil(review.KeyLearnings),
		review.OverallRating,
		review.RecommendationLevel,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ReviewRepository) GetByBook(ctx context.Context, userID, bookID string) (models.BookReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM book_reviews r WHERE r.book_id = $1 AND r.user_id = $2`
	return scanReview(r.pool.QueryRow(ctx, query, bookID, userID))
}

func (r *ReviewRepository) ExistsForBook(ctx context.Context, userID, bookID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM book_reviews WHERE book_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, bookID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review models.BookReview) error {
	const query = `
		UPDATE book_reviews SET
			completed_date = $3, overall_impression = $4, key_learnings = $5,
			overall_rating = $6, recommendation_level = $7, updated_at = $8
		WHERE book_id = $1 AND user_id = $2
	`

	cmd, err := r.pool.Exec(ctx, query,
		review.BookID,
		review.UserID,
		review.CompletedDate,
		review.OverallImpression,
		nonNil(review.KeyLearnings),
		review.OverallRating,
		review.RecommendationLevel,
		review.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *ReviewRepository) DeleteByBook(ctx context.Context, userID, bookID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM book_reviews WHERE book_id = $1 AND user_id = $2`, bookID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// ListWithBook pages through the user's reviews, newest first.
func (r *ReviewRepository) ListWithBook(ctx context.Context, userID string, limit, offset int) ([]models.ReviewWithBook, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM book_reviews WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	reviews, err := r.listWithBook(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *ReviewRepository) listWithBook(ctx context.Context, userID string, limit, offset int) ([]models.ReviewWithBook, error) {
	query := `SELECT ` + reviewColumns + `, ` + reviewBookColumns + `
		FROM book_reviews r JOIN books b ON b.id = r.book_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.ReviewWithBook, 0, limit)
	for rows.Next() {
		var review models.ReviewWithBook
		dest := append(reviewFields(&review.BookReview),
			&review.BookTitle,
			&review.BookAuthor,
			&review.BookGenre,
			&review.BookTotalPages,
			&review.BookCoverURL,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func reviewFields(review *models.BookReview) []any {
	return []any{
		&review.ID,
		&review.BookID,
		&review.UserID,
		&review.CompletedDate,
		&review.OverallImpression,
		&review.KeyLearnings,
		&review.OverallRating,
		&review.RecommendationLevel,
		&review.CreatedAt,
		&review.UpdatedAt,
	}
}

func scanReview(row rowScanner) (models.BookReview, error) {
	var review models.BookReview
	if err := row.Scan(reviewFields(&review)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BookReview{}, ErrReviewNotFound
		}
		return models.BookReview{}, err
	}
	return review, nil
}
