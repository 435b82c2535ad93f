package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chaplog/internal/models"
)

type GenreCount struct {
	Genre string
	Count int
}

// StatisticsRepository holds the aggregate queries behind the reading
// statistics. Date ranges are half open: from inclusive, to exclusive.
type StatisticsRepository struct {
	pool *pgxpool.Pool
}

func NewStatisticsRepository(pool *pgxpool.Pool) *StatisticsRepository {
	return &StatisticsRepository{pool: pool}
}

func (r *StatisticsRepository) BookStatusCounts(ctx context.Context, userID string) (map[models.BookStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM books WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.BookStatus]int, 3)
	for rows.Next() {
		var status models.BookStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// GenreCounts counts books per distinct non-blank genre.
func (r *StatisticsRepository) GenreCounts(ctx context.Context, userID string) ([]GenreCount, error) {
	const query = `
		SELECT genre, COUNT(*)
		FROM books
		WHERE user_id = $1 AND genre IS NOT NULL AND BTRIM(genre) <> ''
		GROUP BY genre
		ORDER BY COUNT(*) DESC, genre
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (GenreCount, error) {
		var gc GenreCount
		err := row.Scan(&gc.Genre, &gc.Count)
		return gc, err
	})
}

func (r *StatisticsRepository) TotalPagesRead(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COALESCE(SUM(end_page - start_page + 1), 0) FROM reading_entries WHERE user_id = $1`
	return r.scalar(ctx, query, userID)
}

// AverageRating is the mean entry rating, 0 without entries.
func (r *StatisticsRepository) AverageRating(ctx context.Context, userID string) (float64, error) {
	const query = `SELECT COALESCE(AVG(rating), 0)::float8 FROM reading_entries WHERE user_id = $1`
	var avg float64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// ReadingDates lists the distinct days with an entry, latest first.
func (r *StatisticsRepository) ReadingDates(ctx context.Context, userID string) ([]time.Time, error) {
	const query = `SELECT DISTINCT reading_date FROM reading_entries WHERE user_id = $1 ORDER BY reading_date DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

func (r *StatisticsRepository) PagesReadBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `
		SELECT COALESCE(SUM(end_page - start_page + 1), 0)
		FROM reading_entries
		WHERE user_id = $1 AND reading_date >= $2 AND reading_date < $3
	`
	return r.scalar(ctx, query, userID, from, to)
}

func (r *StatisticsRepository) EntriesBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM reading_entries
		WHERE user_id = $1 AND reading_date >= $2 AND reading_date < $3
	`
	return r.scalar(ctx, query, userID, from, to)
}

// ReviewsCompletedBetween counts reviews by completion date, which is how
// finished books are tallied.
func (r *StatisticsRepository) ReviewsCompletedBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM book_reviews
		WHERE user_id = $1 AND completed_date >= $2 AND completed_date < $3
	`
	return r.scalar(ctx, query, userID, from, to)
}

// RecentBooks returns the most recently touched books.
func (r *StatisticsRepository) RecentBooks(ctx context.Context, userID string, limit int) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b WHERE b.user_id = $1 ORDER BY b.updated_at DESC, b.id LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]models.Book, 0, limit)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (r *StatisticsRepository) RecentEntries(ctx context.Context, userID string, limit int) ([]models.ReadingEntry, error) {
	query := `SELECT ` + entryColumns + entryFrom + ` WHERE e.user_id = $1 ORDER BY e.created_at DESC, e.id LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows, limit)
}

func (r *StatisticsRepository) RecentReviews(ctx context.Context, userID string, limit int) ([]models.ReviewWithBook, error) {
	return NewReviewRepository(r.pool).listWithBook(ctx, userID, limit, 0)
}

// EntriesInRange returns the entries read within [from, to).
func (r *StatisticsRepository) EntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]models.ReadingEntry, error) {
	query := `SELECT ` + entryColumns + entryFrom + `
		WHERE e.user_id = $1 AND e.reading_date >= $2 AND e.reading_date < $3
		ORDER BY e.reading_date, e.created_at`
	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows, 0)
}

func (r *StatisticsRepository) scalar(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
