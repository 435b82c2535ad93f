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

var ErrEntryNotFound = errors.New("reading entry not found")

const entryColumns = `
	e.id, e.book_id, e.user_id, b.id, b.title, b.author, e.reading_date, e.start_page,
	e.end_page, e.chapter, e.notes, e.impression, e.learnings, e.rating, e.created_at,
	e.updated_at
`

const entryFrom = ` FROM reading_entries e JOIN books b ON b.id = e.book_id`

type EntryFilter struct {
	Search string
	Sort   models.EntrySort
	Limit  int
	Offset int
}

type ReadingEntryRepository struct {
	pool *pgxpool.Pool
}

func NewReadingEntryRepository(pool *pgxpool.Pool) *ReadingEntryRepository {
	return &ReadingEntryRepository{pool: pool}
}

// CreateWithProgress inserts the entry and advances the owning book in one
// transaction. The book row is locked and progress is recomputed from the
// stored values, so concurrent entries can only move a book forward. It
// returns the book as committed.
func (r *ReadingEntryRepository) CreateWithProgress(ctx context.Context, entry models.ReadingEntry, at time.Time) (models.Book, error) {
	const lock = `SELECT ` + bookColumns + ` FROM books b WHERE b.id = $1 AND b.user_id = $2 FOR UPDATE`
	const insert = `
		INSERT INTO reading_entries (
			id, book_id, user_id, reading_date, start_page, end_page, chapter, notes,
			impression, learnings, rating, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`
	const progress = `
		UPDATE books
		SET current_page = $3, status = $4, started_at = $5, completed_at = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	var book models.Book
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		book, err = scanBook(tx.QueryRow(ctx, lock, entry.BookID, entry.UserID))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, insert,
			entry.ID,
			entry.BookID,
			entry.UserID,
			entry.ReadingDate,
			entry.StartPage,
			entry.EndPage,
			entry.Chapter,
			entry.Notes,
			entry.Impression,
			nonNil(entry.Learnings),
			entry.Rating,
			entry.CreatedAt,
			entry.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}

		if !book.ApplyProgress(entry.EndPage, at) {
			return nil
		}
		if _, err := tx.Exec(ctx, progress,
			book.ID,
			book.UserID,
			book.CurrentPage,
			book.Status,
			book.StartedAt,
			book.CompletedAt,
			book.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update book progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Book{}, err
	}
	return book, nil
}

func (r *ReadingEntryRepository) GetByID(ctx context.Context, userID, id string) (models.ReadingEntry, error) {
	query := `SELECT ` + entryColumns + entryFrom + ` WHERE e.id = $1 AND e.user_id = $2`
	return scanEntry(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *ReadingEntryRepository) Update(ctx context.Context, entry models.ReadingEntry) error {
	const query = `
		UPDATE reading_entries SET
			reading_date = $3, start_page = $4, end_page = $5, chapter = $6, notes = $7,
			impression = $8, learnings = $9, rating = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2
	`

	cmd, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ReadingDate,
		entry.StartPage,
		entry.EndPage,
		entry.Chapter,
		entry.Notes,
		entry.Impression,
		nonNil(entry.Learnings),
		entry.Rating,
		entry.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *ReadingEntryRepository) Delete(ctx context.Context, userID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM reading_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *ReadingEntryRepository) Exists(ctx context.Context, userID, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM reading_entries WHERE id = $1 AND user_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByUser pages through every entry the user wrote. Search matches the
// book title, impression or notes.
func (r *ReadingEntryRepository) ListByUser(ctx context.Context, userID string, filter EntryFilter) ([]models.ReadingEntry, int, error) {
	where := ` WHERE e.user_id = $1`
	args := []any{userID}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		where += ` AND (b.title ILIKE $2 OR e.impression ILIKE $2 OR e.notes ILIKE $2)`
	}
	return r.page(ctx, where, entryOrder(filter.Sort), args, filter.Limit, filter.Offset)
}

// ListByBook pages through one book's entries, latest reading date first.
func (r *ReadingEntryRepository) ListByBook(ctx context.Context, userID, bookID string, limit, offset int) ([]models.ReadingEntry, int, error) {
	where := ` WHERE e.user_id = $1 AND e.book_id = $2`
	return r.page(ctx, where, entryOrder(models.EntrySortDateDesc), []any{userID, bookID}, limit, offset)
}

// ListAll returns the user's full reading log in chronological order.
func (r *ReadingEntryRepository) ListAll(ctx context.Context, userID string) ([]models.ReadingEntry, error) {
	query := `SELECT ` + entryColumns + entryFrom + ` WHERE e.user_id = $1 ORDER BY ` + entryOrder(models.EntrySortDateAsc)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows, 0)
}

func (r *ReadingEntryRepository) page(ctx context.Context, where, order string, args []any, limit, offset int) ([]models.ReadingEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+entryFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		entryColumns, entryFrom, where, order, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	entries, err := collectEntries(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func entryOrder(sort models.EntrySort) string {
	switch sort {
	case models.EntrySortDateAsc:
		return "e.reading_date ASC, e.created_at ASC, e.id"
	case models.EntrySortRatingDesc:
		return "e.rating DESC, e.reading_date DESC, e.id"
	case models.EntrySortRatingAsc:
		return "e.rating ASC, e.reading_date DESC, e.id"
	case models.EntrySortPagesDesc:
		return "(e.end_page - e.start_page) DESC, e.reading_date DESC, e.id"
	default:
		return "e.reading_date DESC, e.created_at DESC, e.id"
	}
}

func collectEntries(rows pgx.Rows, capacity int) ([]models.ReadingEntry, error) {
	defer rows.Close()

	entries := make([]models.ReadingEntry, 0, capacity)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (models.ReadingEntry, error) {
	var entry models.ReadingEntry
	if err := row.Scan(
		&entry.ID,
		&entry.BookID,
		&entry.UserID,
		&entry.Book.ID,
		&entry.Book.Title,
		&entry.Book.Author,
		&entry.ReadingDate,
		&entry.StartPage,
		&entry.EndPage,
		&entry.Chapter,
		&entry.Notes,
		&entry.Impression,
		&entry.Learnings,
		&entry.Rating,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ReadingEntry{}, ErrEntryNotFound
		}
		return models.ReadingEntry{}, err
	}
	return entry, nil
}
