package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chaplog/internal/models"
)

var ErrBookNotFound = errors.New("book not found")

const bookColumns = `
	b.id, b.user_id, b.title, b.author, b.publisher, b.publication_year, b.total_pages,
	b.genre, b.cover_image_url, b.status, b.notes, b.current_page, b.started_at,
	b.completed_at, b.created_at, b.updated_at
`

const bookRollupColumns = `
	(SELECT COUNT(*) FROM reading_entries e WHERE e.book_id = b.id),
	(SELECT MAX(e.reading_date) FROM reading_entries e WHERE e.book_id = b.id)
`

// BookFilter narrows a user's book list. Status nil means any status.
type BookFilter struct {
	Status    *models.BookStatus
	Search    string
	Sort      models.BookSort
	Ascending bool
	Limit     int
	Offset    int
}

type BookRepository struct {
	pool *pgxpool.Pool
}

func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

func (r *BookRepository) Create(ctx context.Context, book models.Book) error {
	const query = `
		INSERT INTO books (
			id, user_id, title, author, publisher, publication_year, total_pages, genre,
			cover_image_url, status, notes, current_page, started_at, completed_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := r.pool.Exec(ctx, query,
		book.ID,
		book.UserID,
		book.Title,
		book.Author,
		book.Publisher,
		book.PublicationYear,
		book.TotalPages,
		book.Genre,
		book.CoverImageURL,
		book.Status,
		book.Notes,
		book.CurrentPage,
		book.StartedAt,
		book.CompletedAt,
		book.CreatedAt,
		book.UpdatedAt,
	)
	return err
}

// GetByID returns the book only when userID owns it.
func (r *BookRepository) GetByID(ctx context.Context, userID, id string) (models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b WHERE b.id = $1 AND b.user_id = $2`
	return scanBook(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *BookRepository) GetDetail(ctx context.Context, userID, id string) (models.BookDetail, error) {
	query := `SELECT ` + bookColumns + `, ` + bookRollupColumns + ` FROM books b WHERE b.id = $1 AND b.user_id = $2`
	return scanBookDetail(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *BookRepository) List(ctx context.Context, userID string, filter BookFilter) ([]models.BookDetail, int, error) {
	where := ` WHERE b.user_id = $1`
	args := []any{userID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(` AND b.status = $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		where += fmt.Sprintf(` AND (b.title ILIKE $%d OR b.author ILIKE $%d OR b.publisher ILIKE $%d OR b.genre ILIKE $%d)`, n, n, n, n)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books b`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s, %s FROM books b%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		bookColumns, bookRollupColumns, where, bookOrder(filter.Sort, filter.Ascending), len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	books := make([]models.BookDetail, 0, filter.Limit)
	for rows.Next() {
		book, err := scanBookDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, book)
	}
	return books, total, rows.Err()
}

// Update writes every mutable column of an owned book.
func (r *BookRepository) Update(ctx context.Context, book models.Book) error {
	const query = `
		UPDATE books SET
			title = $3, author = $4, publisher = $5, publication_year = $6, total_pages = $7,
			genre = $8, cover_image_url = $9, status = $10, notes = $11, current_page = $12,
			started_at = $13, completed_at = $14, updated_at = $15
		WHERE id = $1 AND user_id = $2
	`

	cmd, err := r.pool.Exec(ctx, query,
		book.ID,
		book.UserID,
		book.Title,
		book.Author,
		book.Publisher,
		book.PublicationYear,
		book.TotalPages,
		book.Genre,
		book.CoverImageURL,
		book.Status,
		book.Notes,
		book.CurrentPage,
		book.StartedAt,
		book.CompletedAt,
		book.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *BookRepository) Delete(ctx context.Context, userID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *BookRepository) Exists(ctx context.Context, userID, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1 AND user_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func bookOrder(sort models.BookSort, ascending bool) string {
	column := "b.created_at"
	switch sort {
	case models.BookSortTitle:
		column = "b.title"
	case models.BookSortAuthor:
		column = "b.author"
	case models.BookSortStatus:
		column = "b.status"
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	return column + " " + direction + ", b.id"
}

func bookFields(book *models.Book) []any {
	return []any{
		&book.ID,
		&book.UserID,
		&book.Title,
		&book.Author,
		&book.Publisher,
		&book.PublicationYear,
		&book.TotalPages,
		&book.Genre,
		&book.CoverImageURL,
		&book.Status,
		&book.Notes,
		&book.CurrentPage,
		&book.StartedAt,
		&book.CompletedAt,
		&book.CreatedAt,
		&book.UpdatedAt,
	}
}

func scanBook(row rowScanner) (models.Book, error) {
	var book models.Book
	if err := row.Scan(bookFields(&book)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, ErrBookNotFound
		}
		return models.Book{}, err
	}
	return book, nil
}

func scanBookDetail(row rowScanner) (models.BookDetail, error) {
	var detail models.BookDetail
	dest := append(bookFields(&detail.Book), &detail.EntryCount, &detail.LastEntryDate)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BookDetail{}, ErrBookNotFound
		}
		return models.BookDetail{}, err
	}
	return detail, nil
}
