package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"chaplog/internal/ids"
	"chaplog/internal/models"
	"chaplog/internal/repository"
)

const defaultBookPageSize = 20

type BookInput struct {
	Title           string
	Author          string
	Publisher       *string
	PublicationYear *int
	TotalPages      *int
	Genre           *string
	CoverImageURL   *string
	Notes           *string
}

type BookQuery struct {
	PageRequest
	Status    *models.BookStatus
	Search    string
	Sort      models.BookSort
	Ascending bool
}

type BookService struct {
	books BookStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewBookService(books BookStore, log zerolog.Logger) *BookService {
	return &BookService{
		books: books,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *BookService) List(ctx context.Context, userID string, q BookQuery) (Page[models.BookDetail], error) {
	req := q.PageRequest.normalize(defaultBookPageSize)
	if q.Status != nil && !q.Status.Valid() {
		return Page[models.BookDetail]{}, ErrInvalidStatus
	}

	books, total, err := s.books.List(ctx, userID, repository.BookFilter{
		Status:    q.Status,
		Search:    q.Search,
		Sort:      q.Sort,
		Ascending: q.Ascending,
		Limit:     req.PageSize,
		Offset:    req.offset(),
	})
	if err != nil {
		return Page[models.BookDetail]{}, err
	}
	return newPage(books, total, req), nil
}

func (s *BookService) Get(ctx context.Context, userID, id string) (models.BookDetail, error) {
	detail, err := s.books.GetDetail(ctx, userID, id)
	return detail, bookErr(err)
}

func (s *BookService) Exists(ctx context.Context, userID, id string) (bool, error) {
	return s.books.Exists(ctx, userID, id)
}

func (s *BookService) Create(ctx context.Context, userID string, in BookInput) (models.BookDetail, error) {
	now := s.now()
	book := models.Book{
		ID:        ids.New(),
		UserID:    userID,
		Status:    models.BookStatusUnread,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&book)

	if err := s.books.Create(ctx, book); err != nil {
		return models.BookDetail{}, err
	}
	s.log.Info().Str("user_id", userID).Str("book_id", book.ID).Msg("book created")
	return models.BookDetail{Book: book}, nil
}

func (s *BookService) Update(ctx context.Context, userID, id string, in BookInput) (models.BookDetail, error) {
	book, err := s.books.GetByID(ctx, userID, id)
	if err != nil {
		return models.BookDetail{}, bookErr(err)
	}

	in.apply(&book)
	book.UpdatedAt = s.now()
	return s.save(ctx, book)
}

func (s *BookService) Delete(ctx context.Context, userID, id string) error {
	if err := s.books.Delete(ctx, userID, id); err != nil {
		return bookErr(err)
	}
	s.log.Info().Str("user_id", userID).Str("book_id", id).Msg("book deleted")
	return nil
}

// UpdateStatus moves the book to status explicitly. Any transition is
// allowed here.
func (s *BookService) UpdateStatus(ctx context.Context, userID, id string, status models.BookStatus) (models.BookDetail, error) {
	if !status.Valid() {
		return models.BookDetail{}, ErrInvalidStatus
	}

	book, err := s.books.GetByID(ctx, userID, id)
	if err != nil {
		return models.BookDetail{}, bookErr(err)
	}

	book.SetStatus(status, s.now())
	return s.save(ctx, book)
}

func (s *BookService) SetCover(ctx context.Context, userID, id, url string) (models.BookDetail, error) {
	book, err := s.books.GetByID(ctx, userID, id)
	if err != nil {
		return models.BookDetail{}, bookErr(err)
	}

	book.CoverImageURL = &url
	book.UpdatedAt = s.now()
	return s.save(ctx, book)
}

func (s *BookService) save(ctx context.Context, book models.Book) (models.BookDetail, error) {
	if err := s.books.Update(ctx, book); err != nil {
		return models.BookDetail{}, bookErr(err)
	}
	detail, err := s.books.GetDetail(ctx, book.UserID, book.ID)
	return detail, bookErr(err)
}

func (in BookInput) apply(book *models.Book) {
	book.Title = in.Title
	book.Author = in.Author
	book.Publisher = in.Publisher
	book.PublicationYear = in.PublicationYear
	book.TotalPages = in.TotalPages
	book.Genre = in.Genre
	book.CoverImageURL = in.CoverImageURL
	book.Notes = in.Notes
}

func bookErr(err error) error {
	if errors.Is(err, repository.ErrBookNotFound) {
		return ErrBookNotFound
	}
	return err
}
