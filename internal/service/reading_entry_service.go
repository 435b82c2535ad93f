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

const defaultEntryPageSize = 10

type EntryInput struct {
	BookID      string
	ReadingDate time.Time
	StartPage   int
	EndPage     int
	Chapter     *string
	Notes       *string
	Impression  *string
	Learnings   []string
	Rating      int
}

type EntryQuery struct {
	PageRequest
	Search string
	Sort   models.EntrySort
}

type ReadingEntryService struct {
	entries ReadingEntryStore
	books   BookStore
	log     zerolog.Logger
	now     func() time.Time
}

func NewReadingEntryService(entries ReadingEntryStore, books BookStore, log zerolog.Logger) *ReadingEntryService {
	return &ReadingEntryService{
		entries: entries,
		books:   books,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create logs a reading session and advances the book's bookmark and status
// in the same transaction. The book read here only validates the input; the
// store recomputes progress against the locked row.
func (s *ReadingEntryService) Create(ctx context.Context, userID string, in EntryInput) (models.ReadingEntry, error) {
	book, err := s.books.GetByID(ctx, userID, in.BookID)
	if err != nil {
		return models.ReadingEntry{}, bookErr(err)
	}
	if err := validateEntry(in, book); err != nil {
		return models.ReadingEntry{}, err
	}

	now := s.now()
	entry := models.ReadingEntry{
		ID:        ids.New(),
		BookID:    book.ID,
		UserID:    userID,
		Book:      models.BookRef{ID: book.ID, Title: book.Title, Author: book.Author},
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&entry)

	previous := book.Status
	book, err = s.entries.CreateWithProgress(ctx, entry, now)
	if err != nil {
		return models.ReadingEntry{}, bookErr(err)
	}

	event := s.log.Info().Str("user_id", userID).Str("book_id", book.ID).Str("entry_id", entry.ID)
	if book.Status != previous {
		event = event.Str("status", string(book.Status))
	}
	event.Msg("reading entry created")
	return entry, nil
}

func (s *ReadingEntryService) Get(ctx context.Context, userID, id string) (models.ReadingEntry, error) {
	entry, err := s.entries.GetByID(ctx, userID, id)
	return entry, entryErr(err)
}

func (s *ReadingEntryService) Exists(ctx context.Context, userID, id string) (bool, error) {
	return s.entries.Exists(ctx, userID, id)
}

// Update rewrites the entry. The book's progress is left as it is.
func (s *ReadingEntryService) Update(ctx context.Context, userID, id string, in EntryInput) (models.ReadingEntry, error) {
	entry, err := s.entries.GetByID(ctx, userID, id)
	if err != nil {
		return models.ReadingEntry{}, entryErr(err)
	}
	book, err := s.books.GetByID(ctx, userID, entry.BookID)
	if err != nil {
		return models.ReadingEntry{}, bookErr(err)
	}
	if err := validateEntry(in, book); err != nil {
		return models.ReadingEntry{}, err
	}

	in.apply(&entry)
	entry.UpdatedAt = s.now()
	if err := s.entries.Update(ctx, entry); err != nil {
		return models.ReadingEntry{}, entryErr(err)
	}
	return entry, nil
}

func (s *ReadingEntryService) Delete(ctx context.Context, userID, id string) error {
	return entryErr(s.entries.Delete(ctx, userID, id))
}

func (s *ReadingEntryService) List(ctx context.Context, userID string, q EntryQuery) (Page[models.ReadingEntry], error) {
	req := q.PageRequest.normalize(defaultEntryPageSize)
	entries, total, err := s.entries.ListByUser(ctx, userID, repository.EntryFilter{
		Search: q.Search,
		Sort:   q.Sort,
		Limit:  req.PageSize,
		Offset: req.offset(),
	})
	if err != nil {
		return Page[models.ReadingEntry]{}, err
	}
	return newPage(entries, total, req), nil
}

func (s *ReadingEntryService) ListByBook(ctx context.Context, userID, bookID string, page PageRequest) (Page[models.ReadingEntry], error) {
	exists, err := s.books.Exists(ctx, userID, bookID)
	if err != nil {
		return Page[models.ReadingEntry]{}, err
	}
	if !exists {
		return Page[models.ReadingEntry]{}, ErrBookNotFound
	}

	req := page.normalize(defaultEntryPageSize)
	entries, total, err := s.entries.ListByBook(ctx, userID, bookID, req.PageSize, req.offset())
	if err != nil {
		return Page[models.ReadingEntry]{}, err
	}
	return newPage(entries, total, req), nil
}

// All returns the user's whole reading log for export.
func (s *ReadingEntryService) All(ctx context.Context, userID string) ([]models.ReadingEntry, error) {
	return s.entries.ListAll(ctx, userID)
}

func validateEntry(in EntryInput, book models.Book) error {
	if in.StartPage < 1 || in.EndPage < 1 || in.StartPage > in.EndPage {
		return ErrInvalidPageRange
	}
	if in.Rating < 1 || in.Rating > 5 {
		return ErrInvalidRating
	}
	if book.TotalPages != nil && in.EndPage > *book.TotalPages {
		return ErrEndPageExceedsTotal
	}
	return nil
}

func (in EntryInput) apply(entry *models.ReadingEntry) {
	entry.ReadingDate = dateOnly(in.ReadingDate)
	entry.StartPage = in.StartPage
	entry.EndPage = in.EndPage
	entry.Chapter = in.Chapter
	entry.Notes = in.Notes
	entry.Impression = in.Impression
	entry.Learnings = in.Learnings
	if entry.Learnings == nil {
		entry.Learnings = []string{}
	}
	entry.Rating = in.Rating
}

func entryErr(err error) error {
	if errors.Is(err, repository.ErrEntryNotFound) {
		return ErrEntryNotFound
	}
	return err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
