package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaplog/internal/models"
)

const testUser = "user-1"

func intPtr(v int) *int { return &v }

type libraryFixture struct {
	books     *fakeBooks
	entries   *fakeEntries
	reviews   *fakeReviews
	bookSvc   *BookService
	entrySvc  *ReadingEntryService
	reviewSvc *ReviewService
	now       time.Time
}

func newLibraryFixture() *libraryFixture {
	books := newFakeBooks()
	f := &libraryFixture{
		books:   books,
		entries: &fakeEntries{books: books},
		reviews: newFakeReviews(),
		now:     time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC),
	}
	f.bookSvc = NewBookService(f.books, zerolog.Nop())
	f.bookSvc.now = fixedClock(f.now)
	f.entrySvc = NewReadingEntryService(f.entries, f.books, zerolog.Nop())
	f.entrySvc.now = fixedClock(f.now)
	f.reviewSvc = NewReviewService(f.reviews, f.books, zerolog.Nop())
	f.reviewSvc.now = fixedClock(f.now)
	return f
}

func (f *libraryFixture) addBook(t *testing.T, totalPages *int) models.BookDetail {
	t.Helper()
	book, err := f.bookSvc.Create(context.Background(), testUser, BookInput{
		Title:      "The Dispossessed",
		Author:     "Ursula K. Le Guin",
		TotalPages: totalPages,
	})
	require.NoError(t, err)
	return book
}

func entry(bookID string, start, end int) EntryInput {
	return EntryInput{
		BookID:      bookID,
		ReadingDate: time.Date(2025, 8, 3, 22, 30, 0, 0, time.UTC),
		StartPage:   start,
		EndPage:     end,
		Rating:      4,
	}
}

func TestCreateEntryDrivesBookToCompletion(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, intPtr(100))

	created, err := f.entrySvc.Create(ctx, testUser, entry(book.ID, 1, 50))
	require.NoError(t, err)
	assert.Equal(t, 50, created.PagesRead())
	assert.Equal(t, "The Dispossessed", created.Book.Title)
	assert.Equal(t, time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), created.ReadingDate)
	assert.NotNil(t, created.Learnings)

	got, err := f.bookSvc.Get(ctx, testUser, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusReading, got.Status)
	assert.Equal(t, 50, got.CurrentPage)
	assert.Equal(t, 50, got.Progress())

	_, err = f.entrySvc.Create(ctx, testUser, entry(book.ID, 51, 100))
	require.NoError(t, err)

	got, err = f.bookSvc.Get(ctx, testUser, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusCompleted, got.Status)
	assert.Equal(t, 100, got.CurrentPage)
	require.NotNil(t, got.CompletedAt)
}

func TestCreateEntryWithSmallerEndPageKeepsProgress(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, intPtr(300))

	_, err := f.entrySvc.Create(ctx, testUser, entry(book.ID, 1, 120))
	require.NoError(t, err)
	_, err = f.entrySvc.Create(ctx, testUser, entry(book.ID, 10, 20))
	require.NoError(t, err)

	got, err := f.bookSvc.Get(ctx, testUser, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, got.CurrentPage)
	assert.Equal(t, models.BookStatusReading, got.Status)
}

// staleBooks answers GetByID with a snapshot taken before another entry
// committed.
type staleBooks struct {
	*fakeBooks
	snapshot models.Book
}

func (s staleBooks) GetByID(context.Context, string, string) (models.Book, error) {
	return s.snapshot, nil
}

func TestCreateEntryFromStaleSnapshotNeverRegressesBook(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, intPtr(100))

	_, err := f.entrySvc.Create(ctx, testUser, entry(book.ID, 1, 50))
	require.NoError(t, err)
	snapshot, err := f.books.GetByID(ctx, testUser, book.ID)
	require.NoError(t, err)

	_, err = f.entrySvc.Create(ctx, testUser, entry(book.ID, 51, 100))
	require.NoError(t, err)

	racing := NewReadingEntryService(f.entries, staleBooks{fakeBooks: f.books, snapshot: snapshot}, zerolog.Nop())
	racing.now = fixedClock(f.now)
	_, err = racing.Create(ctx, testUser, entry(book.ID, 51, 60))
	require.NoError(t, err)

	got, err := f.bookSvc.Get(ctx, testUser, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusCompleted, got.Status)
	assert.Equal(t, 100, got.CurrentPage)
	assert.Len(t, f.entries.entries, 3)
}

func TestCreateEntryValidation(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, intPtr(100))

	_, err := f.entrySvc.Create(ctx, testUser, entry(book.ID, 30, 10))
	assert.ErrorIs(t, err, ErrInvalidPageRange)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.entrySvc.Create(ctx, testUser, entry(book.ID, 0, 10))
	assert.ErrorIs(t, err, ErrInvalidPageRange)

	_, err = f.entrySvc.Create(ctx, testUser, entry(book.ID, 90, 101))
	assert.ErrorIs(t, err, ErrEndPageExceedsTotal)

	bad := entry(book.ID, 1, 2)
	bad.Rating = 6
	_, err = f.entrySvc.Create(ctx, testUser, bad)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = f.entrySvc.Create(ctx, "intruder", entry(book.ID, 1, 2))
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.entries.entries)
}

func TestUpdateEntryLeavesBookAlone(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, intPtr(100))

	created, err := f.entrySvc.Create(ctx, testUser, entry(book.ID, 1, 40))
	require.NoError(t, err)

	updated, err := f.entrySvc.Update(ctx, testUser, created.ID, entry(book.ID, 1, 90))
	require.NoError(t, err)
	assert.Equal(t, 90, updated.EndPage)

	got, err := f.bookSvc.Get(ctx, testUser, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.CurrentPage)

	_, err = f.entrySvc.Update(ctx, testUser, "missing", entry(book.ID, 1, 2))
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestListEntriesByBookRequiresOwnership(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, nil)

	for i := 1; i <= 3; i++ {
		_, err := f.entrySvc.Create(ctx, testUser, entry(book.ID, i, i+1))
		require.NoError(t, err)
	}

	page, err := f.entrySvc.ListByBook(ctx, testUser, book.ID, PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.PageCount())
	assert.True(t, page.HasNext())

	_, err = f.entrySvc.ListByBook(ctx, "intruder", book.ID, PageRequest{})
	assert.ErrorIs(t, err, ErrBookNotFound)

	all, err := f.entrySvc.All(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteEntry(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, nil)
	created, err := f.entrySvc.Create(ctx, testUser, entry(book.ID, 1, 5))
	require.NoError(t, err)

	require.NoError(t, f.entrySvc.Delete(ctx, testUser, created.ID))
	assert.ErrorIs(t, f.entrySvc.Delete(ctx, testUser, created.ID), ErrEntryNotFound)
}
