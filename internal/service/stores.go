package service

import (
	"context"
	"time"

	"chaplog/internal/models"
	"chaplog/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, normalizedEmail string) (models.User, error)
	RecordLoginFailure(ctx context.Context, id string, failedCount int, lockoutEnd *time.Time) error
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, search string, limit, offset int) ([]models.User, int, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	GetByHash(ctx context.Context, hash []byte) (models.RefreshToken, error)
	Rotate(ctx context.Context, current, next models.RefreshToken, ip *string, at time.Time) error
	Revoke(ctx context.Context, id string, ip *string, at time.Time) error
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type BookStore interface {
	Create(ctx context.Context, book models.Book) error
	GetByID(ctx context.Context, userID, id string) (models.Book, error)
	GetDetail(ctx context.Context, userID, id string) (models.BookDetail, error)
	List(ctx context.Context, userID string, filter repository.BookFilter) ([]models.BookDetail, int, error)
	Update(ctx context.Context, book models.Book) error
	Delete(ctx context.Context, userID, id string) error
	Exists(ctx context.Context, userID, id string) (bool, error)
}

type ReadingEntryStore interface {
	CreateWithProgress(ctx context.Context, entry models.ReadingEntry, at time.Time) (models.Book, error)
	GetByID(ctx context.Context, userID, id string) (models.ReadingEntry, error)
	Update(ctx context.Context, entry models.ReadingEntry) error
	Delete(ctx context.Context, userID, id string) error
	Exists(ctx context.Context, userID, id string) (bool, error)
	ListByUser(ctx context.Context, userID string, filter repository.EntryFilter) ([]models.ReadingEntry, int, error)
	ListByBook(ctx context.Context, userID, bookID string, limit, offset int) ([]models.ReadingEntry, int, error)
	ListAll(ctx context.Context, userID string) ([]models.ReadingEntry, error)
}

type ReviewStore interface {
	Create(ctx context.Context, review models.BookReview) error
	GetByBook(ctx context.Context, userID, bookID string) (models.BookReview, error)
	ExistsForBook(ctx context.Context, userID, bookID string) (bool, error)
	Update(ctx context.Context, review models.BookReview) error
	DeleteByBook(ctx context.Context, userID, bookID string) error
	ListWithBook(ctx context.Context, userID string, limit, offset int) ([]models.ReviewWithBook, int, error)
}

type StatisticsStore interface {
	BookStatusCounts(ctx context.Context, userID string) (map[models.BookStatus]int, error)
	GenreCounts(ctx context.Context, userID string) ([]repository.GenreCount, error)
	TotalPagesRead(ctx context.Context, userID string) (int, error)
	AverageRating(ctx context.Context, userID string) (float64, error)
	ReadingDates(ctx context.Context, userID string) ([]time.Time, error)
	PagesReadBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	EntriesBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	ReviewsCompletedBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	RecentBooks(ctx context.Context, userID string, limit int) ([]models.Book, error)
	RecentEntries(ctx context.Context, userID string, limit int) ([]models.ReadingEntry, error)
	RecentReviews(ctx context.Context, userID string, limit int) ([]models.ReviewWithBook, error)
	EntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]models.ReadingEntry, error)
}

// CoverStore persists cover images and returns the public URL.
type CoverStore interface {
	PutCover(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
