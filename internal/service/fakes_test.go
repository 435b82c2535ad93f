package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"chaplog/internal/models"
	"chaplog/internal/repository"
)

type fakeUsers struct {
	mu       sync.Mutex
	byID     map[string]models.User
	failures []int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.NormalizedEmail == user.NormalizedEmail {
			return repository.ErrDuplicate
		}
	}
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, normalizedEmail string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.NormalizedEmail == normalizedEmail {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) RecordLoginFailure(_ context.Context, id string, failedCount int, lockoutEnd *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.AccessFailedCount = failedCount
	u.LockoutEnd = lockoutEnd
	f.byID[id] = u
	f.failures = append(f.failures, failedCount)
	return nil
}

func (f *fakeUsers) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.AccessFailedCount = 0
	u.LockoutEnd = nil
	u.LastLoginAt = &at
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) List(_ context.Context, search string, limit, offset int) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.User
	for _, u := range f.byID {
		if search == "" || strings.Contains(strings.ToLower(u.Email+u.UserName), strings.ToLower(search)) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return window(all, limit, offset), len(all), nil
}

func (f *fakeUsers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID), nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]models.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byHash: map[string]models.RefreshToken{}}
}

func (f *fakeTokens) Create(_ context.Context, token models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[string(token.TokenHash)] = token
	return nil
}

func (f *fakeTokens) GetByHash(_ context.Context, hash []byte) (models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[string(hash)]
	if !ok {
		return models.RefreshToken{}, repository.ErrRefreshTokenNotFound
	}
	return t, nil
}

func (f *fakeTokens) Rotate(_ context.Context, current, next models.RefreshToken, ip *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byHash[string(current.TokenHash)]
	if !ok || stored.RevokedAt != nil {
		return repository.ErrRefreshTokenNotFound
	}
	stored.RevokedAt = &at
	stored.RevokedByIP = ip
	stored.ReplacedByTokenHash = next.TokenHash
	f.byHash[string(current.TokenHash)] = stored
	f.byHash[string(next.TokenHash)] = next
	return nil
}

func (f *fakeTokens) Revoke(_ context.Context, id string, ip *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, t := range f.byHash {
		if t.ID == id && t.RevokedAt == nil {
			t.RevokedAt = &at
			t.RevokedByIP = ip
			f.byHash[k] = t
			return nil
		}
	}
	return repository.ErrRefreshTokenNotFound
}

func (f *fakeTokens) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.byHash {
		if t.ExpiresAt.Before(before) || (t.RevokedAt != nil && t.RevokedAt.Before(before)) {
			delete(f.byHash, k)
			n++
		}
	}
	return n, nil
}

type fakeBooks struct {
	mu   sync.Mutex
	byID map[string]models.Book
}

func newFakeBooks() *fakeBooks {
	return &fakeBooks{byID: map[string]models.Book{}}
}

func (f *fakeBooks) put(book models.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[book.ID] = book
}

func (f *fakeBooks) Create(_ context.Context, book models.Book) error {
	f.put(book)
	return nil
}

func (f *fakeBooks) GetByID(_ context.Context, userID, id string) (models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok || b.UserID != userID {
		return models.Book{}, repository.ErrBookNotFound
	}
	return b, nil
}

func (f *fakeBooks) GetDetail(ctx context.Context, userID, id string) (models.BookDetail, error) {
	b, err := f.GetByID(ctx, userID, id)
	return models.BookDetail{Book: b}, err
}

func (f *fakeBooks) List(_ context.Context, userID string, filter repository.BookFilter) ([]models.BookDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.BookDetail
	for _, b := range f.byID {
		if b.UserID != userID || (filter.Status != nil && b.Status != *filter.Status) {
			continue
		}
		all = append(all, models.BookDetail{Book: b})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	return window(all, filter.Limit, filter.Offset), len(all), nil
}

func (f *fakeBooks) Update(_ context.Context, book models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[book.ID]
	if !ok || b.UserID != book.UserID {
		return repository.ErrBookNotFound
	}
	f.byID[book.ID] = book
	return nil
}

func (f *fakeBooks) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok || b.UserID != userID {
		return repository.ErrBookNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeBooks) Exists(ctx context.Context, userID, id string) (bool, error) {
	_, err := f.GetByID(ctx, userID, id)
	return err == nil, nil
}

type fakeEntries struct {
	mu      sync.Mutex
	books   *fakeBooks
	entries []models.ReadingEntry
}

func (f *fakeEntries) CreateWithProgress(ctx context.Context, entry models.ReadingEntry, at time.Time) (models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book, err := f.books.GetByID(ctx, entry.UserID, entry.BookID)
	if err != nil {
		return models.Book{}, err
	}
	f.entries = append(f.entries, entry)
	if book.ApplyProgress(entry.EndPage, at) {
		f.books.put(book)
	}
	return book, nil
}

func (f *fakeEntries) GetByID(_ context.Context, userID, id string) (models.ReadingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return models.ReadingEntry{}, repository.ErrEntryNotFound
}

func (f *fakeEntries) Update(_ context.Context, entry models.ReadingEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.ID == entry.ID && e.UserID == entry.UserID {
			f.entries[i] = entry
			return nil
		}
	}
	return repository.ErrEntryNotFound
}

func (f *fakeEntries) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.ID == id && e.UserID == userID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return repository.ErrEntryNotFound
}

func (f *fakeEntries) Exists(ctx context.Context, userID, id string) (bool, error) {
	_, err := f.GetByID(ctx, userID, id)
	return err == nil, nil
}

func (f *fakeEntries) ListByUser(_ context.Context, userID string, filter repository.EntryFilter) ([]models.ReadingEntry, int, error) {
	all := f.filter(func(e models.ReadingEntry) bool { return e.UserID == userID })
	return window(all, filter.Limit, filter.Offset), len(all), nil
}

func (f *fakeEntries) ListByBook(_ context.Context, userID, bookID string, limit, offset int) ([]models.ReadingEntry, int, error) {
	all := f.filter(func(e models.ReadingEntry) bool { return e.UserID == userID && e.BookID == bookID })
	return window(all, limit, offset), len(all), nil
}

func (f *fakeEntries) ListAll(_ context.Context, userID string) ([]models.ReadingEntry, error) {
	return f.filter(func(e models.ReadingEntry) bool { return e.UserID == userID }), nil
}

func (f *fakeEntries) filter(keep func(models.ReadingEntry) bool) []models.ReadingEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReadingEntry
	for _, e := range f.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

type fakeReviews struct {
	mu     sync.Mutex
	byBook map[string]models.BookReview
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{byBook: map[string]models.BookReview{}}
}

func (f *fakeReviews) Create(_ context.Context, review models.BookReview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byBook[review.BookID]; ok {
		return repository.ErrDuplicate
	}
	f.byBook[review.BookID] = review
	return nil
}

func (f *fakeReviews) GetByBook(_ context.Context, userID, bookID string) (models.BookReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byBook[bookID]
	if !ok || r.UserID != userID {
		return models.BookReview{}, repository.ErrReviewNotFound
	}
	return r, nil
}

func (f *fakeReviews) ExistsForBook(ctx context.Context, userID, bookID string) (bool, error) {
	_, err := f.GetByBook(ctx, userID, bookID)
	return err == nil, nil
}

func (f *fakeReviews) Update(_ context.Context, review models.BookReview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byBook[review.BookID]; !ok || r.UserID != review.UserID {
		return repository.ErrReviewNotFound
	}
	f.byBook[review.BookID] = review
	return nil
}

func (f *fakeReviews) DeleteByBook(_ context.Context, userID, bookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byBook[bookID]; !ok || r.UserID != userID {
		return repository.ErrReviewNotFound
	}
	delete(f.byBook, bookID)
	return nil
}

func (f *fakeReviews) ListWithBook(_ context.Context, userID string, limit, offset int) ([]models.ReviewWithBook, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.ReviewWithBook
	for _, r := range f.byBook {
		if r.UserID == userID {
			all = append(all, models.ReviewWithBook{BookReview: r})
		}
	}
	return window(all, limit, offset), len(all), nil
}

type fakeCoverStore struct {
	keys []string
	err  error
}

func (f *fakeCoverStore) PutCover(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
