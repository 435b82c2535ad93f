package models

import (
	"fmt"
	"strings"
	"time"
)

type BookStatus string

const (
	BookStatusUnread    BookStatus = "unread"
	BookStatusReading   BookStatus = "reading"
	BookStatusCompleted BookStatus = "completed"
)

func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusUnread, BookStatusReading, BookStatusCompleted:
		return true
	}
	return false
}

type Book struct {
	ID              string
	UserID          string
	Title           string
	Author          string
	Publisher       *string
	PublicationYear *int
	TotalPages      *int
	Genre           *string
	CoverImageURL   *string
	Status          BookStatus
	Notes           *string
	CurrentPage     int
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetStatus applies an explicit status change. Completing a book with a known
// length moves the bookmark to the last page.
func (b *Book) SetStatus(status BookStatus, now time.Time) {
	b.Status = status
	switch status {
	case BookStatusReading:
		if b.StartedAt == nil {
			b.StartedAt = &now
		}
		b.CompletedAt = nil
	case BookStatusCompleted:
		if b.TotalPages != nil {
			b.CurrentPage = *b.TotalPages
		}
		if b.StartedAt == nil {
			b.StartedAt = &now
		}
		if b.CompletedAt == nil {
			b.CompletedAt = &now
		}
	default:
		b.CompletedAt = nil
	}
	b.UpdatedAt = now
}

// ApplyProgress advances the bookmark after a reading session ending at
// endPage. It reports whether the book changed; smaller pages never move the
// bookmark back and the status never regresses.
func (b *Book) ApplyProgress(endPage int, now time.Time) bool {
	if endPage <= b.CurrentPage {
		return false
	}
	b.CurrentPage = endPage

	if b.Status == BookStatusUnread {
		b.Status = BookStatusReading
		if b.StartedAt == nil {
			b.StartedAt = &now
		}
	}
	if b.TotalPages != nil && b.CurrentPage >= *b.TotalPages {
		b.Status = BookStatusCompleted
		if b.CompletedAt == nil {
			b.CompletedAt = &now
		}
	}

	b.UpdatedAt = now
	return true
}

// Progress is the share of pages read as a whole percentage, 0 when the
// length is unknown.
func (b Book) Progress() int {
	if b.TotalPages == nil || *b.TotalPages <= 0 {
		return 0
	}
	pct := b.CurrentPage * 100 / *b.TotalPages
	if pct > 100 {
		return 100
	}
	return pct
}

// BookDetail is a book together with its reading-log rollup.
type BookDetail struct {
	Book
	EntryCount    int
	LastEntryDate *time.Time
}

// BookRef is the slice of a book embedded in entries and reviews.
type BookRef struct {
	ID     string
	Title  string
	Author string
}

type BookSort string

const (
	BookSortCreatedAt BookSort = "createdAt"
	BookSortTitle     BookSort = "title"
	BookSortAuthor    BookSort = "author"
	BookSortStatus    BookSort = "status"
)

// ParseBookSort accepts the book list sort keys case-insensitively. An empty
// key selects the creation date.
func ParseBookSort(raw string) (BookSort, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "createdat":
		return BookSortCreatedAt, nil
	case "title":
		return BookSortTitle, nil
	case "author":
		return BookSortAuthor, nil
	case "status":
		return BookSortStatus, nil
	}
	return "", fmt.Errorf("unsupported sort key %q", raw)
}
