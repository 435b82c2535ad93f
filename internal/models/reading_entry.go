package models

import (
	"fmt"
	"strings"
	"time"
)

type ReadingEntry struct {
	ID          string
	BookID      string
	UserID      string
	Book        BookRef
	ReadingDate time.Time
	StartPage   int
	EndPage     int
	Chapter     *string
	Notes       *string
	Impression  *string
	Learnings   []string
	Rating      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PagesRead counts both boundary pages.
func (e ReadingEntry) PagesRead() int {
	return e.EndPage - e.StartPage + 1
}

type EntrySort string

const (
	EntrySortDateDesc   EntrySort = "date-desc"
	EntrySortDateAsc    EntrySort = "date-asc"
	EntrySortRatingDesc EntrySort = "rating-desc"
	EntrySortRatingAsc  EntrySort = "rating-asc"
	EntrySortPagesDesc  EntrySort = "pages-desc"
)

func ParseEntrySort(raw string) (EntrySort, error) {
	switch s := EntrySort(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return EntrySortDateDesc, nil
	case EntrySortDateDesc, EntrySortDateAsc, EntrySortRatingDesc, EntrySortRatingAsc, EntrySortPagesDesc:
		return s, nil
	}
	return "", fmt.Errorf("unsupported sort key %q", raw)
}
