package handlers

import (
	"time"

	"chaplog/internal/models"
	"chaplog/internal/service"
	"chaplog/internal/validation"
)

type userResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	UserName       string     `json:"userName"`
	Role           string     `json:"role"`
	EmailConfirmed bool       `json:"emailConfirmed"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLoginAt    *time.Time `json:"lastLoginAt"`
}

func toUser(u models.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		UserName:       u.UserName,
		Role:           string(u.Role),
		EmailConfirmed: u.EmailConfirmed,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

type bookResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Publisher       *string    `json:"publisher"`
	PublicationYear *int       `json:"publicationYear"`
	TotalPages      *int       `json:"totalPages"`
	Genre           *string    `json:"genre"`
	CoverImageURL   *string    `json:"coverImageUrl"`
	Status          string     `json:"status"`
	Notes           *string    `json:"notes"`
	CurrentPage     int        `json:"currentPage"`
	Progress        int        `json:"progress"`
	StartedAt       *time.Time `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	EntryCount      int        `json:"entryCount"`
	LastEntryDate   *string    `json:"lastEntryDate"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toBook(b models.BookDetail) bookResponse {
	return bookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
		TotalPages:      b.TotalPages,
		Genre:           b.Genre,
		CoverImageURL:   b.CoverImageURL,
		Status:          string(b.Status),
		Notes:           b.Notes,
		CurrentPage:     b.CurrentPage,
		Progress:        b.Progress(),
		StartedAt:       b.StartedAt,
		CompletedAt:     b.CompletedAt,
		EntryCount:      b.EntryCount,
		LastEntryDate:   formatDatePtr(b.LastEntryDate),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type bookRefResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type entryResponse struct {
	ID          string          `json:"id"`
	BookID      string          `json:"bookId"`
	Book        bookRefResponse `json:"book"`
	ReadingDate string          `json:"readingDate"`
	StartPage   int             `json:"startPage"`
	EndPage     int             `json:"endPage"`
	PagesRead   int             `json:"pagesRead"`
	Chapter     *string         `json:"chapter"`
	Notes       *string         `json:"notes"`
	Impression  *string         `json:"impression"`
	Learnings   []string        `json:"learnings"`
	Rating      int             `json:"rating"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toEntry(e models.ReadingEntry) entryResponse {
	learnings := e.Learnings
	if learnings == nil {
		learnings = []string{}
	}
	return entryResponse{
		ID:          e.ID,
		BookID:      e.BookID,
		Book:        bookRefResponse{ID: e.Book.ID, Title: e.Book.Title, Author: e.Book.Author},
		ReadingDate: formatDate(e.ReadingDate),
		StartPage:   e.StartPage,
		EndPage:     e.EndPage,
		PagesRead:   e.PagesRead(),
		Chapter:     e.Chapter,
		Notes:       e.Notes,
		Impression:  e.Impression,
		Learnings:   learnings,
		Rating:      e.Rating,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type reviewResponse struct {
	ID                  string    `json:"id"`
	BookID              string    `json:"bookId"`
	CompletedDate       string    `json:"completedDate"`
	OverallImpression   string    `json:"overallImpression"`
	KeyLearnings        []string  `json:"keyLearnings"`
	OverallRating       int       `json:"overallRating"`
	RecommendationLevel int       `json:"recommendationLevel"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func toReview(r models.BookReview) reviewResponse {
	learnings := r.KeyLearnings
	if learnings == nil {
		learnings = []string{}
	}
	return reviewResponse{
		ID:                  r.ID,
		BookID:              r.BookID,
		CompletedDate:       formatDate(r.CompletedDate),
		OverallImpression:   r.OverallImpression,
		KeyLearnings:        learnings,
		OverallRating:       r.OverallRating,
		RecommendationLevel: r.RecommendationLevel,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type reviewBookResponse struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Genre         *string `json:"genre"`
	TotalPages    *int    `json:"totalPages"`
	CoverImageURL *string `json:"coverImageUrl"`
}

type reviewWithBookResponse struct {
	reviewResponse
	Book reviewBookResponse `json:"book"`
}

func toReviewWithBook(r models.ReviewWithBook) reviewWithBookResponse {
	return reviewWithBookResponse{
		reviewResponse: toReview(r.BookReview),
		Book: reviewBookResponse{
			Title:         r.BookTitle,
			Author:        r.BookAuthor,
			Genre:         r.BookGenre,
			TotalPages:    r.BookTotalPages,
			CoverImageURL: r.BookCoverURL,
		},
	}
}

type summaryResponse struct {
	TotalBooks     int     `json:"totalBooks"`
	CompletedBooks int     `json:"completedBooks"`
	ReadingBooks   int     `json:"readingBooks"`
	UnreadBooks    int     `json:"unreadBooks"`
	TotalPagesRead int     `json:"totalPagesRead"`
	AverageRating  float64 `json:"averageRating"`
	ReadingStreak  int     `json:"readingStreak"`
	BooksThisMonth int     `json:"booksThisMonth"`
	PagesThisMonth int     `json:"pagesThisMonth"`
	BooksThisYear  int     `json:"booksThisYear"`
	PagesThisYear  int     `json:"pagesThisYear"`
}

type monthlyRow struct {
	Month          string `json:"month"`
	BooksCompleted int    `json:"booksCompleted"`
	PagesRead      int    `json:"pagesRead"`
	EntriesCount   int    `json:"entriesCount"`
}

type monthlyResponse struct {
	Year                   int          `json:"year"`
	MonthlyData            []monthlyRow `json:"monthlyData"`
	TotalEntries           int          `json:"totalEntries"`
	TotalBooksCompleted    int          `json:"totalBooksCompleted"`
	AverageEntriesPerMonth float64      `json:"averageEntriesPerMonth"`
	MostActiveMonth        int          `json:"mostActiveMonth"`
}

func toMonthly(m service.MonthlyStatistics) monthlyResponse {
	rows := make([]monthlyRow, 0, len(m.Months))
	for _, r := range m.Months {
		rows = append(rows, monthlyRow(r))
	}
	return monthlyResponse{
		Year:                   m.Year,
		MonthlyData:            rows,
		TotalEntries:           m.TotalEntries,
		TotalBooksCompleted:    m.TotalBooksCompleted,
		AverageEntriesPerMonth: m.AverageEntriesPerMonth,
		MostActiveMonth:        m.MostActiveMonth,
	}
}

type genreRow struct {
	Genre      string  `json:"genre"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type genresResponse struct {
	Genres                     []genreRow `json:"genres"`
	TotalGenres                int        `json:"totalGenres"`
	MostReadGenre              *string    `json:"mostReadGenre"`
	HighestCompletionRateGenre *string    `json:"highestCompletionRateGenre"`
}

func toGenres(g service.GenreStatistics) genresResponse {
	rows := make([]genreRow, 0, len(g.Genres))
	for _, r := range g.Genres {
		rows = append(rows, genreRow(r))
	}
	return genresResponse{
		Genres:                     rows,
		TotalGenres:                g.TotalGenres,
		MostReadGenre:              g.MostReadGenre,
		HighestCompletionRateGenre: g.HighestCompletionRateGenre,
	}
}

type activityResponse struct {
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	BookTitle   string    `json:"bookTitle"`
	BookID      string    `json:"bookId"`
	PagesRead   *int      `json:"pagesRead,omitempty"`
	Chapter     *string   `json:"chapter,omitempty"`
	Rating      *int      `json:"rating,omitempty"`
}

func toActivity(a service.Activity) activityResponse {
	return activityResponse{
		Date:        a.Date,
		Type:        string(a.Type),
		Description: a.Description,
		BookTitle:   a.BookTitle,
		BookID:      a.BookID,
		PagesRead:   a.PagesRead,
		Chapter:     a.Chapter,
		Rating:      a.Rating,
	}
}

type dailyRow struct {
	Date         string   `json:"date"`
	PagesRead    int      `json:"pagesRead"`
	EntriesCount int      `json:"entriesCount"`
	BookTitles   []string `json:"bookTitles"`
	HasReading   bool     `json:"hasReading"`
}

type heatmapResponse struct {
	Year               int        `json:"year"`
	Month              int        `json:"month"`
	MonthName          string     `json:"monthName"`
	DailyData          []dailyRow `json:"dailyData"`
	TotalPages         int        `json:"totalPages"`
	TotalEntries       int        `json:"totalEntries"`
	AveragePagesPerDay float64    `json:"averagePagesPerDay"`
	MaxPagesDay        int        `json:"maxPagesDay"`
	DaysWithReading    int        `json:"daysWithReading"`
}

func toHeatmap(m service.Heatmap) heatmapResponse {
	rows := make([]dailyRow, 0, len(m.Days))
	for _, d := range m.Days {
		rows = append(rows, dailyRow{
			Date:         formatDate(d.Date),
			PagesRead:    d.PagesRead,
			EntriesCount: d.EntriesCount,
			BookTitles:   d.BookTitles,
			HasReading:   d.HasReading,
		})
	}
	return heatmapResponse{
		Year:               m.Year,
		Month:              m.Month,
		MonthName:          m.MonthName,
		DailyData:          rows,
		TotalPages:         m.TotalPages,
		TotalEntries:       m.TotalEntries,
		AveragePagesPerDay: m.AveragePagesPerDay,
		MaxPagesDay:        m.MaxPagesDay,
		DaysWithReading:    m.DaysWithReading,
	}
}

func formatDate(t time.Time) string {
	return t.Format(validation.DateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}
