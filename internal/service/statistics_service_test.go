package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaplog/internal/models"
	"chaplog/internal/repository"
)

type fakeStats struct {
	counts   map[models.BookStatus]int
	genres   []repository.GenreCount
	pages    int
	avg      float64
	dates    []time.Time
	entries  []models.ReadingEntry
	reviews  []models.ReviewWithBook
	books    []models.Book
	failWith error
}

func (f *fakeStats) BookStatusCounts(context.Context, string) (map[models.BookStatus]int, error) {
	return f.counts, f.failWith
}

func (f *fakeStats) GenreCounts(context.Context, string) ([]repository.GenreCount, error) {
	return f.genres, nil
}

func (f *fakeStats) TotalPagesRead(context.Context, string) (int, error) { return f.pages, nil }

func (f *fakeStats) AverageRating(context.Context, string) (float64, error) { return f.avg, nil }

func (f *fakeStats) ReadingDates(context.Context, string) ([]time.Time, error) { return f.dates, nil }

func (f *fakeStats) PagesReadBetween(_ context.Context, _ string, from, to time.Time) (int, error) {
	total := 0
	for _, e := range f.inRange(from, to) {
		total += e.PagesRead()
	}
	return total, nil
}

func (f *fakeStats) EntriesBetween(_ context.Context, _ string, from, to time.Time) (int, error) {
	return len(f.inRange(from, to)), nil
}

func (f *fakeStats) ReviewsCompletedBetween(_ context.Context, _ string, from, to time.Time) (int, error) {
	n := 0
	for _, r := range f.reviews {
		if !r.CompletedDate.Before(from) && r.CompletedDate.Before(to) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStats) RecentBooks(context.Context, string, int) ([]models.Book, error) {
	return f.books, nil
}

func (f *fakeStats) RecentEntries(context.Context, string, int) ([]models.ReadingEntry, error) {
	return f.entries, nil
}

func (f *fakeStats) RecentReviews(context.Context, string, int) ([]models.ReviewWithBook, error) {
	return f.reviews, nil
}

func (f *fakeStats) EntriesInRange(_ context.Context, _ string, from, to time.Time) ([]models.ReadingEntry, error) {
	return f.inRange(from, to), nil
}

func (f *fakeStats) inRange(from, to time.Time) []models.ReadingEntry {
	var out []models.ReadingEntry
	for _, e := range f.entries {
		if !e.ReadingDate.Before(from) && e.ReadingDate.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func readingEntry(date time.Time, title string, start, end int) models.ReadingEntry {
	return models.ReadingEntry{
		ID:          title + date.Format("0102"),
		BookID:      "book-" + title,
		Book:        models.BookRef{ID: "book-" + title, Title: title},
		ReadingDate: date,
		StartPage:   start,
		EndPage:     end,
		Rating:      4,
		CreatedAt:   date.Add(20 * time.Hour),
	}
}

func TestReadingStreak(t *testing.T) {
	today := time.Date(2025, 8, 4, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, 2, ReadingStreak([]time.Time{day(2025, 8, 4), day(2025, 8, 3)}, today))
	assert.Equal(t, 0, ReadingStreak([]time.Time{day(2025, 8, 2)}, today))
	assert.Equal(t, 0, ReadingStreak(nil, today))
	assert.Equal(t, 1, ReadingStreak([]time.Time{day(2025, 8, 3), day(2025, 7, 30)}, today))
	assert.Equal(t, 3, ReadingStreak([]time.Time{day(2025, 8, 3), day(2025, 8, 2), day(2025, 8, 1)}, today))
	assert.Equal(t, 2, ReadingStreak([]time.Time{day(2025, 8, 4), day(2025, 8, 4), day(2025, 8, 3)}, today))
}

func TestHeatmapForEmptyMonth(t *testing.T) {
	heatmap := BuildHeatmap(2024, 2, nil)

	assert.Equal(t, "2月", heatmap.MonthName)
	require.Len(t, heatmap.Days, 29)
	for i, d := range heatmap.Days {
		assert.Equal(t, day(2024, 2, i+1), d.Date)
		assert.Zero(t, d.PagesRead)
		assert.Zero(t, d.EntriesCount)
		assert.False(t, d.HasReading)
		assert.NotNil(t, d.BookTitles)
	}
	assert.Zero(t, heatmap.AveragePagesPerDay)
	assert.Zero(t, heatmap.DaysWithReading)
	assert.Zero(t, heatmap.MaxPagesDay)
}

func TestHeatmapAggregatesDays(t *testing.T) {
	entries := []models.ReadingEntry{
		readingEntry(day(2025, 6, 3), "Dune", 1, 30),
		readingEntry(day(2025, 6, 3), "Dune", 31, 40),
		readingEntry(day(2025, 6, 3), "Emma", 1, 5),
		readingEntry(day(2025, 6, 20), "Emma", 6, 20),
	}

	heatmap := BuildHeatmap(2025, 6, entries)
	require.Len(t, heatmap.Days, 30)

	third := heatmap.Days[2]
	assert.Equal(t, 45, third.PagesRead)
	assert.Equal(t, 3, third.EntriesCount)
	assert.Equal(t, []string{"Dune", "Emma"}, third.BookTitles)
	assert.True(t, third.HasReading)

	assert.Equal(t, 60, heatmap.TotalPages)
	assert.Equal(t, 4, heatmap.TotalEntries)
	assert.Equal(t, 2, heatmap.DaysWithReading)
	assert.Equal(t, 45, heatmap.MaxPagesDay)
	assert.Equal(t, 2.0, heatmap.AveragePagesPerDay)
}

func TestBuildMonthlyStatistics(t *testing.T) {
	months := make([]MonthlyData, 12)
	months[2].EntriesCount = 4
	months[6].EntriesCount = 4
	months[6].BooksCompleted = 2
	months[9].EntriesCount = 1

	stats := BuildMonthlyStatistics(2025, months)
	assert.Equal(t, 9, stats.TotalEntries)
	assert.Equal(t, 2, stats.TotalBooksCompleted)
	assert.Equal(t, 3, stats.MostActiveMonth)
	assert.Equal(t, 0.8, stats.AverageEntriesPerMonth)

	empty := BuildMonthlyStatistics(2025, make([]MonthlyData, 12))
	assert.Equal(t, 1, empty.MostActiveMonth)
	assert.Zero(t, empty.AverageEntriesPerMonth)
}

func TestBuildGenreStatistics(t *testing.T) {
	stats := BuildGenreStatistics([]repository.GenreCount{
		{Genre: "Essay", Count: 1},
		{Genre: "SF", Count: 3},
		{Genre: "History", Count: 2},
	}, 8)

	require.Len(t, stats.Genres, 3)
	assert.Equal(t, "SF", stats.Genres[0].Genre)
	assert.Equal(t, 37.5, stats.Genres[0].Percentage)
	assert.Equal(t, 25.0, stats.Genres[1].Percentage)
	assert.Equal(t, 12.5, stats.Genres[2].Percentage)
	assert.Equal(t, 3, stats.TotalGenres)
	require.NotNil(t, stats.MostReadGenre)
	assert.Equal(t, "SF", *stats.MostReadGenre)
	require.NotNil(t, stats.HighestCompletionRateGenre)
	assert.Equal(t, "SF", *stats.HighestCompletionRateGenre)

	empty := BuildGenreStatistics(nil, 0)
	assert.Nil(t, empty.MostReadGenre)
	assert.Empty(t, empty.Genres)
}

func TestMergeActivities(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	chapter := "Part II"
	books := []models.Book{
		{ID: "b1", Title: "Dune", CreatedAt: base, UpdatedAt: base.Add(500 * time.Millisecond)},
		{ID: "b2", Title: "Emma", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(5 * time.Hour)},
	}
	entries := []models.ReadingEntry{{
		ID: "e1", BookID: "b1", Book: models.BookRef{ID: "b1", Title: "Dune"},
		StartPage: 10, EndPage: 29, Chapter: &chapter, Rating: 5, CreatedAt: base.Add(3 * time.Hour),
	}}
	reviews := []models.ReviewWithBook{{
		BookReview: models.BookReview{BookID: "b2", OverallRating: 4, CreatedAt: base.Add(4 * time.Hour)},
		BookTitle:  "Emma",
	}}

	activities := MergeActivities(books, entries, reviews, 10)
	require.Len(t, activities, 5)

	types := make([]ActivityType, 0, len(activities))
	for _, a := range activities {
		types = append(types, a.Type)
	}
	assert.Equal(t, []ActivityType{
		ActivityBookUpdated, ActivityReviewAdded, ActivityEntryAdded, ActivityBookAdded, ActivityBookAdded,
	}, types)

	assert.Equal(t, "書籍情報を更新しました", activities[0].Description)
	assert.Equal(t, "レビューを投稿しました", activities[1].Description)
	assert.Equal(t, "書籍を追加しました", activities[3].Description)

	entryActivity := activities[2]
	assert.Equal(t, "29ページまで読みました", entryActivity.Description)
	require.NotNil(t, entryActivity.PagesRead)
	assert.Equal(t, 20, *entryActivity.PagesRead)
	assert.Equal(t, &chapter, entryActivity.Chapter)

	assert.Len(t, MergeActivities(books, entries, reviews, 2), 2)
}

func TestSummary(t *testing.T) {
	now := time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC)
	stats := &fakeStats{
		counts: map[models.BookStatus]int{models.BookStatusCompleted: 2, models.BookStatusReading: 1, models.BookStatusUnread: 4},
		pages:  420,
		avg:    3.666666,
		dates:  []time.Time{day(2025, 8, 4), day(2025, 8, 3), day(2025, 7, 20)},
		entries: []models.ReadingEntry{
			readingEntry(day(2025, 8, 3), "Dune", 1, 10),
			readingEntry(day(2025, 7, 20), "Dune", 11, 40),
			readingEntry(day(2024, 12, 31), "Emma", 1, 100),
		},
		reviews: []models.ReviewWithBook{
			{BookReview: models.BookReview{CompletedDate: day(2025, 8, 1)}},
			{BookReview: models.BookReview{CompletedDate: day(2025, 2, 1)}},
		},
	}
	svc := NewStatisticsService(stats)
	svc.now = fixedClock(now)

	summary, err := svc.Summary(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.TotalBooks)
	assert.Equal(t, 2, summary.CompletedBooks)
	assert.Equal(t, 1, summary.ReadingBooks)
	assert.Equal(t, 4, summary.UnreadBooks)
	assert.Equal(t, 420, summary.TotalPagesRead)
	assert.Equal(t, 3.67, summary.AverageRating)
	assert.Equal(t, 2, summary.ReadingStreak)
	assert.Equal(t, 1, summary.BooksThisMonth)
	assert.Equal(t, 2, summary.BooksThisYear)
	assert.Equal(t, 10, summary.PagesThisMonth)
	assert.Equal(t, 40, summary.PagesThisYear)
}

func TestSummaryPropagatesStoreErrors(t *testing.T) {
	svc := NewStatisticsService(&fakeStats{failWith: errors.New("db down")})
	_, err := svc.Summary(context.Background(), testUser)
	assert.ErrorContains(t, err, "db down")
}

func TestMonthlyAndHeatmapValidateDates(t *testing.T) {
	svc := NewStatisticsService(&fakeStats{
		entries: []models.ReadingEntry{readingEntry(day(2025, 3, 9), "Dune", 1, 25)},
	})
	svc.now = fixedClock(time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Monthly(ctx, testUser, 1999)
	assert.ErrorIs(t, err, ErrInvalidYear)
	_, err = svc.Monthly(ctx, testUser, 2027)
	assert.ErrorIs(t, err, ErrInvalidYear)

	monthly, err := svc.Monthly(ctx, testUser, 2026)
	require.NoError(t, err)
	assert.Zero(t, monthly.TotalEntries)

	monthly, err = svc.Monthly(ctx, testUser, 2025)
	require.NoError(t, err)
	require.Len(t, monthly.Months, 12)
	assert.Equal(t, "3月", monthly.Months[2].Month)
	assert.Equal(t, 25, monthly.Months[2].PagesRead)
	assert.Equal(t, 3, monthly.MostActiveMonth)

	_, err = svc.Heatmap(ctx, testUser, 2025, 13)
	assert.ErrorIs(t, err, ErrInvalidMonth)

	heatmap, err := svc.Heatmap(ctx, testUser, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 25, heatmap.TotalPages)
	assert.Equal(t, 0.8, heatmap.AveragePagesPerDay)
}

func TestActivitiesLimit(t *testing.T) {
	svc := NewStatisticsService(&fakeStats{})
	_, err := svc.Activities(context.Background(), testUser, 101)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = svc.Activities(context.Background(), testUser, -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	activities, err := svc.Activities(context.Background(), testUser, 0)
	require.NoError(t, err)
	assert.Empty(t, activities)
}
