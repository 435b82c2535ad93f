package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"chaplog/internal/models"
	"chaplog/internal/repository"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
	minStatisticsYear    = 2000
)

var ErrInvalidLimit = newError(ErrValidation, "Limit must be between 1 and 100")

type Summary struct {
	TotalBooks     int
	CompletedBooks int
	ReadingBooks   int
	UnreadBooks    int
	TotalPagesRead int
	AverageRating  float64
	ReadingStreak  int
	BooksThisMonth int
	PagesThisMonth int
	BooksThisYear  int
	PagesThisYear  int
}

type MonthlyData struct {
	Month          string
	BooksCompleted int
	PagesRead      int
	EntriesCount   int
}

type MonthlyStatistics struct {
	Year                   int
	Months                 []MonthlyData
	TotalEntries           int
	TotalBooksCompleted    int
	AverageEntriesPerMonth float64
	MostActiveMonth        int
}

type GenreData struct {
	Genre      string
	Count      int
	Percentage float64
}

type GenreStatistics struct {
	Genres                     []GenreData
	TotalGenres                int
	MostReadGenre              *string
	HighestCompletionRateGenre *string
}

type ActivityType string

const (
	ActivityBookAdded   ActivityType = "book_added"
	ActivityBookUpdated ActivityType = "book_updated"
	ActivityEntryAdded  ActivityType = "entry_added"
	ActivityReviewAdded ActivityType = "review_added"
)

type Activity struct {
	Date        time.Time
	Type        ActivityType
	Description string
	BookTitle   string
	BookID      string
	PagesRead   *int
	Chapter     *string
	Rating      *int
}

type DailyReading struct {
	Date         time.Time
	PagesRead    int
	EntriesCount int
	BookTitles   []string
	HasReading   bool
}

type Heatmap struct {
	Year               int
	Month              int
	MonthName          string
	Days               []DailyReading
	TotalPages         int
	TotalEntries       int
	AveragePagesPerDay float64
	MaxPagesDay        int
	DaysWithReading    int
}

// StatisticsService computes reading statistics on demand. Nothing is
// cached.
type StatisticsService struct {
	stats StatisticsStore
	now   func() time.Time
}

func NewStatisticsService(stats StatisticsStore) *StatisticsService {
	return &StatisticsService{
		stats: stats,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *StatisticsService) Summary(ctx context.Context, userID string) (Summary, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	var (
		summary Summary
		counts  map[models.BookStatus]int
		dates   []time.Time
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.stats.BookStatusCounts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		summary.TotalPagesRead, err = s.stats.TotalPagesRead(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		summary.AverageRating, err = s.stats.AverageRating(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		dates, err = s.stats.ReadingDates(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		summary.BooksThisMonth, err = s.stats.ReviewsCompletedBetween(gctx, userID, monthStart, monthStart.AddDate(0, 1, 0))
		return err
	})
	g.Go(func() (err error) {
		summary.PagesThisMonth, err = s.stats.PagesReadBetween(gctx, userID, monthStart, monthStart.AddDate(0, 1, 0))
		return err
	})
	g.Go(func() (err error) {
		summary.BooksThisYear, err = s.stats.ReviewsCompletedBetween(gctx, userID, yearStart, yearStart.AddDate(1, 0, 0))
		return err
	})
	g.Go(func() (err error) {
		summary.PagesThisYear, err = s.stats.PagesReadBetween(gctx, userID, yearStart, yearStart.AddDate(1, 0, 0))
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("statistics summary: %w", err)
	}

	summary.CompletedBooks = counts[models.BookStatusCompleted]
	summary.ReadingBooks = counts[models.BookStatusReading]
	summary.UnreadBooks = counts[models.BookStatusUnread]
	for _, n := range counts {
		summary.TotalBooks += n
	}
	summary.AverageRating = round(summary.AverageRating, 2)
	summary.ReadingStreak = ReadingStreak(dates, now)
	return summary, nil
}

func (s *StatisticsService) Monthly(ctx context.Context, userID string, year int) (MonthlyStatistics, error) {
	if err := s.checkYear(year); err != nil {
		return MonthlyStatistics{}, err
	}

	months := make([]MonthlyData, 12)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range months {
		from := time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		row := &months[i]
		row.Month = monthName(i + 1)

		g.Go(func() (err error) {
			if row.EntriesCount, err = s.stats.EntriesBetween(gctx, userID, from, to); err != nil {
				return err
			}
			if row.BooksCompleted, err = s.stats.ReviewsCompletedBetween(gctx, userID, from, to); err != nil {
				return err
			}
			row.PagesRead, err = s.stats.PagesReadBetween(gctx, userID, from, to)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return MonthlyStatistics{}, fmt.Errorf("monthly statistics: %w", err)
	}

	return BuildMonthlyStatistics(year, months), nil
}

func (s *StatisticsService) Genres(ctx context.Context, userID string) (GenreStatistics, error) {
	var (
		counts []repository.GenreCount
		status map[models.BookStatus]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.stats.GenreCounts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		status, err = s.stats.BookStatusCounts(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return GenreStatistics{}, fmt.Errorf("genre statistics: %w", err)
	}

	total := 0
	for _, n := range status {
		total += n
	}
	return BuildGenreStatistics(counts, total), nil
}

// Activities merges recent book, entry and review events into one timeline.
func (s *StatisticsService) Activities(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if limit == 0 {
		limit = defaultActivityLimit
	}
	if limit < 1 || limit > maxActivityLimit {
		return nil, ErrInvalidLimit
	}

	var (
		books   []models.Book
		entries []models.ReadingEntry
		reviews []models.ReviewWithBook
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		books, err = s.stats.RecentBooks(gctx, userID, limit*2)
		return err
	})
	g.Go(func() (err error) {
		entries, err = s.stats.RecentEntries(gctx, userID, limit)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = s.stats.RecentReviews(gctx, userID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}

	return MergeActivities(books, entries, reviews, limit), nil
}

func (s *StatisticsService) Heatmap(ctx context.Context, userID string, year, month int) (Heatmap, error) {
	if err := s.checkYear(year); err != nil {
		return Heatmap{}, err
	}
	if month < 1 || month > 12 {
		return Heatmap{}, ErrInvalidMonth
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	entries, err := s.stats.EntriesInRange(ctx, userID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return Heatmap{}, fmt.Errorf("daily heatmap: %w", err)
	}
	return BuildHeatmap(year, month, entries), nil
}

func (s *StatisticsService) checkYear(year int) error {
	if year < minStatisticsYear || year > s.now().Year()+1 {
		return ErrInvalidYear
	}
	return nil
}

// ReadingStreak walks the distinct reading dates, latest first, starting
// from today. A date on the cursor day or the day before it extends the
// streak and moves the cursor to the day before that date.
func ReadingStreak(dates []time.Time, today time.Time) int {
	cursor := dateOnly(today)
	streak := 0
	var previous time.Time
	for i, d := range dates {
		day := dateOnly(d)
		if i > 0 && day.Equal(previous) {
			continue
		}
		previous = day

		if !day.Equal(cursor) && !day.Equal(cursor.AddDate(0, 0, -1)) {
			break
		}
		streak++
		cursor = day.AddDate(0, 0, -1)
	}
	return streak
}

func BuildMonthlyStatistics(year int, months []MonthlyData) MonthlyStatistics {
	stats := MonthlyStatistics{Year: year, Months: months, MostActiveMonth: 1}

	best := -1
	for i, m := range months {
		stats.TotalEntries += m.EntriesCount
		stats.TotalBooksCompleted += m.BooksCompleted
		if m.EntriesCount > best {
			best = m.EntriesCount
			stats.MostActiveMonth = i + 1
		}
	}
	stats.AverageEntriesPerMonth = round(float64(stats.TotalEntries)/12, 1)
	return stats
}

// BuildGenreStatistics ranks genres by book count. Percentages are shares
// of all the user's books, including those without a genre.
//
// HighestCompletionRateGenre ranks by that same share, so it always agrees
// with MostReadGenre. Clients rely on the field as it is.
func BuildGenreStatistics(counts []repository.GenreCount, totalBooks int) GenreStatistics {
	genres := make([]GenreData, 0, len(counts))
	for _, c := range counts {
		pct := 0.0
		if totalBooks > 0 {
			pct = round(float64(c.Count)/float64(totalBooks)*100, 1)
		}
		genres = append(genres, GenreData{Genre: c.Genre, Count: c.Count, Percentage: pct})
	}
	sort.SliceStable(genres, func(i, j int) bool {
		return genres[i].Count > genres[j].Count
	})

	stats := GenreStatistics{Genres: genres, TotalGenres: len(genres)}
	if len(genres) == 0 {
		return stats
	}

	most := genres[0].Genre
	stats.MostReadGenre = &most

	highest := genres[0]
	for _, g := range genres[1:] {
		if g.Percentage > highest.Percentage {
			highest = g
		}
	}
	stats.HighestCompletionRateGenre = &highest.Genre
	return stats
}

func MergeActivities(books []models.Book, entries []models.ReadingEntry, reviews []models.ReviewWithBook, limit int) []Activity {
	activities := make([]Activity, 0, len(books)*2+len(entries)+len(reviews))

	for _, b := range books {
		activities = append(activities, Activity{
			Date:        b.CreatedAt,
			Type:        ActivityBookAdded,
			Description: "書籍を追加しました",
			BookTitle:   b.Title,
			BookID:      b.ID,
		})
		if b.UpdatedAt.After(b.CreatedAt.Add(time.Second)) {
			activities = append(activities, Activity{
				Date:        b.UpdatedAt,
				Type:        ActivityBookUpdated,
				Description: "書籍情報を更新しました",
				BookTitle:   b.Title,
				BookID:      b.ID,
			})
		}
	}

	for _, e := range entries {
		pages := e.PagesRead()
		rating := e.Rating
		activities = append(activities, Activity{
			Date:        e.CreatedAt,
			Type:        ActivityEntryAdded,
			Description: fmt.Sprintf("%dページまで読みました", e.EndPage),
			BookTitle:   e.Book.Title,
			BookID:      e.BookID,
			PagesRead:   &pages,
			Chapter:     e.Chapter,
			Rating:      &rating,
		})
	}

	for _, r := range reviews {
		rating := r.OverallRating
		activities = append(activities, Activity{
			Date:        r.CreatedAt,
			Type:        ActivityReviewAdded,
			Description: "レビューを投稿しました",
			BookTitle:   r.BookTitle,
			BookID:      r.BookID,
			Rating:      &rating,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date.After(activities[j].Date)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities
}

// BuildHeatmap lays the month's entries out as one row per calendar day.
func BuildHeatmap(year, month int, entries []models.ReadingEntry) Heatmap {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDay := make(map[int][]models.ReadingEntry, daysInMonth)
	for _, e := range entries {
		d := dateOnly(e.ReadingDate)
		if d.Year() != year || int(d.Month()) != month {
			continue
		}
		byDay[d.Day()] = append(byDay[d.Day()], e)
	}

	heatmap := Heatmap{
		Year:      year,
		Month:     month,
		MonthName: monthName(month),
		Days:      make([]DailyReading, 0, daysInMonth),
	}
	for day := 1; day <= daysInMonth; day++ {
		row := DailyReading{
			Date:       first.AddDate(0, 0, day-1),
			BookTitles: []string{},
		}
		seen := map[string]struct{}{}
		for _, e := range byDay[day] {
			row.PagesRead += e.PagesRead()
			row.EntriesCount++
			if e.Book.Title == "" {
				continue
			}
			if _, ok := seen[e.Book.Title]; !ok {
				seen[e.Book.Title] = struct{}{}
				row.BookTitles = append(row.BookTitles, e.Book.Title)
			}
		}
		row.HasReading = row.PagesRead > 0

		heatmap.TotalPages += row.PagesRead
		heatmap.TotalEntries += row.EntriesCount
		if row.HasReading {
			heatmap.DaysWithReading++
		}
		if row.PagesRead > heatmap.MaxPagesDay {
			heatmap.MaxPagesDay = row.PagesRead
		}
		heatmap.Days = append(heatmap.Days, row)
	}

	if heatmap.DaysWithReading > 0 {
		heatmap.AveragePagesPerDay = round(float64(heatmap.TotalPages)/float64(daysInMonth), 1)
	}
	return heatmap
}

func monthName(month int) string {
	return fmt.Sprintf("%d月", month)
}

// round uses half-to-even rounding at the given number of decimals.
func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
