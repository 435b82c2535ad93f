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

const defaultReviewPageSize = 10

type ReviewInput struct {
	CompletedDate       time.Time
	OverallImpression   string
	KeyLearnings        []string
	OverallRating       int
	RecommendationLevel int
}

type ReviewService struct {
	reviews ReviewStore
	books   BookStore
	log     zerolog.Logger
	now     func() time.Time
}

func NewReviewService(reviews ReviewStore, books BookStore, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		books:   books,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReviewService) List(ctx context.Context, userID string, page PageRequest) (Page[models.ReviewWithBook], error) {
	req := page.normalize(defaultReviewPageSize)
	reviews, total, err := s.reviews.ListWithBook(ctx, userID, req.PageSize, req.offset())
	if err != nil {
		return Page[models.ReviewWithBook]{}, err
	}
	return newPage(reviews, total, req), nil
}

func (s *ReviewService) GetByBook(ctx context.Context, userID, bookID string) (models.BookReview, error) {
	review, err := s.reviews.GetByBook(ctx, userID, bookID)
	return review, reviewErr(err)
}

func (s *ReviewService) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	return s.reviews.ExistsForBook(ctx, userID, bookID)
}

// Create reviews a finished book. Only completed books can be reviewed and
// each book takes a single review.
func (s *ReviewService) Create(ctx context.Context, userID, bookID string, in ReviewInput) (models.BookReview, error) {
	if err := validateReview(in); err != nil {
		return models.BookReview{}, err
	}

	book, err := s.books.GetByID(ctx, userID, bookID)
	if err != nil {
		return models.BookReview{}, bookErr(err)
	}
	if book.Status != models.BookStatusCompleted {
		return models.BookReview{}, ErrBookNotCompleted
	}

	exists, err := s.reviews.ExistsForBook(ctx, userID, bookID)
	if err != nil {
		return models.BookReview{}, err
	}
	if exists {
		return models.BookReview{}, ErrReviewExists
	}

	now := s.now()
	review := models.BookReview{
		ID:        ids.New(),
		BookID:    bookID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&review)

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.BookReview{}, ErrReviewExists
		}
		return models.BookReview{}, err
	}
	s.log.Info().Str("user_id", userID).Str("book_id", bookID).Msg("review created")
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, userID, bookID string, in ReviewInput) (models.BookReview, error) {
	if err := validateReview(in); err != nil {
		return models.BookReview{}, err
	}

	review, err := s.reviews.GetByBook(ctx, userID, bookID)
	if err != nil {
		return models.BookReview{}, reviewErr(err)
	}

	in.apply(&review)
	review.UpdatedAt = s.now()
	if err := s.reviews.Update(ctx, review); err != nil {
		return models.BookReview{}, reviewErr(err)
	}
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, userID, bookID string) error {
	return reviewErr(s.reviews.DeleteByBook(ctx, userID, bookID))
}

func validateReview(in ReviewInput) error {
	if in.OverallRating < 1 || in.OverallRating > 5 {
		return ErrInvalidRating
	}
	if in.RecommendationLevel < 1 || in.RecommendationLevel > 5 {
		return ErrInvalidRecommendation
	}
	return nil
}

func (in ReviewInput) apply(review *models.BookReview) {
	review.CompletedDate = dateOnly(in.CompletedDate)
	review.OverallImpression = in.OverallImpression
	review.KeyLearnings = in.KeyLearnings
	if review.KeyLearnings == nil {
		review.KeyLearnings = []string{}
	}
	review.OverallRating = in.OverallRating
	review.RecommendationLevel = in.RecommendationLevel
}

func reviewErr(err error) error {
	if errors.Is(err, repository.ErrReviewNotFound) {
		return ErrReviewNotFound
	}
	return err
}
