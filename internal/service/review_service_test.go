package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaplog/internal/models"
)

func reviewInput() ReviewInput {
	return ReviewInput{
		CompletedDate:       time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		OverallImpression:   "Quietly radical.",
		KeyLearnings:        []string{"walls go both ways"},
		OverallRating:       5,
		RecommendationLevel: 4,
	}
}

func TestReviewRequiresCompletedBook(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, intPtr(100))

	_, err := f.reviewSvc.Create(ctx, testUser, book.ID, reviewInput())
	assert.ErrorIs(t, err, ErrBookNotCompleted)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.bookSvc.UpdateStatus(ctx, testUser, book.ID, models.BookStatusCompleted)
	require.NoError(t, err)

	review, err := f.reviewSvc.Create(ctx, testUser, book.ID, reviewInput())
	require.NoError(t, err)
	assert.Equal(t, 5, review.OverallRating)

	_, err = f.reviewSvc.Create(ctx, testUser, book.ID, reviewInput())
	assert.ErrorIs(t, err, ErrReviewExists)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestReviewOnForeignBookIsNotFound(t *testing.T) {
	f := newLibraryFixture()
	book := f.addBook(t, nil)

	_, err := f.reviewSvc.Create(context.Background(), "intruder", book.ID, reviewInput())
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestReviewValidation(t *testing.T) {
	f := newLibraryFixture()
	in := reviewInput()
	in.RecommendationLevel = 0

	_, err := f.reviewSvc.Create(context.Background(), testUser, "any", in)
	assert.ErrorIs(t, err, ErrInvalidRecommendation)
}

func TestReviewUpdateAndDelete(t *testing.T) {
	f := newLibraryFixture()
	ctx := context.Background()
	book := f.addBook(t, nil)
	_, err := f.bookSvc.UpdateStatus(ctx, testUser, book.ID, models.BookStatusCompleted)
	require.NoError(t, err)
	_, err = f.reviewSvc.Create(ctx, testUser, book.ID, reviewInput())
	require.NoError(t, err)

	in := reviewInput()
	in.OverallRating = 3
	updated, err := f.reviewSvc.Update(ctx, testUser, book.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.OverallRating)

	exists, err := f.reviewSvc.Exists(ctx, testUser, book.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	page, err := f.reviewSvc.List(ctx, testUser, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 10, page.PageSize)
	assert.Len(t, page.Items, 1)

	require.NoError(t, f.reviewSvc.Delete(ctx, testUser, book.ID))
	_, err = f.reviewSvc.GetByBook(ctx, testUser, book.ID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
	assert.ErrorIs(t, f.reviewSvc.Delete(ctx, testUser, book.ID), ErrReviewNotFound)
}
