package models

import "time"

type BookReview struct {
	ID                  string
	BookID              string
	UserID              string
	CompletedDate       time.Time
	OverallImpression   string
	KeyLearnings        []string
	OverallRating       int
	RecommendationLevel int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ReviewWithBook struct {
	BookReview
	BookTitle      string
	BookAuthor     string
	BookGenre      *string
	BookTotalPages *int
	BookCoverURL   *string
}
