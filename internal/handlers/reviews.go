package handlers

import (
	"github.com/gin-gonic/gin"

	"chaplog/internal/response"
	"chaplog/internal/service"
)

type reviewRequest struct {
	CompletedDate       string   `json:"completedDate" binding:"required,isodate"`
	OverallImpression   string   `json:"overallImpression" binding:"max=4000"`
	KeyLearnings        []string `json:"keyLearnings"`
	OverallRating       int      `json:"overallRating" binding:"required,min=1,max=5"`
	RecommendationLevel int      `json:"recommendationLevel" binding:"required,min=1,max=5"`
}

func (r reviewRequest) input() (service.ReviewInput, error) {
	date, err := parseDate("completedDate", r.CompletedDate)
	if err != nil {
		return service.ReviewInput{}, err
	}
	return service.ReviewInput{
		CompletedDate:       date,
		OverallImpression:   r.OverallImpression,
		KeyLearnings:        r.KeyLearnings,
		OverallRating:       r.OverallRating,
		RecommendationLevel: r.RecommendationLevel,
	}, nil
}

func (h HandlerSet) ListReviews(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.svc.Reviews.List(c.Request.Context(), currentUser(c).ID, q.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, paged(page, toReviewWithBook), "")
}

func (h HandlerSet) GetReview(c *gin.Context) {
	bookID, ok := idParam(c, "bookId")
	if !ok {
		return
	}
	review, err := h.svc.Reviews.GetByBook(c.Request.Context(), currentUser(c).ID, bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toReview(review), "")
}

func (h HandlerSet) ReviewExists(c *gin.Context) {
	bookID, ok := idParam(c, "bookId")
	if !ok {
		return
	}
	exists, err := h.svc.Reviews.Exists(c.Request.Context(), currentUser(c).ID, bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, exists, "")
}

func (h HandlerSet) CreateReview(c *gin.Context) {
	bookID, ok := idParam(c, "bookId")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(c, err)
		return
	}
	review, err := h.svc.Reviews.Create(c.Request.Context(), currentUser(c).ID, bookID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, toReview(review), "Review created")
}

func (h HandlerSet) UpdateReview(c *gin.Context) {
	bookID, ok := idParam(c, "bookId")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(c, err)
		return
	}
	review, err := h.svc.Reviews.Update(c.Request.Context(), currentUser(c).ID, bookID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toReview(review), "Review updated")
}

func (h HandlerSet) DeleteReview(c *gin.Context) {
	bookID, ok := idParam(c, "bookId")
	if !ok {
		return
	}
	if err := h.svc.Reviews.Delete(c.Request.Context(), currentUser(c).ID, bookID); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, nil, "Review deleted")
}
