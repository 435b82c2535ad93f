package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chaplog/internal/models"
	"chaplog/internal/response"
	"chaplog/internal/service"
	"chaplog/internal/validation"
)

type bookListQuery struct {
	pageQuery
	Status     string `form:"status"`
	SearchTerm string `form:"searchTerm" binding:"max=200"`
	SortBy     string `form:"sortBy"`
	Ascending  bool   `form:"ascending"`
}

type bookRequest struct {
	Title           string  `json:"title" binding:"required,notblank,max=500"`
	Author          string  `json:"author" binding:"required,notblank,max=500"`
	Publisher       *string `json:"publisher" binding:"omitempty,max=256"`
	PublicationYear *int    `json:"publicationYear" binding:"omitempty,min=1000,max=9999"`
	TotalPages      *int    `json:"totalPages" binding:"omitempty,min=1"`
	Genre           *string `json:"genre" binding:"omitempty,max=100"`
	CoverImageURL   *string `json:"coverImageUrl" binding:"omitempty,url"`
	Notes           *string `json:"notes"`
}

func (r bookRequest) input() service.BookInput {
	return service.BookInput{
		Title:           strings.TrimSpace(r.Title),
		Author:          strings.TrimSpace(r.Author),
		Publisher:       r.Publisher,
		PublicationYear: r.PublicationYear,
		TotalPages:      r.TotalPages,
		Genre:           r.Genre,
		CoverImageURL:   r.CoverImageURL,
		Notes:           r.Notes,
	}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) ListBooks(c *gin.Context) {
	var q bookListQuery
	if !bindQuery(c, &q) {
		return
	}
	sort, err := models.ParseBookSort(q.SortBy)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldError{
			Field:   "sortBy",
			Message: "sortBy must be one of: createdAt, title, author, status",
		})
		return
	}

	query := service.BookQuery{
		PageRequest: q.request(),
		Search:      strings.TrimSpace(q.SearchTerm),
		Sort:        sort,
		Ascending:   q.Ascending,
	}
	if q.Status != "" {
		status := models.BookStatus(strings.ToLower(q.Status))
		query.Status = &status
	}

	page, err := h.svc.Books.List(c.Request.Context(), currentUser(c).ID, query)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, paged(page, toBook), "")
}

func (h HandlerSet) GetBook(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	book, err := h.svc.Books.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toBook(book), "")
}

func (h HandlerSet) BookExists(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	exists, err := h.svc.Books.Exists(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, exists, "")
}

func (h HandlerSet) CreateBook(c *gin.Context) {
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}
	book, err := h.svc.Books.Create(c.Request.Context(), currentUser(c).ID, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, toBook(book), "Book created")
}

func (h HandlerSet) UpdateBook(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}
	book, err := h.svc.Books.Update(c.Request.Context(), currentUser(c).ID, id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toBook(book), "Book updated")
}

func (h HandlerSet) DeleteBook(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Books.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, nil, "Book deleted")
}

func (h HandlerSet) UpdateBookStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	status := models.BookStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	book, err := h.svc.Books.UpdateStatus(c.Request.Context(), currentUser(c).ID, id, status)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toBook(book), "Status updated")
}
