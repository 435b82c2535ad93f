package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chaplog/internal/export"
	"chaplog/internal/ids"
	"chaplog/internal/models"
	"chaplog/internal/response"
	"chaplog/internal/service"
	"chaplog/internal/validation"
)

type entryListQuery struct {
	pageQuery
	Search string `form:"search" binding:"max=200"`
	SortBy string `form:"sortBy"`
}

type entryRequest struct {
	BookID      string   `json:"bookId"`
	ReadingDate string   `json:"readingDate" binding:"required,isodate"`
	StartPage   int      `json:"startPage" binding:"required,min=1"`
	EndPage     int      `json:"endPage" binding:"required,min=1"`
	Chapter     *string  `json:"chapter" binding:"omitempty,max=256"`
	Notes       *string  `json:"notes"`
	Impression  *string  `json:"impression"`
	Learnings   []string `json:"learnings"`
	Rating      int      `json:"rating" binding:"required,min=1,max=5"`
}

func (r entryRequest) input(bookID string) (service.EntryInput, error) {
	date, err := parseDate("readingDate", r.ReadingDate)
	if err != nil {
		return service.EntryInput{}, err
	}
	return service.EntryInput{
		BookID:      bookID,
		ReadingDate: date,
		StartPage:   r.StartPage,
		EndPage:     r.EndPage,
		Chapter:     r.Chapter,
		Notes:       r.Notes,
		Impression:  r.Impression,
		Learnings:   r.Learnings,
		Rating:      r.Rating,
	}, nil
}

func (h HandlerSet) ListEntries(c *gin.Context) {
	var q entryListQuery
	if !bindQuery(c, &q) {
		return
	}
	sort, err := models.ParseEntrySort(q.SortBy)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldError{
			Field:   "sortBy",
			Message: "sortBy must be one of: date-desc, date-asc, rating-desc, rating-asc, pages-desc",
		})
		return
	}

	page, err := h.svc.Entries.List(c.Request.Context(), currentUser(c).ID, service.EntryQuery{
		PageRequest: q.request(),
		Search:      strings.TrimSpace(q.Search),
		Sort:        sort,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, paged(page, toEntry), "")
}

func (h HandlerSet) ListBookEntries(c *gin.Context) {
	bookID, ok := idParam(c, "bookId")
	if !ok {
		return
	}
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.svc.Entries.ListByBook(c.Request.Context(), currentUser(c).ID, bookID, q.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, paged(page, toEntry), "")
}

func (h HandlerSet) GetEntry(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.svc.Entries.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toEntry(entry), "")
}

func (h HandlerSet) EntryExists(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	exists, err := h.svc.Entries.Exists(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, exists, "")
}

func (h HandlerSet) CreateEntry(c *gin.Context) {
	var req entryRequest
	if !bindJSON(c, &req) {
		return
	}
	bookID := strings.TrimSpace(req.BookID)
	if bookID == "" {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldError{
			Field:   "bookId",
			Message: "bookId is required",
		})
		return
	}
	if !ids.Valid(bookID) {
		response.Error(c, http.StatusBadRequest, "Validation failed", invalidID("bookId"))
		return
	}
	h.createEntry(c, req, bookID)
}

func (h HandlerSet) CreateEntryForBook(c *gin.Context) {
	bookID, ok := idParam(c, "bookId")
	if !ok {
		return
	}
	var req entryRequest
	if !bindJSON(c, &req) {
		return
	}
	h.createEntry(c, req, bookID)
}

func (h HandlerSet) createEntry(c *gin.Context, req entryRequest, bookID string) {
	in, err := req.input(bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.svc.Entries.Create(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, toEntry(entry), "Reading entry created")
}

func (h HandlerSet) UpdateEntry(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req entryRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input(req.BookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.svc.Entries.Update(c.Request.Context(), currentUser(c).ID, id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toEntry(entry), "Reading entry updated")
}

func (h HandlerSet) DeleteEntry(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Entries.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, nil, "Reading entry deleted")
}

// ExportEntries streams the caller's whole reading log as an XLSX workbook.
func (h HandlerSet) ExportEntries(c *gin.Context) {
	entries, err := h.svc.Entries.All(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteEntriesXLSX(&buf, entries); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(h.now())))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
