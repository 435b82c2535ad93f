package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chaplog/internal/response"
	"chaplog/internal/validation"
)

// UploadCover accepts a multipart "file" field and stores it as the book's
// cover image.
func (h HandlerSet) UploadCover(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldError{
			Field:   "file",
			Message: "file is required",
		})
		return
	}
	defer file.Close()

	user := currentUser(c)
	book, err := h.svc.Covers.Upload(c.Request.Context(), user.ID, id, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Str("book_id", id).Msg("cover upload failed")
		h.fail(c, err)
		return
	}
	response.OK(c, toBook(book), "Cover uploaded")
}
