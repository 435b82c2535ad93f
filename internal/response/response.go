// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chaplog/internal/validation"
)

type Envelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    any                     `json:"data"`
	Errors  []validation.FieldError `json:"errors"`
}

// Paged is the data payload of list endpoints.
type Paged[T any] struct {
	Items           []T  `json:"items"`
	TotalCount      int  `json:"totalCount"`
	PageCount       int  `json:"pageCount"`
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}

func OK(c *gin.Context, data any, message string) {
	JSON(c, http.StatusOK, data, message)
}

func Created(c *gin.Context, data any, message string) {
	JSON(c, http.StatusCreated, data, message)
}

func JSON(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
		Errors:  []validation.FieldError{},
	})
}

func Error(c *gin.Context, status int, message string, errs ...validation.FieldError) {
	c.JSON(status, failure(message, errs))
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message string, errs ...validation.FieldError) {
	c.AbortWithStatusJSON(status, failure(message, errs))
}

// TooManyRequests rejects a rate limited request, rounding the wait up to
// whole seconds.
func TooManyRequests(c *gin.Context, retryAfter time.Duration) {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	Abort(c, http.StatusTooManyRequests, "Too many requests. Please try again later.")
}

func failure(message string, errs []validation.FieldError) Envelope {
	if errs == nil {
		errs = []validation.FieldError{}
	}
	return Envelope{Success: false, Message: message, Errors: errs}
}
