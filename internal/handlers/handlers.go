package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chaplog/internal/ids"
	"chaplog/internal/middleware"
	"chaplog/internal/models"
	"chaplog/internal/response"
	"chaplog/internal/security"
	"chaplog/internal/service"
	"chaplog/internal/validation"
)

type Authenticator interface {
	Register(ctx context.Context, input service.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken, ipAddress string) (service.AuthResult, error)
	Revoke(ctx context.Context, userID, refreshToken, ipAddress string) error
	CurrentUser(ctx context.Context, userID string) (models.User, error)
}

type BookCatalog interface {
	List(ctx context.Context, userID string, q service.BookQuery) (service.Page[models.BookDetail], error)
	Get(ctx context.Context, userID, id string) (models.BookDetail, error)
	Exists(ctx context.Context, userID, id string) (bool, error)
	Create(ctx context.Context, userID string, in service.BookInput) (models.BookDetail, error)
	Update(ctx context.Context, userID, id string, in service.BookInput) (models.BookDetail, error)
	Delete(ctx context.Context, userID, id string) error
	UpdateStatus(ctx context.Context, userID, id string, status models.BookStatus) (models.BookDetail, error)
}

type CoverUploader interface {
	Upload(ctx context.Context, userID, bookID string, file io.Reader, declaredType string) (models.BookDetail, error)
}

type ReadingLog interface {
	List(ctx context.Context, userID string, q service.EntryQuery) (service.Page[models.ReadingEntry], error)
	ListByBook(ctx context.Context, userID, bookID string, page service.PageRequest) (service.Page[models.ReadingEntry], error)
	All(ctx context.Context, userID string) ([]models.ReadingEntry, error)
	Get(ctx context.Context, userID, id string) (models.ReadingEntry, error)
	Exists(ctx context.Context, userID, id string) (bool, error)
	Create(ctx context.Context, userID string, in service.EntryInput) (models.ReadingEntry, error)
	Update(ctx context.Context, userID, id string, in service.EntryInput) (models.ReadingEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

type ReviewJournal interface {
	List(ctx context.Context, userID string, page service.PageRequest) (service.Page[models.ReviewWithBook], error)
	GetByBook(ctx context.Context, userID, bookID string) (models.BookReview, error)
	Exists(ctx context.Context, userID, bookID string) (bool, error)
	Create(ctx context.Context, userID, bookID string, in service.ReviewInput) (models.BookReview, error)
	Update(ctx context.Context, userID, bookID string, in service.ReviewInput) (models.BookReview, error)
	Delete(ctx context.Context, userID, bookID string) error
}

type StatisticsReader interface {
	Summary(ctx context.Context, userID string) (service.Summary, error)
	Monthly(ctx context.Context, userID string, year int) (service.MonthlyStatistics, error)
	Genres(ctx context.Context, userID string) (service.GenreStatistics, error)
	Activities(ctx context.Context, userID string, limit int) ([]service.Activity, error)
	Heatmap(ctx context.Context, userID string, year, month int) (service.Heatmap, error)
}

type UserAdmin interface {
	ListUsers(ctx context.Context, search string, page service.PageRequest) (service.Page[models.User], error)
	CountUsers(ctx context.Context) (int, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Auth       Authenticator
	Books      BookCatalog
	Covers     CoverUploader
	Entries    ReadingLog
	Reviews    ReviewJournal
	Statistics StatisticsReader
	Admin      UserAdmin
}

type HandlerSet struct {
	log         zerolog.Logger
	environment string
	tokens      *security.TokenIssuer
	svc         Services
	checks      map[string]HealthCheck
	now         func() time.Time
}

func NewHandlerSet(log zerolog.Logger, environment string, tokens *security.TokenIssuer, svc Services, checks map[string]HealthCheck) HandlerSet {
	return HandlerSet{
		log:         log,
		environment: environment,
		tokens:      tokens,
		svc:         svc,
		checks:      checks,
		now:         time.Now,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authenticated := middleware.Auth(h.tokens, h.svc.Auth)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/refresh-token", h.RefreshToken)
		auth.POST("/revoke-token", authenticated, h.RevokeToken)
		auth.GET("/me", authenticated, h.Me)
		auth.GET("/validate", authenticated, h.Validate)
	}

	books := router.Group("/books", authenticated)
	{
		books.GET("", h.ListBooks)
		books.POST("", h.CreateBook)
		books.GET("/:id", h.GetBook)
		books.GET("/:id/exists", h.BookExists)
		books.PUT("/:id", h.UpdateBook)
		books.DELETE("/:id", h.DeleteBook)
		books.PATCH("/:id/status", h.UpdateBookStatus)
		books.POST("/:id/cover", h.UploadCover)
	}

	entries := router.Group("/reading-entries", authenticated)
	{
		entries.GET("", h.ListEntries)
		entries.POST("", h.CreateEntry)
		entries.GET("/export", h.ExportEntries)
		entries.GET("/book/:bookId", h.ListBookEntries)
		entries.POST("/book/:bookId", h.CreateEntryForBook)
		entries.GET("/:id", h.GetEntry)
		entries.GET("/:id/exists", h.EntryExists)
		entries.PUT("/:id", h.UpdateEntry)
		entries.DELETE("/:id", h.DeleteEntry)
	}

	reviews := router.Group("/book-reviews", authenticated)
	{
		reviews.GET("", h.ListReviews)
		reviews.GET("/book/:bookId", h.GetReview)
		reviews.GET("/book/:bookId/exists", h.ReviewExists)
		reviews.POST("/book/:bookId", h.CreateReview)
		reviews.PUT("/book/:bookId", h.UpdateReview)
		reviews.DELETE("/book/:bookId", h.DeleteReview)
	}

	stats := router.Group("/statistics", authenticated)
	{
		stats.GET("/summary", h.Summary)
		stats.GET("/monthly/:year", h.Monthly)
		stats.GET("/genres", h.Genres)
		stats.GET("/activities", h.Activities)
		stats.GET("/daily-heatmap/:year/:month", h.Heatmap)
	}

	admin := router.Group("/admin", authenticated, middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.GET("/users", h.AdminListUsers)
		admin.GET("/users/count", h.AdminCountUsers)
		admin.GET("/users/:id", h.AdminGetUser)
		admin.DELETE("/users/:id", h.AdminDeleteUser)
	}
}

type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

func (q pageQuery) request() service.PageRequest {
	return service.PageRequest{Page: q.Page, PageSize: q.PageSize}
}

func paged[T, D any](page service.Page[T], convert func(T) D) response.Paged[D] {
	items := make([]D, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return response.Paged[D]{
		Items:           items,
		TotalCount:      page.Total,
		PageCount:       page.PageCount(),
		CurrentPage:     page.Page,
		PageSize:        page.PageSize,
		HasPreviousPage: page.HasPrevious(),
		HasNextPage:     page.HasNext(),
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldErrors(err)...)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldErrors(err)...)
		return false
	}
	return true
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldError{
			Field:   name,
			Message: name + " must be a number",
		})
		return 0, false
	}
	return v, true
}

// idParam reads a path identifier. Anything that is not a UUID is rejected
// before it reaches a uuid column.
func idParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !ids.Valid(id) {
		response.Error(c, http.StatusBadRequest, "Validation failed", invalidID(name))
		return "", false
	}
	return id, true
}

func invalidID(field string) validation.FieldError {
	return validation.FieldError{
		Field:   field,
		Message: field + " must be a valid identifier",
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(validation.DateLayout, value)
	if err != nil {
		return time.Time{}, service.Invalid(field + " must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func currentUser(c *gin.Context) models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}

// fail maps a service error onto the envelope. Errors without a known kind
// are logged and answered with a 500 carrying the error text.
func (h HandlerSet) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.Error().Err(err).
			Str("route", c.FullPath()).
			Str("request_id", middleware.RequestIDFrom(c)).
			Msg("request failed")
	}
	response.Error(c, status, err.Error())
}
