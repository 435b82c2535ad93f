package service

import "errors"

// Error kinds. Every error a service returns on purpose unwraps to exactly
// one of these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
)

var (
	ErrEmailAlreadyRegistered = newError(ErrConflict, "Email is already registered")
	ErrInvalidCredentials     = newError(ErrUnauthorized, "Invalid email or password")
	ErrLockedOut              = newError(ErrUnauthorized, "Account is locked out")
	ErrInvalidRefreshToken    = newError(ErrUnauthorized, "Invalid refresh token")
	ErrInvalidRevokeToken     = newError(ErrValidation, "Invalid refresh token")

	ErrUserNotFound      = newError(ErrNotFound, "User not found")
	ErrCannotDeleteAdmin = newError(ErrForbidden, "Cannot delete admin user")

	ErrBookNotFound  = newError(ErrNotFound, "Book not found")
	ErrInvalidStatus = newError(ErrValidation, "Invalid status")

	ErrEntryNotFound       = newError(ErrNotFound, "Reading entry not found")
	ErrInvalidPageRange    = newError(ErrValidation, "Invalid page range")
	ErrEndPageExceedsTotal = newError(ErrValidation, "End page exceeds total pages")
	ErrInvalidRating       = newError(ErrValidation, "Rating must be between 1 and 5")

	ErrReviewNotFound        = newError(ErrNotFound, "Review not found")
	ErrBookNotCompleted      = newError(ErrConflict, "Can only review completed books")
	ErrReviewExists          = newError(ErrConflict, "Review already exists for this book")
	ErrInvalidRecommendation = newError(ErrValidation, "Recommendation level must be between 1 and 5")

	ErrInvalidYear  = newError(ErrValidation, "Invalid year")
	ErrInvalidMonth = newError(ErrValidation, "Invalid month")

	ErrEmptyFile            = newError(ErrValidation, "File is empty")
	ErrCoverTooLarge        = newError(ErrValidation, "File exceeds the maximum cover size")
	ErrUnsupportedMediaType = newError(ErrValidation, "Unsupported image type")
	ErrContentTypeMismatch  = newError(ErrValidation, "Declared content type does not match the file")
	ErrStorageUnavailable   = newError(ErrUnavailable, "Cover storage is temporarily unavailable")
)

type serviceError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &serviceError{kind: kind, msg: msg}
}

func (e *serviceError) Error() string { return e.msg }

func (e *serviceError) Unwrap() error { return e.kind }

// Invalid builds a validation error with a caller-facing message.
func Invalid(msg string) error {
	return newError(ErrValidation, msg)
}
