package models

import "time"

// RefreshToken is the stored form of an opaque refresh token. Only the
// SHA-256 of the raw value is persisted.
type RefreshToken struct {
	ID                  string
	UserID              string
	TokenHash           []byte
	ExpiresAt           time.Time
	CreatedAt           time.Time
	CreatedByIP         *string
	RevokedAt           *time.Time
	RevokedByIP         *string
	ReplacedByTokenHash []byte
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && !t.IsExpired(now)
}
