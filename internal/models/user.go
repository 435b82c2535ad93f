package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "User"
	UserRoleAdmin UserRole = "Admin"
)

type User struct {
	ID                 string
	Email              string
	NormalizedEmail    string
	UserName           string
	NormalizedUserName string
	PasswordHash       []byte
	SecurityStamp      string
	ConcurrencyStamp   string
	EmailConfirmed     bool
	LockoutEnabled     bool
	LockoutEnd         *time.Time
	AccessFailedCount  int
	Role               UserRole
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastLoginAt        *time.Time
}

// IsLockedOut reports whether a lockout is still in force at now.
func (u User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}
