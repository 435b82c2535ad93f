package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a random UUID used as a primary key.
func New() string {
	return uuid.NewString()
}

// NewSortable returns a KSUID, which orders by creation time. Object keys use it.
func NewSortable() string {
	return ksuid.New().String()
}

// Valid reports whether id is a UUID in the canonical 36 character form,
// the only form the repositories send to Postgres.
func Valid(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
