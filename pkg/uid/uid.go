package uid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New generates a new random identifier.
func New() string {
	return uuid.New().String()
}

// NewSortable generates a time-ordered (v7) identifier, falling back to a
// random one if the clock source fails.
func NewSortable() string {
	id, err := uuid.NewV7()
	if err != nil {
		return New()
	}
	return id.String()
}

// ErrInvalidPlayer is returned by ParsePlayer for empty or malformed input.
var ErrInvalidPlayer = errors.New("invalid player uuid")

// ParsePlayer parses a player UUID in hyphenated or simple form.
func ParsePlayer(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: empty", ErrInvalidPlayer)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w %q", ErrInvalidPlayer, s)
	}
	return id, nil
}

// Simple renders a UUID as 32 lowercase hex characters without hyphens.
func Simple(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
