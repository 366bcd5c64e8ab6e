package service

import (
	"errors"
	"fmt"

	"plus-api/internal/model"
)

var (
	// ErrBillingUnavailable wraps failures talking to the billing provider.
	ErrBillingUnavailable = errors.New("billing provider unavailable")

	// ErrInvalidToken is returned for any token that fails validation.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// SelectionReason classifies a rejected active selection.
type SelectionReason string

const (
	ReasonUnknownCategory   SelectionReason = "unknown_category"
	ReasonDuplicateCategory SelectionReason = "duplicate_category"
	ReasonInvalidCosmetic   SelectionReason = "invalid_cosmetic"
	ReasonNotOwned          SelectionReason = "not_owned"
)

// SelectionError rejects a whole selection update. It names the first
// offending category and, when relevant, the cosmetic id.
type SelectionError struct {
	Category string
	ID       *int64
	Reason   SelectionReason
}

func (e *SelectionError) Error() string {
	switch e.Reason {
	case ReasonUnknownCategory:
		return fmt.Sprintf("unknown cosmetic category %q", e.Category)
	case ReasonDuplicateCategory:
		return fmt.Sprintf("cosmetic category %q given more than once", e.Category)
	case ReasonNotOwned:
		return fmt.Sprintf("cosmetic %d is not owned (category %q)", *e.ID, e.Category)
	default:
		return fmt.Sprintf("cosmetic %d is not a valid %s", *e.ID, e.Category)
	}
}

func newSelectionError(category model.Category, id int64, reason SelectionReason) *SelectionError {
	return &SelectionError{Category: string(category), ID: &id, Reason: reason}
}
