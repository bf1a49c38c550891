package usecase

import (
	"fmt"
	"strings"

	"bakery-backend/internal/domain"
)

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

type ErrUnauthorized string

func (e ErrUnauthorized) Error() string { return string(e) }

type ErrForbidden string

func (e ErrForbidden) Error() string { return string(e) }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

// ErrInvalidTransition rejects a status change not permitted from the current
// state for the acting role, naming the valid alternatives.
type ErrInvalidTransition struct {
	From      domain.OrderStatus
	Requested domain.OrderStatus
	Valid     []domain.OrderStatus
}

func (e ErrInvalidTransition) Error() string {
	opts := "None"
	if len(e.Valid) > 0 {
		parts := make([]string, len(e.Valid))
		for i, s := range e.Valid {
			parts[i] = string(s)
		}
		opts = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("Cannot change status from '%s' to '%s'. Valid options: %s", e.From, e.Requested, opts)
}
