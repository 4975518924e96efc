// Package service holds the ticket inventory ledger and the booking and
// cancellation workflows built on it.  Every workflow runs in a single
// scoped transaction and reports failures through the sentinel errors
// below; callers match them with errors.Is.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/event-ticketing/internal/repository"
)

var (
	// ErrUnknownTicketType means the event has no ticket type with the
	// requested label.
	ErrUnknownTicketType = errors.New("unknown ticket type")
	// ErrInsufficientInventory means fewer tickets remain than requested.
	ErrInsufficientInventory = errors.New("not enough tickets available")
	// ErrNotFound means the ticket, order or event does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied means the actor lacks the role or ownership the
	// operation needs.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidation means the request itself is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrConcurrencyConflict means the transaction kept losing lock races
	// and was given up.  The caller may retry later.
	ErrConcurrencyConflict = errors.New("concurrent update conflict, try again")
	// ErrStore wraps any other persistence failure.
	ErrStore = errors.New("store failure")
)

var businessErrors = []error{
	ErrUnknownTicketType,
	ErrInsufficientInventory,
	ErrNotFound,
	ErrPermissionDenied,
	ErrValidation,
	ErrConcurrencyConflict,
	ErrStore,
}

// translate maps an error leaving a transaction onto the taxonomy.
// Business errors pass through, lock conflicts become
// ErrConcurrencyConflict and the rest become ErrStore.
func translate(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if repository.IsLockConflict(err) {
		return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}

// outcome names an error for metrics and logs.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnknownTicketType):
		return "unknown_ticket_type"
	case errors.Is(err, ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	}
	return "store_error"
}
