package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// Ledger owns the remaining-quantity counters of ticket types.  Its
// methods should run inside Transactor.WithTx: Lookup takes a row lock
// that is held until the transaction ends, and Take refuses to drive a
// counter below zero even without that lock.
type Ledger struct {
	types TicketTypeStore
}

// NewLedger returns a Ledger over the given store.
func NewLedger(types TicketTypeStore) *Ledger { return &Ledger{types: types} }

// Lookup locks and returns the ticket type of eventID labelled label.
func (l *Ledger) Lookup(ctx context.Context, eventID uint64, label string) (*model.TicketType, error) {
	tt, err := l.types.GetByLabelForUpdate(ctx, eventID, label)
	if errors.Is(err, repository.ErrTicketTypeNotFound) {
		return nil, fmt.Errorf("%w: %q for event %d", ErrUnknownTicketType, label, eventID)
	}
	if err != nil {
		return nil, err
	}
	return tt, nil
}

// Take removes qty tickets from a locked ticket type and updates
// tt.Remaining to match.
func (l *Ledger) Take(ctx context.Context, tt *model.TicketType, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: %w: quantity must be at least 1", ErrValidation, ErrInsufficientInventory)
	}
	if qty > tt.Remaining {
		return fmt.Errorf("%w: %d requested, %d remaining", ErrInsufficientInventory, qty, tt.Remaining)
	}
	ok, err := l.types.DecrementRemaining(ctx, tt.ID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: sold out while booking", ErrInsufficientInventory)
	}
	tt.Remaining -= qty
	return nil
}

// Reserve takes qty tickets of the labelled type.
func (l *Ledger) Reserve(ctx context.Context, eventID uint64, label string, qty int) (*model.TicketType, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: %w: quantity must be at least 1", ErrValidation, ErrInsufficientInventory)
	}
	tt, err := l.Lookup(ctx, eventID, label)
	if err != nil {
		return nil, err
	}
	if err := l.Take(ctx, tt, qty); err != nil {
		return nil, err
	}
	return tt, nil
}

// Release returns qty tickets to the labelled type.  Callers must only
// release what they reserved before.
func (l *Ledger) Release(ctx context.Context, eventID uint64, label string, qty int) (*model.TicketType, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: release quantity must be at least 1", ErrValidation)
	}
	tt, err := l.Lookup(ctx, eventID, label)
	if err != nil {
		return nil, err
	}
	if err := l.types.IncrementRemaining(ctx, tt.ID, qty); err != nil {
		if errors.Is(err, repository.ErrTicketTypeNotFound) {
			return nil, fmt.Errorf("%w: %q for event %d", ErrUnknownTicketType, label, eventID)
		}
		return nil, err
	}
	tt.Remaining += qty
	return tt, nil
}
