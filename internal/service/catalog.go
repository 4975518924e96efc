package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// TicketTypeAdmin is the management side of ticket type persistence.
type TicketTypeAdmin interface {
	Create(ctx context.Context, tt *model.TicketType) error
	GetByID(ctx context.Context, id uint64) (*model.TicketType, error)
	Update(ctx context.Context, tt *model.TicketType) error
	Delete(ctx context.Context, id uint64) error
}

// ErrDuplicateLabel is returned when an event already has a ticket type
// with the same label.
var ErrDuplicateLabel = errors.New("ticket type label already used for this event")

// CatalogService covers the management operations that touch sold
// inventory: ticket type edits and event deletion.
type CatalogService struct {
	tx     Transactor
	events EventStore
	types  TicketTypeAdmin
	orders OrderStore
	logger echo.Logger
}

// NewCatalogService returns a CatalogService.
func NewCatalogService(tx Transactor, events EventStore, types TicketTypeAdmin, orders OrderStore, logger echo.Logger) *CatalogService {
	return &CatalogService{tx: tx, events: events, types: types, orders: orders, logger: logger}
}

func validateTicketType(tt *model.TicketType) error {
	tt.Label = strings.TrimSpace(tt.Label)
	if tt.Label == "" {
		return fmt.Errorf("%w: label is required", ErrValidation)
	}
	if tt.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if tt.Price.Exponent() < -model.PriceScale && !tt.Price.Equal(tt.Price.Round(model.PriceScale)) {
		return fmt.Errorf("%w: price has more than %d decimals", ErrValidation, model.PriceScale)
	}
	if tt.Remaining < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	tt.Price = tt.Price.Round(model.PriceScale)
	return nil
}

func mapCatalogErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return ErrDuplicateLabel
	case errors.Is(err, repository.ErrEventNotFound), errors.Is(err, repository.ErrTicketTypeNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return translate(err)
}

// CreateTicketType adds a ticket type to an event.  Labels are unique per
// event.
func (s *CatalogService) CreateTicketType(ctx context.Context, actor model.Actor, tt *model.TicketType) error {
	if !actor.CanManage() {
		return ErrPermissionDenied
	}
	if err := validateTicketType(tt); err != nil {
		return err
	}
	return mapCatalogErr(s.types.Create(ctx, tt))
}

// UpdateTicketType edits a ticket type.  Tickets already sold keep their
// label and price.
func (s *CatalogService) UpdateTicketType(ctx context.Context, actor model.Actor, tt *model.TicketType) error {
	if !actor.CanManage() {
		return ErrPermissionDenied
	}
	if err := validateTicketType(tt); err != nil {
		return err
	}
	return mapCatalogErr(s.tx.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.types.GetByID(ctx, tt.ID)
		if err != nil {
			return err
		}
		tt.EventID = cur.EventID
		return s.types.Update(ctx, tt)
	}))
}

// DeleteTicketType removes a ticket type.  Sold tickets stay valid but
// are no longer restocked when cancelled.
func (s *CatalogService) DeleteTicketType(ctx context.Context, actor model.Actor, id uint64) error {
	if !actor.CanManage() {
		return ErrPermissionDenied
	}
	return mapCatalogErr(s.types.Delete(ctx, id))
}

// EventDeletion summarizes the orders touched by an event deletion.
type EventDeletion struct {
	EventID       uint64   `json:"event_id"`
	OrdersUpdated []uint64 `json:"orders_updated"`
	OrdersDeleted []uint64 `json:"orders_deleted"`
}

// DeleteEvent removes an event with its ticket types, speakers and
// tickets.  Orders that held tickets for it are recomputed from their
// remaining tickets, or deleted with their payment when none remain.
func (s *CatalogService) DeleteEvent(ctx context.Context, actor model.Actor, eventID uint64) (EventDeletion, error) {
	res := EventDeletion{EventID: eventID, OrdersUpdated: []uint64{}, OrdersDeleted: []uint64{}}
	if !actor.CanManage() {
		return res, ErrPermissionDenied
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		affected, err := s.events.OrderIDsWithTickets(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.events.Delete(ctx, eventID); err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				return fmt.Errorf("%w: event %d", ErrNotFound, eventID)
			}
			return err
		}
		for _, orderID := range affected {
			rest, err := s.orders.ListTicketsByOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if len(rest) == 0 {
				if err := s.orders.DeleteOrder(ctx, orderID); err != nil {
					return err
				}
				res.OrdersDeleted = append(res.OrdersDeleted, orderID)
				continue
			}
			if err := s.orders.UpdateOrderTotal(ctx, orderID, model.SumPrices(rest)); err != nil {
				return err
			}
			res.OrdersUpdated = append(res.OrdersUpdated, orderID)
		}
		return nil
	})
	if err != nil {
		return EventDeletion{EventID: eventID}, translate(err)
	}
	s.logger.Infoj(log.JSON{
		"msg": "event deleted", "event_id": eventID, "actor_id": actor.ID,
		"orders_updated": len(res.OrdersUpdated), "orders_deleted": len(res.OrdersDeleted),
	})
	return res, nil
}
