package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/monitoring"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// CancellationResult describes what a committed cancellation did to the
// parent order.
type CancellationResult struct {
	TicketID     uint64          `json:"ticket_id"`
	OrderID      uint64          `json:"order_id"`
	EventID      uint64          `json:"event_id"`
	Label        string          `json:"ticket_type"`
	OrderDeleted bool            `json:"order_deleted"`
	OrderTotal   decimal.Decimal `json:"-"`
	// Restocked is false when the ticket type had been deleted and the
	// ticket could not be returned to inventory.
	Restocked bool `json:"restocked"`
}

// CancellationService removes sold tickets and returns them to inventory.
type CancellationService struct {
	tx        Transactor
	orders    OrderStore
	ledger    *Ledger
	publisher Publisher
	logger    echo.Logger
	retry     retrier
	now       func() time.Time
}

// NewCancellationService wires the cancellation workflow.
func NewCancellationService(tx Transactor, types TicketTypeStore, orders OrderStore,
	cfg config.BookingConfig, publisher Publisher, logger echo.Logger) *CancellationService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &CancellationService{
		tx:        tx,
		orders:    orders,
		ledger:    NewLedger(types),
		publisher: publisher,
		logger:    logger,
		retry:     newRetrier(cfg.MaxAttempts, cfg.RetryBackoff),
		now:       time.Now,
	}
}

const (
	modeOwner = "owner"
	modeAdmin = "admin"
)

// CancelTicket lets the owner of a ticket give it back.
func (s *CancellationService) CancelTicket(ctx context.Context, actor model.Actor, ticketID uint64) (CancellationResult, error) {
	return s.run(ctx, actor, ticketID, modeOwner)
}

// DeleteTicket removes any ticket on behalf of an organizer or
// administrator.  Ownership is not checked; inventory is restocked the
// same way.
func (s *CancellationService) DeleteTicket(ctx context.Context, actor model.Actor, ticketID uint64) (CancellationResult, error) {
	return s.run(ctx, actor, ticketID, modeAdmin)
}

func (s *CancellationService) run(ctx context.Context, actor model.Actor, ticketID uint64, mode string) (CancellationResult, error) {
	start := time.Now()
	defer monitoring.ObserveWorkflow("cancel", start)

	res, err := s.cancel(ctx, actor, ticketID, mode)
	monitoring.TrackCancellation(mode, outcome(err))
	if err != nil {
		s.logger.Warnj(log.JSON{
			"msg": "cancellation failed", "ticket_id": ticketID, "actor_id": actor.ID,
			"mode": mode, "outcome": outcome(err), "error": err.Error(),
		})
		return CancellationResult{}, err
	}
	if !res.Restocked {
		monitoring.TrackRestockSkipped()
		s.logger.Warnj(log.JSON{
			"msg": "ticket type gone, cancelled ticket not restocked", "ticket_id": ticketID,
			"event_id": res.EventID, "ticket_type": res.Label,
		})
	}
	s.logger.Infoj(log.JSON{
		"msg": "ticket cancelled", "ticket_id": ticketID, "order_id": res.OrderID, "actor_id": actor.ID,
		"mode": mode, "order_deleted": res.OrderDeleted, "order_total": res.OrderTotal.StringFixed(model.PriceScale),
	})
	s.announce(ctx, actor, res, mode)
	return res, nil
}

func (s *CancellationService) cancel(ctx context.Context, actor model.Actor, ticketID uint64, mode string) (CancellationResult, error) {
	switch mode {
	case modeOwner:
		if !actor.Authenticated() {
			return CancellationResult{}, fmt.Errorf("%w: sign in to cancel tickets", ErrPermissionDenied)
		}
	case modeAdmin:
		if !actor.CanManage() {
			return CancellationResult{}, fmt.Errorf("%w: organizer or administrator role required", ErrPermissionDenied)
		}
	}

	var res CancellationResult
	err := s.retry.run(ctx, "cancel", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			r, err := s.cancelTx(ctx, actor, ticketID, mode == modeOwner)
			res = r
			return err
		})
	})
	if err != nil {
		return CancellationResult{}, err
	}
	return res, nil
}

// cancelTx is the transactional body shared by both cancellation modes.
func (s *CancellationService) cancelTx(ctx context.Context, actor model.Actor, ticketID uint64, checkOwner bool) (CancellationResult, error) {
	res := CancellationResult{TicketID: ticketID}

	ticket, err := s.orders.GetTicketForUpdate(ctx, ticketID)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return res, fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
	}
	if err != nil {
		return res, err
	}
	res.OrderID, res.EventID, res.Label = ticket.OrderID, ticket.EventID, ticket.Label

	order, err := s.orders.GetOrderForUpdate(ctx, ticket.OrderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return res, fmt.Errorf("%w: order %d", ErrNotFound, ticket.OrderID)
	}
	if err != nil {
		return res, err
	}
	if checkOwner && order.UserID != actor.ID {
		return res, fmt.Errorf("%w: ticket %d belongs to another user", ErrPermissionDenied, ticketID)
	}

	res.Restocked = true
	if _, err := s.ledger.Release(ctx, ticket.EventID, ticket.Label, 1); err != nil {
		if !errors.Is(err, ErrUnknownTicketType) {
			return res, err
		}
		res.Restocked = false
	}

	if err := s.orders.DeleteTicket(ctx, ticketID); err != nil {
		return res, err
	}
	remaining, err := s.orders.ListTicketsByOrder(ctx, order.ID)
	if err != nil {
		return res, err
	}
	if len(remaining) == 0 {
		if err := s.orders.DeleteOrder(ctx, order.ID); err != nil {
			return res, err
		}
		res.OrderDeleted = true
		res.OrderTotal = decimal.Zero
		return res, nil
	}
	res.OrderTotal = model.SumPrices(remaining)
	if err := s.orders.UpdateOrderTotal(ctx, order.ID, res.OrderTotal); err != nil {
		return res, err
	}
	return res, nil
}

func (s *CancellationService) announce(ctx context.Context, actor model.Actor, res CancellationResult, mode string) {
	ctx, cancel := detached(ctx)
	defer cancel()
	err := s.publisher.PublishTicketCancelled(ctx, queue.TicketCancelledEvent{
		TicketID:     res.TicketID,
		OrderID:      res.OrderID,
		EventID:      res.EventID,
		TicketType:   res.Label,
		ActorID:      actor.ID,
		Mode:         mode,
		OrderDeleted: res.OrderDeleted,
		OrderTotal:   res.OrderTotal.StringFixed(model.PriceScale),
		Restocked:    res.Restocked,
		CancelledAt:  s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Warnf("cancellation: publish %s for ticket %d failed: %v", queue.TicketCancelledQueue, res.TicketID, err)
	}
}
