package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/monitoring"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

// BookInput is one booking request.
type BookInput struct {
	EventID    uint64
	TicketType string
	Quantity   int
	// PaymentMethod, when set, records a placeholder payment with the
	// order.  No gateway is contacted.
	PaymentMethod model.PaymentMethod
}

// BookingService sells tickets.
type BookingService struct {
	tx        Transactor
	events    EventStore
	orders    OrderStore
	ledger    *Ledger
	publisher Publisher
	logger    echo.Logger
	retry     retrier

	now     func() time.Time
	newTxID func() string
}

// NewBookingService wires the booking workflow.  A nil publisher
// disables announcements.
func NewBookingService(tx Transactor, events EventStore, types TicketTypeStore, orders OrderStore,
	cfg config.BookingConfig, publisher Publisher, logger echo.Logger) *BookingService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &BookingService{
		tx:        tx,
		events:    events,
		orders:    orders,
		ledger:    NewLedger(types),
		publisher: publisher,
		logger:    logger,
		retry:     newRetrier(cfg.MaxAttempts, cfg.RetryBackoff),
		now:       time.Now,
		newTxID:   uuid.NewString,
	}
}

// Book sells in.Quantity tickets of one type to an attendee.  The order,
// its tickets, the optional payment placeholder and the inventory
// decrement commit together or not at all.
func (s *BookingService) Book(ctx context.Context, actor model.Actor, in BookInput) (*model.Order, error) {
	start := time.Now()
	defer monitoring.ObserveWorkflow("book", start)

	order, err := s.book(ctx, actor, in)
	monitoring.TrackBooking(outcome(err), in.Quantity)
	if err != nil {
		s.logger.Warnj(log.JSON{
			"msg": "booking failed", "user_id": actor.ID, "event_id": in.EventID,
			"ticket_type": in.TicketType, "quantity": in.Quantity, "outcome": outcome(err), "error": err.Error(),
		})
		return nil, err
	}
	s.logger.Infoj(log.JSON{
		"msg": "booking confirmed", "order_id": order.ID, "user_id": actor.ID, "event_id": in.EventID,
		"ticket_type": in.TicketType, "quantity": in.Quantity, "total": order.TotalPrice.StringFixed(model.PriceScale),
	})
	s.announce(ctx, order, in)
	return order, nil
}

func (s *BookingService) book(ctx context.Context, actor model.Actor, in BookInput) (*model.Order, error) {
	if !actor.Is(model.RoleAttendee) {
		return nil, fmt.Errorf("%w: only attendees can book tickets", ErrPermissionDenied)
	}
	in.TicketType = strings.TrimSpace(in.TicketType)
	if in.TicketType == "" {
		return nil, fmt.Errorf("%w: ticket type is required", ErrValidation)
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, in.PaymentMethod)
	}

	var order *model.Order
	err := s.retry.run(ctx, "book", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			o, err := s.bookTx(ctx, actor, in)
			order = o
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// bookTx is the transactional body of Book.
func (s *BookingService) bookTx(ctx context.Context, actor model.Actor, in BookInput) (*model.Order, error) {
	ok, err := s.events.Exists(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: event %d", ErrNotFound, in.EventID)
	}

	tt, err := s.ledger.Lookup(ctx, in.EventID, in.TicketType)
	if err != nil {
		return nil, err
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: %w: quantity must be at least 1", ErrValidation, ErrInsufficientInventory)
	}
	if in.Quantity > tt.Remaining {
		return nil, fmt.Errorf("%w: %d requested, %d remaining", ErrInsufficientInventory, in.Quantity, tt.Remaining)
	}

	unit := tt.Price.Round(model.PriceScale)
	order := &model.Order{
		UserID:     actor.ID,
		CreatedAt:  s.now().UTC(),
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(model.PriceScale),
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	tickets := make([]model.Ticket, in.Quantity)
	for i := range tickets {
		tickets[i] = model.Ticket{OrderID: order.ID, EventID: in.EventID, Label: tt.Label, Price: unit}
	}
	if err := s.orders.CreateTickets(ctx, tickets); err != nil {
		return nil, err
	}
	order.Tickets = tickets

	if in.PaymentMethod != "" {
		p := &model.Payment{OrderID: order.ID, Method: in.PaymentMethod, TransactionID: s.newTxID()}
		if err := s.orders.CreatePayment(ctx, p); err != nil {
			return nil, err
		}
		order.PaymentID = &p.ID
	}

	if err := s.ledger.Take(ctx, tt, in.Quantity); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *BookingService) announce(ctx context.Context, order *model.Order, in BookInput) {
	ids := make([]uint64, 0, len(order.Tickets))
	for _, t := range order.Tickets {
		ids = append(ids, t.ID)
	}
	unit := decimal.Zero
	if len(order.Tickets) > 0 {
		unit = order.Tickets[0].Price
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	err := s.publisher.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		EventID:       in.EventID,
		TicketType:    strings.TrimSpace(in.TicketType),
		Quantity:      len(order.Tickets),
		TicketIDs:     ids,
		UnitPrice:     unit.StringFixed(model.PriceScale),
		TotalPrice:    order.TotalPrice.StringFixed(model.PriceScale),
		PaymentMethod: string(in.PaymentMethod),
		ConfirmedAt:   order.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Warnf("booking: publish %s for order %d failed: %v", queue.BookingConfirmedQueue, order.ID, err)
	}
}
