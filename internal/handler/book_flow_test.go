package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// The types below back a real BookingService with one event holding one
// "vip" ticket type, so handler tests see the errors the workflow
// actually produces.

type directTx struct{}

func (directTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type singleEvent struct{ id uint64 }

func (e singleEvent) Exists(_ context.Context, id uint64) (bool, error) { return id == e.id, nil }
func (singleEvent) OrderIDsWithTickets(context.Context, uint64) ([]uint64, error) {
	return nil, nil
}
func (singleEvent) Delete(context.Context, uint64) error { return nil }

type singleType struct{ tt model.TicketType }

func (s *singleType) GetByLabelForUpdate(_ context.Context, eventID uint64, label string) (*model.TicketType, error) {
	if eventID != s.tt.EventID || label != s.tt.Label {
		return nil, repository.ErrTicketTypeNotFound
	}
	tt := s.tt
	return &tt, nil
}

func (s *singleType) DecrementRemaining(_ context.Context, _ uint64, qty int) (bool, error) {
	if s.tt.Remaining < qty {
		return false, nil
	}
	s.tt.Remaining -= qty
	return true, nil
}

func (s *singleType) IncrementRemaining(_ context.Context, _ uint64, qty int) error {
	s.tt.Remaining += qty
	return nil
}

type countingOrders struct{ next uint64 }

func (o *countingOrders) CreateOrder(_ context.Context, ord *model.Order) error {
	o.next++
	ord.ID = o.next
	return nil
}

func (o *countingOrders) CreateTickets(_ context.Context, tickets []model.Ticket) error {
	for i := range tickets {
		o.next++
		tickets[i].ID = o.next
	}
	return nil
}

func (o *countingOrders) CreatePayment(_ context.Context, p *model.Payment) error {
	o.next++
	p.ID = o.next
	return nil
}

func (*countingOrders) GetTicketForUpdate(context.Context, uint64) (*model.Ticket, error) {
	return nil, repository.ErrTicketNotFound
}

func (*countingOrders) GetOrderForUpdate(context.Context, uint64) (*model.Order, error) {
	return nil, repository.ErrOrderNotFound
}

func (*countingOrders) ListTicketsByOrder(context.Context, uint64) ([]model.Ticket, error) {
	return nil, nil
}
func (*countingOrders) DeleteTicket(context.Context, uint64) error { return nil }
func (*countingOrders) UpdateOrderTotal(context.Context, uint64, decimal.Decimal) error {
	return nil
}
func (*countingOrders) DeleteOrder(context.Context, uint64) error { return nil }

func newBookingHandler(remaining int) (*TicketHandler, *singleType) {
	logger := log.New("test")
	logger.SetOutput(io.Discard)
	types := &singleType{tt: model.TicketType{ID: 7, EventID: 3, Label: "vip", Price: decimal.RequireFromString("150"), Remaining: remaining}}
	booking := service.NewBookingService(directTx{}, singleEvent{id: 3}, types, &countingOrders{},
		config.BookingConfig{MaxAttempts: 1}, nil, logger)
	return &TicketHandler{Booking: booking}, types
}

func TestBookThroughWorkflow(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
		want string
	}{
		{"zero quantity", `{"ticket_type":"vip","quantity":0}`, http.StatusBadRequest, "validation"},
		{"negative quantity", `{"ticket_type":"vip","quantity":-1}`, http.StatusBadRequest, "validation"},
		{"zero of unknown type", `{"ticket_type":"balcony","quantity":0}`, http.StatusNotFound, "unknown_ticket_type"},
		{"more than remaining", `{"ticket_type":"vip","quantity":3}`, http.StatusConflict, "insufficient_inventory"},
		{"ok", `{"ticket_type":"vip","quantity":2}`, http.StatusCreated, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, types := newBookingHandler(2)
			c, rec := request(http.MethodPost, "/v1/events/3/book", tc.body)
			middleware.SetActor(withID(c, "3"), model.Actor{ID: 5, Role: model.RoleAttendee})
			require.NoError(t, h.Book(c))

			assert.Equal(t, tc.code, rec.Code)
			body := decode(t, rec)
			if tc.want == "" {
				assert.Equal(t, "300.00", body["total_price"])
				assert.Equal(t, 0, types.tt.Remaining)
				return
			}
			assert.Equal(t, tc.want, body["code"])
			assert.Equal(t, 2, types.tt.Remaining)
		})
	}
}
