package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Transactor runs fn in one transaction carried by the context passed to
// fn.  *repository.Store implements it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TicketTypeStore is the persistence the ledger needs.
// *repository.TicketTypeRepo implements it.
type TicketTypeStore interface {
	GetByLabelForUpdate(ctx context.Context, eventID uint64, label string) (*model.TicketType, error)
	DecrementRemaining(ctx context.Context, id uint64, qty int) (bool, error)
	IncrementRemaining(ctx context.Context, id uint64, qty int) error
}

// OrderStore persists the order aggregate.  *repository.OrderRepo
// implements it.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	CreateTickets(ctx context.Context, tickets []model.Ticket) error
	CreatePayment(ctx context.Context, p *model.Payment) error
	GetTicketForUpdate(ctx context.Context, id uint64) (*model.Ticket, error)
	GetOrderForUpdate(ctx context.Context, id uint64) (*model.Order, error)
	ListTicketsByOrder(ctx context.Context, orderID uint64) ([]model.Ticket, error)
	DeleteTicket(ctx context.Context, id uint64) error
	UpdateOrderTotal(ctx context.Context, orderID uint64, total decimal.Decimal) error
	DeleteOrder(ctx context.Context, orderID uint64) error
}

// EventStore is what the workflows need to know about events.
// *repository.EventRepo implements it.
type EventStore interface {
	Exists(ctx context.Context, id uint64) (bool, error)
	OrderIDsWithTickets(ctx context.Context, eventID uint64) ([]uint64, error)
	Delete(ctx context.Context, id uint64) error
}
