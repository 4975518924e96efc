package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits stored for every
// monetary column (DECIMAL(10,2)).
const PriceScale = 2

// TicketType is a priced, quantity-limited category of ticket for one
// event.  Remaining is the single source of truth for capacity and is
// never negative.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – owning event.
//  Label     – free-text category such as "vip".
//  Price     – unit price, non-negative, two fractional digits.
//  Remaining – tickets still available for sale.
type TicketType struct {
	ID        uint64          // ticket_types.id
	EventID   uint64          // ticket_types.event_id
	Label     string          // ticket_types.label
	Price     decimal.Decimal // ticket_types.price
	Remaining int             // ticket_types.remaining
}

// Order groups the tickets bought in one booking.  TotalPrice always
// equals the sum of its tickets' prices at every commit point.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – attendee who placed the order.
//  CreatedAt  – when the booking was committed.
//  TotalPrice – sum of ticket prices.
//  PaymentID  – placeholder payment record, if any.
//  Tickets    – populated by workflows and list queries; not a column.
type Order struct {
	ID         uint64          // orders.id
	UserID     uint64          // orders.user_id
	CreatedAt  time.Time       // orders.created_at
	TotalPrice decimal.Decimal // orders.total_price
	PaymentID  *uint64         // orders.payment_id (nullable)
	Tickets    []Ticket
}

// Ticket is one admission sold inside an order.  Label and Price are
// snapshots taken at booking time and never follow later edits to the
// TicketType.
type Ticket struct {
	ID      uint64          // tickets.id
	OrderID uint64          // tickets.order_id
	EventID uint64          // tickets.event_id
	Label   string          // tickets.type
	Price   decimal.Decimal // tickets.price
}

// PaymentMethod enumerates the payments.payment_method column.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit card"
	PaymentPaypal     PaymentMethod = "paypal"
	PaymentOther      PaymentMethod = "other"
)

// Valid reports whether m is one of the accepted methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentPaypal, PaymentOther:
		return true
	}
	return false
}

// Payment is a placeholder companion to an order.  No gateway is
// contacted; TransactionID is generated locally.
type Payment struct {
	ID            uint64        // payments.id
	OrderID       uint64        // payments.order_id
	Method        PaymentMethod // payments.payment_method
	TransactionID string        // payments.transaction_id
}

// SumPrices returns the exact sum of the tickets' prices rounded to
// PriceScale.
func SumPrices(tickets []Ticket) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tickets {
		total = total.Add(t.Price)
	}
	return total.Round(PriceScale)
}
