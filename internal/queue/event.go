// Package queue defines the messages exchanged over RabbitMQ and the
// background consumer that records them in logs/booking.log.
package queue

// Queue names.  Each is declared durable by both publisher and consumer.
const (
	BookingConfirmedQueue = "booking.confirmed"
	TicketCancelledQueue  = "ticket.cancelled"
)

// BookingConfirmedEvent is published after a booking commits.  It holds
// enough for downstream consumers to log or notify without querying the
// primary database.
type BookingConfirmedEvent struct {
	OrderID       uint64   `json:"order_id"`
	UserID        uint64   `json:"user_id"`
	EventID       uint64   `json:"event_id"`
	TicketType    string   `json:"ticket_type"`
	Quantity      int      `json:"quantity"`
	TicketIDs     []uint64 `json:"ticket_ids"`
	UnitPrice     string   `json:"unit_price"`
	TotalPrice    string   `json:"total_price"`
	PaymentMethod string   `json:"payment_method,omitempty"`
	ConfirmedAt   string   `json:"confirmed_at"`
}

// TicketCancelledEvent is published after a cancellation commits.
type TicketCancelledEvent struct {
	TicketID     uint64 `json:"ticket_id"`
	OrderID      uint64 `json:"order_id"`
	EventID      uint64 `json:"event_id"`
	TicketType   string `json:"ticket_type"`
	ActorID      uint64 `json:"actor_id"`
	Mode         string `json:"mode"`
	OrderDeleted bool   `json:"order_deleted"`
	OrderTotal   string `json:"order_total"`
	Restocked    bool   `json:"restocked"`
	CancelledAt  string `json:"cancelled_at"`
}
