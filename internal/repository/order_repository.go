package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
)

var (
	// ErrOrderNotFound is returned when an order id does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrTicketNotFound is returned when a ticket id does not exist.
	ErrTicketNotFound = errors.New("ticket not found")
)

// OrderRepo provides the persistence for the order aggregate: orders,
// their tickets and the placeholder payment row.  Methods that mutate
// the aggregate are meant to run inside Store.WithTx.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateOrder inserts an order and populates its generated ID.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *model.Order) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO orders (user_id, created_at, total_price, payment_id) VALUES (?, ?, ?, ?)`,
		o.UserID, o.CreatedAt.UTC(), o.TotalPrice, o.PaymentID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// CreateTickets inserts the tickets one row at a time so that every
// ticket gets its own generated ID back.
func (r *OrderRepo) CreateTickets(ctx context.Context, tickets []model.Ticket) error {
	q := conn(ctx, r.db)
	for i := range tickets {
		t := &tickets[i]
		res, err := q.ExecContext(ctx,
			`INSERT INTO tickets (order_id, event_id, type, price) VALUES (?, ?, ?, ?)`,
			t.OrderID, t.EventID, t.Label, t.Price)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(id)
	}
	return nil
}

// CreatePayment inserts the placeholder payment for an order and links
// it from orders.payment_id.
func (r *OrderRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`INSERT INTO payments (order_id, payment_method, transaction_id) VALUES (?, ?, ?)`,
		p.OrderID, string(p.Method), p.TransactionID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	_, err = q.ExecContext(ctx, `UPDATE orders SET payment_id = ? WHERE id = ?`, p.ID, p.OrderID)
	return err
}

// GetTicketForUpdate locks and returns a ticket.
func (r *OrderRepo) GetTicketForUpdate(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, order_id, event_id, type, price FROM tickets WHERE id = ? FOR UPDATE`, id).
		Scan(&t.ID, &t.OrderID, &t.EventID, &t.Label, &t.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetOrderForUpdate locks and returns an order without its tickets.
func (r *OrderRepo) GetOrderForUpdate(ctx context.Context, id uint64) (*model.Order, error) {
	var (
		o         model.Order
		paymentID sql.NullInt64
	)
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, user_id, created_at, total_price, payment_id FROM orders WHERE id = ? FOR UPDATE`, id).
		Scan(&o.ID, &o.UserID, &o.CreatedAt, &o.TotalPrice, &paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if paymentID.Valid {
		pid := uint64(paymentID.Int64)
		o.PaymentID = &pid
	}
	return &o, nil
}

// ListTicketsByOrder returns the tickets of an order in insertion order.
func (r *OrderRepo) ListTicketsByOrder(ctx context.Context, orderID uint64) ([]model.Ticket, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, order_id, event_id, type, price FROM tickets WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.OrderID, &t.EventID, &t.Label, &t.Price); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTicket removes one ticket row.
func (r *OrderRepo) DeleteTicket(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// UpdateOrderTotal persists a recomputed total.
func (r *OrderRepo) UpdateOrderTotal(ctx context.Context, orderID uint64, total decimal.Decimal) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET total_price = ? WHERE id = ?`, total, orderID)
	return err
}

// DeleteOrder removes an order and its payment placeholder.  The order
// row goes first because it holds the foreign key to payments.
func (r *OrderRepo) DeleteOrder(ctx context.Context, orderID uint64) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	_, err = q.ExecContext(ctx, `DELETE FROM payments WHERE order_id = ?`, orderID)
	return err
}

// TicketDetail is a sold ticket together with the name and start of its
// event, for listings.
type TicketDetail struct {
	model.Ticket
	EventName string
	StartsAt  time.Time
}

// OrderDetail is an order with its tickets and payment method, as shown
// in "my tickets" and the dashboard.
type OrderDetail struct {
	model.Order
	PaymentMethod *string
	Items         []TicketDetail
}

// ListByUser returns all orders of a user newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
	return r.list(ctx, `WHERE o.user_id = ?`, userID)
}

// ListAll returns every order newest first.
func (r *OrderRepo) ListAll(ctx context.Context) ([]OrderDetail, error) {
	return r.list(ctx, ``)
}

func (r *OrderRepo) list(ctx context.Context, where string, args ...any) ([]OrderDetail, error) {
	q := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx,
		`SELECT o.id, o.user_id, o.created_at, o.total_price, o.payment_id, p.payment_method
		 FROM orders o
		 LEFT JOIN payments p ON p.id = o.payment_id
		 `+where+`
		 ORDER BY o.created_at DESC, o.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]OrderDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var (
			d         OrderDetail
			paymentID sql.NullInt64
			method    sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.CreatedAt, &d.TotalPrice, &paymentID, &method); err != nil {
			return nil, err
		}
		if paymentID.Valid {
			pid := uint64(paymentID.Int64)
			d.PaymentID = &pid
		}
		if method.Valid {
			m := method.String
			d.PaymentMethod = &m
		}
		d.Items = []TicketDetail{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	// Populate tickets for all orders in a single query.
	ids := make([]any, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
	}
	trows, err := q.QueryContext(ctx,
		`SELECT t.id, t.order_id, t.event_id, t.type, t.price, e.name, e.date, e.time
		 FROM tickets t
		 JOIN events e ON e.id = t.event_id
		 WHERE t.order_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY t.order_id, t.id`, ids...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var (
			td    TicketDetail
			date  time.Time
			clock string
		)
		if err := trows.Scan(&td.ID, &td.OrderID, &td.EventID, &td.Label, &td.Price, &td.EventName, &date, &clock); err != nil {
			return nil, err
		}
		td.StartsAt = combineDateTime(date, clock)
		idx, ok := index[td.OrderID]
		if !ok {
			continue
		}
		details[idx].Items = append(details[idx].Items, td)
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}
	for i := range details {
		for _, it := range details[i].Items {
			details[i].Tickets = append(details[i].Tickets, it.Ticket)
		}
	}
	return details, nil
}
