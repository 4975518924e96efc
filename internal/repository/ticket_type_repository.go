package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrTicketTypeNotFound is returned when no ticket type matches the lookup.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// TicketTypeRepo persists the per-event ticket categories and their
// remaining-quantity counters (the inventory ledger rows).
type TicketTypeRepo struct {
	db *sql.DB
}

// NewTicketTypeRepo returns a TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

const ticketTypeColumns = `id, event_id, label, price, remaining`

func scanTicketType(row interface{ Scan(...any) error }) (*model.TicketType, error) {
	var tt model.TicketType
	if err := row.Scan(&tt.ID, &tt.EventID, &tt.Label, &tt.Price, &tt.Remaining); err != nil {
		return nil, err
	}
	return &tt, nil
}

// Create inserts a ticket type.  A second type with the same label for
// the same event is rejected with ErrConflict, both by a lookup and by
// the uq_ticket_types_event_label key.
func (r *TicketTypeRepo) Create(ctx context.Context, tt *model.TicketType) error {
	q := conn(ctx, r.db)
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ticket_types WHERE event_id = ? AND label = ?`,
		tt.EventID, tt.Label).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO ticket_types (event_id, label, price, remaining) VALUES (?, ?, ?, ?)`,
		tt.EventID, tt.Label, tt.Price, tt.Remaining)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrConflict
		}
		if isForeignKeyViolation(err) {
			return ErrEventNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tt.ID = uint64(id)
	return nil
}

// GetByID fetches a ticket type by id.
func (r *TicketTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ?`, id)
	tt, err := scanTicketType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketTypeNotFound
	}
	return tt, err
}

// ListByEvent returns the ticket types of an event ordered by price
// then label.
func (r *TicketTypeRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE event_id = ? ORDER BY price, label`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TicketType, 0)
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tt)
	}
	return out, rows.Err()
}

// ListAll returns every ticket type of every event.
func (r *TicketTypeRepo) ListAll(ctx context.Context) ([]model.TicketType, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types ORDER BY event_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TicketType, 0)
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tt)
	}
	return out, rows.Err()
}

// GetByLabelForUpdate locks and returns the ticket type of an event with
// the given label.  It must run inside Store.WithTx; the row stays
// locked until the transaction ends.  Databases created before the
// unique key existed may hold duplicate labels, in which case the
// oldest row is the one sold from.
func (r *TicketTypeRepo) GetByLabelForUpdate(ctx context.Context, eventID uint64, label string) (*model.TicketType, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types
		 WHERE event_id = ? AND label = ?
		 ORDER BY id LIMIT 1 FOR UPDATE`, eventID, label)
	tt, err := scanTicketType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketTypeNotFound
	}
	return tt, err
}

// DecrementRemaining subtracts qty from the counter only when at least
// qty tickets remain.  It reports false when the guard rejected the
// update, which means a concurrent booking took the inventory first.
func (r *TicketTypeRepo) DecrementRemaining(ctx context.Context, id uint64, qty int) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE ticket_types SET remaining = remaining - ? WHERE id = ? AND remaining >= ?`,
		qty, id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrementRemaining adds qty back to the counter.
func (r *TicketTypeRepo) IncrementRemaining(ctx context.Context, id uint64, qty int) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE ticket_types SET remaining = remaining + ? WHERE id = ?`, qty, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketTypeNotFound
	}
	return nil
}

// Update rewrites label, price and remaining.  Already sold tickets keep
// their own snapshot and are not touched.
func (r *TicketTypeRepo) Update(ctx context.Context, tt *model.TicketType) error {
	q := conn(ctx, r.db)
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ticket_types WHERE event_id = ? AND label = ? AND id <> ?`,
		tt.EventID, tt.Label, tt.ID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := q.ExecContext(ctx,
		`UPDATE ticket_types SET label = ?, price = ?, remaining = ? WHERE id = ?`,
		tt.Label, tt.Price, tt.Remaining, tt.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero affected rows when nothing changed, so
		// confirm the row really is missing before failing.
		if _, err := r.GetByID(ctx, tt.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a ticket type.  Tickets already sold keep their label
// and price snapshot.
func (r *TicketTypeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM ticket_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketTypeNotFound
	}
	return nil
}
