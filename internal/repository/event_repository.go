package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrEventNotFound is returned when an event id does not exist.
var ErrEventNotFound = errors.New("event not found")

// EventRepo provides CRUD operations for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, name, description, date, time, venue_id`

// combineDateTime joins a DATE value and a TIME string ("15:04:05") in UTC.
// An unparsable clock leaves the time at midnight.
func combineDateTime(date time.Time, clock string) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if t, err := time.Parse("15:04:05", clock); err == nil {
		d = d.Add(time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second)
	}
	return d
}

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var (
		e     model.Event
		desc  sql.NullString
		date  time.Time
		clock string
	)
	if err := row.Scan(&e.ID, &e.Name, &desc, &date, &clock, &e.VenueID); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		e.Description = &d
	}
	e.StartsAt = combineDateTime(date, clock)
	return &e, nil
}

// Create inserts an event.  An unknown venue yields ErrVenueNotFound.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	start := e.StartsAt.UTC()
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO events (name, description, date, time, venue_id) VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.Description, start.Format("2006-01-02"), start.Format("15:04:05"), e.VenueID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrVenueNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID fetches an event by id.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return e, err
}

// Exists reports whether an event with the given id is present.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// List returns events ordered by date and time ascending.  limit <= 0
// returns every event.
func (r *EventRepo) List(ctx context.Context, limit int) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date, time, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Update rewrites the editable fields of an event.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	start := e.StartsAt.UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE events SET name = ?, description = ?, date = ?, time = ?, venue_id = ? WHERE id = ?`,
		e.Name, e.Description, start.Format("2006-01-02"), start.Format("15:04:05"), e.VenueID, e.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrVenueNotFound
		}
		return err
	}
	// Zero affected rows is ambiguous in MySQL, check existence.
	ok, err := r.Exists(ctx, e.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEventNotFound
	}
	return nil
}

// OrderIDsWithTickets returns the orders holding at least one ticket for
// the event, locking those ticket rows.
func (r *EventRepo) OrderIDsWithTickets(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT DISTINCT order_id FROM tickets WHERE event_id = ? ORDER BY order_id FOR UPDATE`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes an event together with its tickets, ticket types and
// speakers.  Callers are responsible for fixing up the totals of orders
// that lost tickets; see OrderIDsWithTickets.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	q := conn(ctx, r.db)
	for _, stmt := range []string{
		`DELETE FROM tickets WHERE event_id = ?`,
		`DELETE FROM ticket_types WHERE event_id = ?`,
		`DELETE FROM speakers WHERE event_id = ?`,
	} {
		if _, err := q.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	res, err := q.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}
