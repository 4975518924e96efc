package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrVenueNotFound is returned when a venue id does not exist.
var ErrVenueNotFound = errors.New("venue not found")

// VenueRepo provides CRUD operations for venues.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the given database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

const venueColumns = `id, name, address, capacity, city, state, zip_code`

func scanVenue(row interface{ Scan(...any) error }) (*model.Venue, error) {
	var (
		v                         model.Venue
		address, city, state, zip sql.NullString
		capacity                  sql.NullInt64
	)
	if err := row.Scan(&v.ID, &v.Name, &address, &capacity, &city, &state, &zip); err != nil {
		return nil, err
	}
	v.Address = nullString(address)
	v.City = nullString(city)
	v.State = nullString(state)
	v.ZipCode = nullString(zip)
	if capacity.Valid {
		c := uint32(capacity.Int64)
		v.Capacity = &c
	}
	return &v, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Create inserts a venue and populates its ID.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO venues (name, address, capacity, city, state, zip_code) VALUES (?, ?, ?, ?, ?, ?)`,
		v.Name, v.Address, v.Capacity, v.City, v.State, v.ZipCode)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// GetByID fetches a venue by id.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
	v, err := scanVenue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVenueNotFound
	}
	return v, err
}

// List returns all venues ordered by name.
func (r *VenueRepo) List(ctx context.Context) ([]model.Venue, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+venueColumns+` FROM venues ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Venue, 0)
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Update rewrites every venue column.
func (r *VenueRepo) Update(ctx context.Context, v *model.Venue) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx,
		`UPDATE venues SET name = ?, address = ?, capacity = ?, city = ?, state = ?, zip_code = ? WHERE id = ?`,
		v.Name, v.Address, v.Capacity, v.City, v.State, v.ZipCode, v.ID); err != nil {
		return err
	}
	_, err := r.GetByID(ctx, v.ID)
	return err
}

// Delete removes a venue.  It is refused with ErrConflict while any
// event still takes place there.
func (r *VenueRepo) Delete(ctx context.Context, id uint64) error {
	q := conn(ctx, r.db)
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE venue_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := q.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVenueNotFound
	}
	return nil
}
