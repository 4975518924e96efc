package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrSpeakerNotFound is returned when a speaker id does not exist.
var ErrSpeakerNotFound = errors.New("speaker not found")

// SpeakerRepo provides CRUD operations for speakers.
type SpeakerRepo struct {
	db *sql.DB
}

func NewSpeakerRepo(db *sql.DB) *SpeakerRepo { return &SpeakerRepo{db: db} }

func scanSpeaker(row interface{ Scan(...any) error }) (*model.Speaker, error) {
	var (
		s   model.Speaker
		bio sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &bio, &s.EventID); err != nil {
		return nil, err
	}
	s.Bio = nullString(bio)
	return &s, nil
}

// Create inserts a speaker.  An unknown event yields ErrEventNotFound.
func (r *SpeakerRepo) Create(ctx context.Context, s *model.Speaker) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO speakers (name, bio, event_id) VALUES (?, ?, ?)`, s.Name, s.Bio, s.EventID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrEventNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a speaker by id.
func (r *SpeakerRepo) GetByID(ctx context.Context, id uint64) (*model.Speaker, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, bio, event_id FROM speakers WHERE id = ?`, id)
	s, err := scanSpeaker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSpeakerNotFound
	}
	return s, err
}

// List returns every speaker, or only those of one event when eventID is
// non-zero.
func (r *SpeakerRepo) List(ctx context.Context, eventID uint64) ([]model.Speaker, error) {
	query := `SELECT id, name, bio, event_id FROM speakers`
	args := []any{}
	if eventID != 0 {
		query += ` WHERE event_id = ?`
		args = append(args, eventID)
	}
	query += ` ORDER BY name, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Speaker, 0)
	for rows.Next() {
		s, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update rewrites name, bio and event of a speaker.
func (r *SpeakerRepo) Update(ctx context.Context, s *model.Speaker) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE speakers SET name = ?, bio = ?, event_id = ? WHERE id = ?`,
		s.Name, s.Bio, s.EventID, s.ID); err != nil {
		if isForeignKeyViolation(err) {
			return ErrEventNotFound
		}
		return err
	}
	_, err := r.GetByID(ctx, s.ID)
	return err
}

// Delete removes a speaker.
func (r *SpeakerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM speakers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSpeakerNotFound
	}
	return nil
}
