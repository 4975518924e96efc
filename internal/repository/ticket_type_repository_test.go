package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

var ticketTypeCols = []string{"id", "event_id", "label", "price", "remaining"}

func TestGetByLabelForUpdateLocksOldestRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketTypeRepo(db)

	mock.ExpectQuery(`FROM ticket_types\s+WHERE event_id = \? AND label = \?\s+ORDER BY id LIMIT 1 FOR UPDATE`).
		WithArgs(10, "vip").
		WillReturnRows(sqlmock.NewRows(ticketTypeCols).AddRow(3, 10, "vip", "150.00", 5))

	tt, err := repo.GetByLabelForUpdate(context.Background(), 10, "vip")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tt.ID)
	assert.True(t, tt.Price.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, 5, tt.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByLabelForUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketTypeRepo(db)

	mock.ExpectQuery(`FROM ticket_types`).WillReturnRows(sqlmock.NewRows(ticketTypeCols))

	_, err := repo.GetByLabelForUpdate(context.Background(), 10, "balcony")
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)
}

func TestDecrementRemainingGuard(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketTypeRepo(db)
	q := `UPDATE ticket_types SET remaining = remaining - \? WHERE id = \? AND remaining >= \?`

	mock.ExpectExec(q).WithArgs(2, 3, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(9, 3, 9).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DecrementRemaining(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementRemaining(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.False(t, ok, "guard must reject a decrement below zero")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementRemainingMissingRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketTypeRepo(db)

	mock.ExpectExec(`UPDATE ticket_types SET remaining = remaining \+ \?`).
		WithArgs(1, 3).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementRemaining(context.Background(), 3, 1)
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)
}

func TestCreateTicketTypeRejectsDuplicateLabel(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketTypeRepo(db)
	tt := &model.TicketType{EventID: 10, Label: "vip", Price: decimal.RequireFromString("150.00"), Remaining: 5}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticket_types`).WithArgs(10, "vip").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	assert.ErrorIs(t, repo.Create(context.Background(), tt), ErrConflict)

	// A race past the lookup still hits the unique key.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticket_types`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO ticket_types`).
		WillReturnError(&mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry"})
	assert.ErrorIs(t, repo.Create(context.Background(), tt), ErrConflict)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticket_types`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO ticket_types`).
		WithArgs(10, "vip", sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(77, 1))
	require.NoError(t, repo.Create(context.Background(), tt))
	assert.Equal(t, uint64(77), tt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTicketTypeUnknownEvent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketTypeRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticket_types`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO ticket_types`).
		WillReturnError(&mysql.MySQLError{Number: mysqlErrNoReferencedRow, Message: "foreign key"})

	err := repo.Create(context.Background(), &model.TicketType{EventID: 404, Label: "vip"})
	assert.ErrorIs(t, err, ErrEventNotFound)
}
