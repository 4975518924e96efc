package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func bookVIP(t *testing.T, f *fixture, actor model.Actor, qty int) *model.Order {
	t.Helper()
	order, err := f.book.Book(context.Background(), actor, BookInput{EventID: eventID, TicketType: "vip", Quantity: qty})
	require.NoError(t, err)
	return order
}

func TestCancelScenario(t *testing.T) {
	f := newFixture()
	f.db.addEvent(eventID)
	vip := f.db.addType(eventID, "vip", "150.00", 5)
	ctx := context.Background()

	order := bookVIP(t, f, attendee1, 2)
	assert.Equal(t, 3, f.db.remaining(vip.ID))

	res, err := f.cancel.CancelTicket(ctx, attendee1, order.Tickets[0].ID)
	require.NoError(t, err)
	assert.False(t, res.OrderDeleted)
	assert.True(t, res.Restocked)
	assert.Equal(t, "150.00", res.OrderTotal.StringFixed(2))
	assert.Equal(t, 4, f.db.remaining(vip.ID))
	assert.Equal(t, "150.00", f.db.orders[order.ID].TotalPrice.StringFixed(2))

	res, err = f.cancel.CancelTicket(ctx, attendee1, order.Tickets[1].ID)
	require.NoError(t, err)
	assert.True(t, res.OrderDeleted)
	assert.Equal(t, 5, f.db.remaining(vip.ID))
	assert.NotContains(t, f.db.orders, order.ID)
	assert.Empty(t, f.db.tickets)

	require.Len(t, f.pub.cancelled, 2)
	assert.True(t, f.pub.cancelled[1].OrderDeleted)
	assert.Equal(t, "owner", f.pub.cancelled[1].Mode)
}

func TestRoundTripRestoresInventory(t *testing.T) {
	for _, n := range []int{1, 3, 5} {
		f := newFixture()
		f.db.addEvent(eventID)
		vip := f.db.addType(eventID, "vip", "150.00", 5)
		ctx := context.Background()

		order := bookVIP(t, f, attendee1, n)
		for i, tk := range order.Tickets {
			res, err := f.cancel.CancelTicket(ctx, attendee1, tk.ID)
			require.NoError(t, err)
			assert.Equal(t, i == n-1, res.OrderDeleted)
			if o, ok := f.db.orders[order.ID]; ok {
				// Total stays the exact sum of what is left.
				assert.True(t, model.SumPrices(f.db.orderTickets(order.ID)).Equal(o.TotalPrice))
			}
		}
		assert.Equal(t, 5, f.db.remaining(vip.ID))
		assert.NotContains(t, f.db.orders, order.ID)
	}
}

func TestCancelOtherUsersTicketDenied(t *testing.T) {
	f := newFixture()
	f.db.addEvent(eventID)
	vip := f.db.addType(eventID, "vip", "150.00", 5)
	order := bookVIP(t, f, attendee1, 2)

	_, err := f.cancel.CancelTicket(context.Background(), attendee2, order.Tickets[0].ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 3, f.db.remaining(vip.ID))
	assert.Len(t, f.db.tickets, 2)
	assert.Equal(t, "300.00", f.db.orders[order.ID].TotalPrice.StringFixed(2))
	assert.Empty(t, f.pub.cancelled)
}

func TestCancelMissingTicket(t *testing.T) {
	f := newFixture()
	_, err := f.cancel.CancelTicket(context.Background(), attendee1, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.cancel.DeleteTicket(context.Background(), admin, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTicketRequiresElevatedRole(t *testing.T) {
	f := newFixture()
	f.db.addEvent(eventID)
	vip := f.db.addType(eventID, "vip", "150.00", 5)
	order := bookVIP(t, f, attendee1, 2)

	_, err := f.cancel.DeleteTicket(context.Background(), attendee1, order.Tickets[0].ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	for _, actor := range []model.Actor{organizer, admin} {
		_, err := f.cancel.DeleteTicket(context.Background(), actor, order.Tickets[0].ID)
		if actor == organizer {
			require.NoError(t, err)
			continue
		}
		assert.ErrorIs(t, err, ErrNotFound, "ticket already removed by the organizer")
	}
	assert.Equal(t, 4, f.db.remaining(vip.ID))
	assert.Equal(t, "150.00", f.db.orders[order.ID].TotalPrice.StringFixed(2))
	require.Len(t, f.pub.cancelled, 1)
	assert.Equal(t, "admin", f.pub.cancelled[0].Mode)
}

func TestCancelAfterTicketTypeDeleted(t *testing.T) {
	f := newFixture()
	f.db.addEvent(eventID)
	vip := f.db.addType(eventID, "vip", "150.00", 5)
	order := bookVIP(t, f, attendee1, 1)
	require.NoError(t, f.cat.DeleteTicketType(context.Background(), organizer, vip.ID))

	res, err := f.cancel.CancelTicket(context.Background(), attendee1, order.Tickets[0].ID)
	require.NoError(t, err)
	assert.False(t, res.Restocked)
	assert.True(t, res.OrderDeleted)
	assert.Empty(t, f.db.tickets)
}

func TestCancelIsAtomic(t *testing.T) {
	for _, step := range []string{"IncrementRemaining", "DeleteTicket", "UpdateOrderTotal"} {
		t.Run(step, func(t *testing.T) {
			f := newFixture()
			f.db.addEvent(eventID)
			vip := f.db.addType(eventID, "vip", "150.00", 5)
			order := bookVIP(t, f, attendee1, 2)
			f.db.failOn = step

			_, err := f.cancel.CancelTicket(context.Background(), attendee1, order.Tickets[0].ID)
			assert.ErrorIs(t, err, ErrStore)
			assert.Equal(t, 3, f.db.remaining(vip.ID))
			assert.Len(t, f.db.tickets, 2)
			assert.Equal(t, "300.00", f.db.orders[order.ID].TotalPrice.StringFixed(2))
		})
	}
}

func TestCancelRetriesLockConflicts(t *testing.T) {
	f := newFixture()
	f.db.addEvent(eventID)
	vip := f.db.addType(eventID, "vip", "150.00", 5)
	order := bookVIP(t, f, attendee1, 1)
	before := f.db.txCount
	f.db.conflicts = 1

	res, err := f.cancel.CancelTicket(context.Background(), attendee1, order.Tickets[0].ID)
	require.NoError(t, err)
	assert.True(t, res.OrderDeleted)
	assert.Equal(t, before+2, f.db.txCount)
	assert.Equal(t, 5, f.db.remaining(vip.ID))
}
