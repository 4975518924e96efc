package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// fakeDB is an in-memory store whose transactions are fully serialized
// and roll back by restoring a snapshot.
type fakeDB struct {
	mu sync.Mutex

	events   map[uint64]bool
	types    map[uint64]model.TicketType
	orders   map[uint64]model.Order
	tickets  map[uint64]model.Ticket
	payments map[uint64]model.Payment
	nextID   uint64

	// failOn makes the named method return errDisk.
	failOn string
	// conflicts makes the next n transactions fail with a lock conflict
	// after their body ran.
	conflicts int
	txCount   int
	// staleRemaining overrides the remaining count GetByLabelForUpdate
	// reports, as if the row had been read without its lock.
	staleRemaining map[uint64]int
}

var errDisk = errors.New("disk full")

func newFakeDB() *fakeDB {
	return &fakeDB{
		events:   map[uint64]bool{},
		types:    map[uint64]model.TicketType{},
		orders:   map[uint64]model.Order{},
		tickets:  map[uint64]model.Ticket{},
		payments: map[uint64]model.Payment{},
		nextID:   1000,
	}
}

type fakeSnapshot struct {
	events   map[uint64]bool
	types    map[uint64]model.TicketType
	orders   map[uint64]model.Order
	tickets  map[uint64]model.Ticket
	payments map[uint64]model.Payment
	nextID   uint64
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *fakeDB) snapshot() fakeSnapshot {
	return fakeSnapshot{clone(db.events), clone(db.types), clone(db.orders), clone(db.tickets), clone(db.payments), db.nextID}
}

func (db *fakeDB) restore(s fakeSnapshot) {
	db.events, db.types, db.orders, db.tickets, db.payments, db.nextID = s.events, s.types, s.orders, s.tickets, s.payments, s.nextID
}

type fakeTxKey struct{}

func (db *fakeDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.txCount++
	snap := db.snapshot()
	committed := false
	defer func() {
		if !committed {
			db.restore(snap)
		}
	}()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		return err
	}
	if db.conflicts > 0 {
		db.conflicts--
		return fmt.Errorf("%w: deadlock found", repository.ErrLockConflict)
	}
	committed = true
	return nil
}

func (db *fakeDB) fail(method string) error {
	if db.failOn == method {
		return fmt.Errorf("%s: %w", method, errDisk)
	}
	return nil
}

func (db *fakeDB) id() uint64 {
	db.nextID++
	return db.nextID
}

// seed helpers, called outside transactions

func (db *fakeDB) addEvent(id uint64) { db.events[id] = true }

func (db *fakeDB) addType(eventID uint64, label, price string, remaining int) model.TicketType {
	tt := model.TicketType{ID: db.id(), EventID: eventID, Label: label, Price: decimal.RequireFromString(price), Remaining: remaining}
	db.types[tt.ID] = tt
	return tt
}

func (db *fakeDB) remaining(id uint64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.types[id].Remaining
}

func (db *fakeDB) orderTickets(orderID uint64) []model.Ticket {
	out := []model.Ticket{}
	for _, t := range db.tickets {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fakeTypes implements TicketTypeStore and TicketTypeAdmin.
type fakeTypes struct{ db *fakeDB }

func (f fakeTypes) GetByLabelForUpdate(_ context.Context, eventID uint64, label string) (*model.TicketType, error) {
	if err := f.db.fail("GetByLabelForUpdate"); err != nil {
		return nil, err
	}
	var best *model.TicketType
	for _, tt := range f.db.types {
		if tt.EventID == eventID && tt.Label == label && (best == nil || tt.ID < best.ID) {
			tt := tt
			best = &tt
		}
	}
	if best == nil {
		return nil, repository.ErrTicketTypeNotFound
	}
	if n, ok := f.db.staleRemaining[best.ID]; ok {
		best.Remaining = n
	}
	return best, nil
}

func (f fakeTypes) DecrementRemaining(_ context.Context, id uint64, qty int) (bool, error) {
	if err := f.db.fail("DecrementRemaining"); err != nil {
		return false, err
	}
	tt, ok := f.db.types[id]
	if !ok || tt.Remaining < qty {
		return false, nil
	}
	tt.Remaining -= qty
	f.db.types[id] = tt
	return true, nil
}

func (f fakeTypes) IncrementRemaining(_ context.Context, id uint64, qty int) error {
	if err := f.db.fail("IncrementRemaining"); err != nil {
		return err
	}
	tt, ok := f.db.types[id]
	if !ok {
		return repository.ErrTicketTypeNotFound
	}
	tt.Remaining += qty
	f.db.types[id] = tt
	return nil
}

func (f fakeTypes) Create(_ context.Context, tt *model.TicketType) error {
	if !f.db.events[tt.EventID] {
		return repository.ErrEventNotFound
	}
	for _, cur := range f.db.types {
		if cur.EventID == tt.EventID && cur.Label == tt.Label {
			return repository.ErrConflict
		}
	}
	tt.ID = f.db.id()
	f.db.types[tt.ID] = *tt
	return nil
}

func (f fakeTypes) GetByID(_ context.Context, id uint64) (*model.TicketType, error) {
	tt, ok := f.db.types[id]
	if !ok {
		return nil, repository.ErrTicketTypeNotFound
	}
	return &tt, nil
}

func (f fakeTypes) Update(_ context.Context, tt *model.TicketType) error {
	if _, ok := f.db.types[tt.ID]; !ok {
		return repository.ErrTicketTypeNotFound
	}
	for _, cur := range f.db.types {
		if cur.ID != tt.ID && cur.EventID == tt.EventID && cur.Label == tt.Label {
			return repository.ErrConflict
		}
	}
	f.db.types[tt.ID] = *tt
	return nil
}

func (f fakeTypes) Delete(_ context.Context, id uint64) error {
	if _, ok := f.db.types[id]; !ok {
		return repository.ErrTicketTypeNotFound
	}
	delete(f.db.types, id)
	return nil
}

// fakeOrders implements OrderStore.
type fakeOrders struct{ db *fakeDB }

func (f fakeOrders) CreateOrder(_ context.Context, o *model.Order) error {
	if err := f.db.fail("CreateOrder"); err != nil {
		return err
	}
	o.ID = f.db.id()
	stored := *o
	stored.Tickets = nil
	f.db.orders[o.ID] = stored
	return nil
}

func (f fakeOrders) CreateTickets(_ context.Context, tickets []model.Ticket) error {
	for i := range tickets {
		// Fail half way to prove the earlier rows are rolled back.
		if i == len(tickets)/2 {
			if err := f.db.fail("CreateTickets"); err != nil {
				return err
			}
		}
		tickets[i].ID = f.db.id()
		f.db.tickets[tickets[i].ID] = tickets[i]
	}
	return nil
}

func (f fakeOrders) CreatePayment(_ context.Context, p *model.Payment) error {
	if err := f.db.fail("CreatePayment"); err != nil {
		return err
	}
	p.ID = f.db.id()
	f.db.payments[p.ID] = *p
	o := f.db.orders[p.OrderID]
	o.PaymentID = &p.ID
	f.db.orders[p.OrderID] = o
	return nil
}

func (f fakeOrders) GetTicketForUpdate(_ context.Context, id uint64) (*model.Ticket, error) {
	t, ok := f.db.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	return &t, nil
}

func (f fakeOrders) GetOrderForUpdate(_ context.Context, id uint64) (*model.Order, error) {
	o, ok := f.db.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (f fakeOrders) ListTicketsByOrder(_ context.Context, orderID uint64) ([]model.Ticket, error) {
	return f.db.orderTickets(orderID), nil
}

func (f fakeOrders) DeleteTicket(_ context.Context, id uint64) error {
	if err := f.db.fail("DeleteTicket"); err != nil {
		return err
	}
	if _, ok := f.db.tickets[id]; !ok {
		return repository.ErrTicketNotFound
	}
	delete(f.db.tickets, id)
	return nil
}

func (f fakeOrders) UpdateOrderTotal(_ context.Context, orderID uint64, total decimal.Decimal) error {
	if err := f.db.fail("UpdateOrderTotal"); err != nil {
		return err
	}
	o := f.db.orders[orderID]
	o.TotalPrice = total
	f.db.orders[orderID] = o
	return nil
}

func (f fakeOrders) DeleteOrder(_ context.Context, orderID uint64) error {
	o, ok := f.db.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	delete(f.db.orders, orderID)
	if o.PaymentID != nil {
		delete(f.db.payments, *o.PaymentID)
	}
	return nil
}

// fakeEvents implements EventStore.
type fakeEvents struct{ db *fakeDB }

func (f fakeEvents) Exists(_ context.Context, id uint64) (bool, error) {
	if err := f.db.fail("Exists"); err != nil {
		return false, err
	}
	return f.db.events[id], nil
}

func (f fakeEvents) OrderIDsWithTickets(_ context.Context, eventID uint64) ([]uint64, error) {
	seen := map[uint64]bool{}
	ids := []uint64{}
	for _, t := range f.db.tickets {
		if t.EventID == eventID && !seen[t.OrderID] {
			seen[t.OrderID] = true
			ids = append(ids, t.OrderID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f fakeEvents) Delete(_ context.Context, id uint64) error {
	if !f.db.events[id] {
		return repository.ErrEventNotFound
	}
	for tid, t := range f.db.tickets {
		if t.EventID == id {
			delete(f.db.tickets, tid)
		}
	}
	for ttid, tt := range f.db.types {
		if tt.EventID == id {
			delete(f.db.types, ttid)
		}
	}
	delete(f.db.events, id)
	return nil
}

// recordingPublisher keeps every message in memory.
type recordingPublisher struct {
	mu        sync.Mutex
	booked    []queue.BookingConfirmedEvent
	cancelled []queue.TicketCancelledEvent
	err       error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.booked = append(p.booked, ev)
	return p.err
}

func (p *recordingPublisher) PublishTicketCancelled(_ context.Context, ev queue.TicketCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return p.err
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	db     *fakeDB
	pub    *recordingPublisher
	book   *BookingService
	cancel *CancellationService
	cat    *CatalogService
}

func newFixture() *fixture {
	db := newFakeDB()
	pub := &recordingPublisher{}
	cfg := config.BookingConfig{MaxAttempts: 3}
	types, orders, events := fakeTypes{db}, fakeOrders{db}, fakeEvents{db}
	b := NewBookingService(db, events, types, orders, cfg, pub, quietLogger())
	b.newTxID = func() string { return "tx-fixed" }
	return &fixture{
		db:     db,
		pub:    pub,
		book:   b,
		cancel: NewCancellationService(db, types, orders, cfg, pub, quietLogger()),
		cat:    NewCatalogService(db, events, types, orders, quietLogger()),
	}
}

var (
	attendee1 = model.Actor{ID: 1, Role: model.RoleAttendee}
	attendee2 = model.Actor{ID: 2, Role: model.RoleAttendee}
	organizer = model.Actor{ID: 3, Role: model.RoleOrganizer}
	admin     = model.Actor{ID: 4, Role: model.RoleAdministrator}
)
