package handler

import (
	"context"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// The interfaces below are implemented by the repository and service
// types wired in cmd/server.

type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context, limit int) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event) error
}

type VenueRepository interface {
	Create(ctx context.Context, v *model.Venue) error
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
	List(ctx context.Context) ([]model.Venue, error)
	Update(ctx context.Context, v *model.Venue) error
	Delete(ctx context.Context, id uint64) error
}

type SpeakerRepository interface {
	Create(ctx context.Context, s *model.Speaker) error
	GetByID(ctx context.Context, id uint64) (*model.Speaker, error)
	List(ctx context.Context, eventID uint64) ([]model.Speaker, error)
	Update(ctx context.Context, s *model.Speaker) error
	Delete(ctx context.Context, id uint64) error
}

type TicketTypeLister interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error)
}

type OrderLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]repository.OrderDetail, error)
	ListAll(ctx context.Context) ([]repository.OrderDetail, error)
}

// Booker is implemented by *service.BookingService.
type Booker interface {
	Book(ctx context.Context, actor model.Actor, in service.BookInput) (*model.Order, error)
}

// Canceller is implemented by *service.CancellationService.
type Canceller interface {
	CancelTicket(ctx context.Context, actor model.Actor, ticketID uint64) (service.CancellationResult, error)
	DeleteTicket(ctx context.Context, actor model.Actor, ticketID uint64) (service.CancellationResult, error)
}

// Catalog is implemented by *service.CatalogService.
type Catalog interface {
	CreateTicketType(ctx context.Context, actor model.Actor, tt *model.TicketType) error
	UpdateTicketType(ctx context.Context, actor model.Actor, tt *model.TicketType) error
	DeleteTicketType(ctx context.Context, actor model.Actor, id uint64) error
	DeleteEvent(ctx context.Context, actor model.Actor, eventID uint64) (service.EventDeletion, error)
}
