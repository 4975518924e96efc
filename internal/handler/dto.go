package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// money renders a price as a fixed two digit string, e.g. "150.00".
func money(d decimal.Decimal) string { return d.StringFixed(model.PriceScale) }

type ticketTypeResp struct {
	ID        uint64 `json:"id"`
	EventID   uint64 `json:"event_id"`
	Label     string `json:"label"`
	Price     string `json:"price"`
	Remaining int    `json:"remaining"`
}

func toTicketType(tt model.TicketType) ticketTypeResp {
	return ticketTypeResp{ID: tt.ID, EventID: tt.EventID, Label: tt.Label, Price: money(tt.Price), Remaining: tt.Remaining}
}

type ticketResp struct {
	ID        uint64     `json:"id"`
	OrderID   uint64     `json:"order_id"`
	EventID   uint64     `json:"event_id"`
	Label     string     `json:"type"`
	Price     string     `json:"price"`
	EventName string     `json:"event_name,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
}

type orderResp struct {
	ID            uint64       `json:"id"`
	UserID        uint64       `json:"user_id"`
	CreatedAt     time.Time    `json:"created_at"`
	TotalPrice    string       `json:"total_price"`
	PaymentID     *uint64      `json:"payment_id,omitempty"`
	PaymentMethod *string      `json:"payment_method,omitempty"`
	Tickets       []ticketResp `json:"tickets"`
}

func toOrder(o *model.Order) orderResp {
	out := orderResp{
		ID:         o.ID,
		UserID:     o.UserID,
		CreatedAt:  o.CreatedAt,
		TotalPrice: money(o.TotalPrice),
		PaymentID:  o.PaymentID,
		Tickets:    make([]ticketResp, 0, len(o.Tickets)),
	}
	for _, t := range o.Tickets {
		out.Tickets = append(out.Tickets, ticketResp{ID: t.ID, OrderID: t.OrderID, EventID: t.EventID, Label: t.Label, Price: money(t.Price)})
	}
	return out
}

func toOrderDetail(d repository.OrderDetail) orderResp {
	out := toOrder(&d.Order)
	out.PaymentMethod = d.PaymentMethod
	out.Tickets = out.Tickets[:0]
	for _, it := range d.Items {
		startsAt := it.StartsAt
		out.Tickets = append(out.Tickets, ticketResp{
			ID:        it.ID,
			OrderID:   it.OrderID,
			EventID:   it.EventID,
			Label:     it.Label,
			Price:     money(it.Price),
			EventName: it.EventName,
			StartsAt:  &startsAt,
		})
	}
	return out
}

func toOrderDetails(ds []repository.OrderDetail) []orderResp {
	out := make([]orderResp, 0, len(ds))
	for _, d := range ds {
		out = append(out, toOrderDetail(d))
	}
	return out
}

type eventDetailResp struct {
	model.Event
	Venue       *model.Venue     `json:"venue,omitempty"`
	Speakers    []model.Speaker  `json:"speakers"`
	TicketTypes []ticketTypeResp `json:"ticket_types"`
}
