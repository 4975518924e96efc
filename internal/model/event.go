package model

import "time"

// Venue is a physical location where events take place.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – venue name (required).
//  Address  – street address (optional).
//  Capacity – advertised capacity (optional, informational only).
//  City, State, ZipCode – location fields (optional).
type Venue struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Address  *string `json:"address,omitempty"`
	Capacity *uint32 `json:"capacity,omitempty"`
	City     *string `json:"city,omitempty"`
	State    *string `json:"state,omitempty"`
	ZipCode  *string `json:"zip_code,omitempty"`
}

// Event is a scheduled happening at a venue.  Date and Time are kept
// as separate columns in the events table; StartsAt combines them in
// UTC for convenience.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – event name (required).
//  Description – free text (optional).
//  StartsAt    – date and time of the event (events.date + events.time).
//  VenueID     – venue hosting the event.
type Event struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	VenueID     uint64    `json:"venue_id"`
}

// Speaker is a person presenting at an event.
type Speaker struct {
	ID      uint64  `json:"id"`
	Name    string  `json:"name"`
	Bio     *string `json:"bio,omitempty"`
	EventID uint64  `json:"event_id"`
}
