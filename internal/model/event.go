// Package model defines the core domain types for the event management system.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Event represents an event created by an admin. Participants are kept in
// registration order; len(Participants) never exceeds Capacity.
type Event struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Date         time.Time     `json:"date"`
	Location     string        `json:"location"`
	Description  string        `json:"description"`
	Capacity     int           `json:"capacity"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return len(e.Participants) >= e.Capacity
}

// IsRegistered reports whether the given user already holds a seat.
func (e *Event) IsRegistered(userID uuid.UUID) bool {
	for _, p := range e.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - len(e.Participants)
}

// Participant is a single registration, embedded in an event. Its ID is the
// registering user's id, so a user holds at most one seat per event.
type Participant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EventStatus is the derived lifecycle state of an event.
type EventStatus string

const (
	StatusActive   EventStatus = "active"
	StatusUpcoming EventStatus = "upcoming"
)

// ViewEvent is the read-only projection served to admin and user surfaces.
type ViewEvent struct {
	Event
	Status EventStatus `json:"status"`
	IsFull bool        `json:"is_full"`
}

// Project derives the view state of an event at the given instant. It is a
// pure function: identical inputs always yield identical output, and the
// result is never cached.
func Project(e Event, now time.Time) ViewEvent {
	status := StatusUpcoming
	if !e.Date.After(now) {
		status = StatusActive
	}
	return ViewEvent{
		Event:  e,
		Status: status,
		IsFull: e.IsFull(),
	}
}
