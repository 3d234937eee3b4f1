package model

import (
	"context"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByProviderID(ctx context.Context, providerID string) (User, error)
	LinkProvider(ctx context.Context, id uuid.UUID, providerID string) (User, error)
}

// EventStore defines persistence operations for events. Register is the
// atomic conditional write: the capacity and uniqueness checks are evaluated
// against persisted state inside a single per-event mutual-exclusion scope,
// so concurrent registrations can never overshoot capacity.
type EventStore interface {
	Create(ctx context.Context, event Event) (Event, error)
	List(ctx context.Context) ([]Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (Event, error)
	Update(ctx context.Context, event Event) (Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Register(ctx context.Context, eventID uuid.UUID, p Participant) (Participant, error)
}
