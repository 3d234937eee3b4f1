// Package testutil provides in-memory store implementations for tests.
// MemoryEventStore honors the same atomic-admission contract as the
// Postgres repository: checks and append happen under one lock.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventure/eventure/internal/model"
)

// MemoryUserStore is an in-memory model.UserStore.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

// NewMemoryUserStore constructs an empty MemoryUserStore.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[uuid.UUID]model.User{}}
}

func (s *MemoryUserStore) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return model.User{}, model.NewError(model.KindConflict, "email already in use")
		}
		if user.Credential.ProviderID != "" && u.Credential.ProviderID == user.Credential.ProviderID {
			return model.User{}, model.NewError(model.KindConflict, "provider identity already linked to another account")
		}
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.NewError(model.KindNotFound, "user not found")
	}
	return u, nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.NewError(model.KindNotFound, "user not found")
}

func (s *MemoryUserStore) GetByProviderID(_ context.Context, providerID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Credential.ProviderID == providerID {
			return u, nil
		}
	}
	return model.User{}, model.NewError(model.KindNotFound, "user not found")
}

func (s *MemoryUserStore) LinkProvider(_ context.Context, id uuid.UUID, providerID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.NewError(model.KindNotFound, "user not found")
	}
	u.Credential.ProviderID = providerID
	s.users[id] = u
	return u, nil
}

// MemoryEventStore is an in-memory model.EventStore.
type MemoryEventStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*model.Event
	order  []uuid.UUID
}

// NewMemoryEventStore constructs an empty MemoryEventStore.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: map[uuid.UUID]*model.Event{}}
}

func (s *MemoryEventStore) Create(_ context.Context, event model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Participants = []model.Participant{}
	copied := event
	s.events[event.ID] = &copied
	s.order = append(s.order, event.ID)
	return event, nil
}

func (s *MemoryEventStore) List(_ context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		events = append(events, snapshot(s.events[id]))
	}
	return events, nil
}

func (s *MemoryEventStore) GetByID(_ context.Context, id uuid.UUID) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, model.NewError(model.KindNotFound, "event not found")
	}
	return snapshot(e), nil
}

func (s *MemoryEventStore) Update(_ context.Context, event model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[event.ID]
	if !ok {
		return model.Event{}, model.NewError(model.KindNotFound, "event not found")
	}
	if event.Capacity < len(stored.Participants) {
		return model.Event{}, model.NewError(model.KindValidation, "capacity cannot be lower than the current participant count")
	}
	stored.Title = event.Title
	stored.Date = event.Date
	stored.Location = event.Location
	stored.Description = event.Description
	stored.Capacity = event.Capacity
	return snapshot(stored), nil
}

func (s *MemoryEventStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return model.NewError(model.KindNotFound, "event not found")
	}
	delete(s.events, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryEventStore) Register(_ context.Context, eventID uuid.UUID, p model.Participant) (model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return model.Participant{}, model.NewError(model.KindNotFound, "event not found")
	}
	for _, existing := range e.Participants {
		if existing.ID == p.ID {
			return model.Participant{}, model.NewError(model.KindAlreadyRegistered, "user already registered for this event")
		}
	}
	if len(e.Participants) >= e.Capacity {
		return model.Participant{}, model.NewError(model.KindCapacityExceeded, "event is at full capacity")
	}
	p.RegisteredAt = time.Now().UTC()
	e.Participants = append(e.Participants, p)
	return p, nil
}

func snapshot(e *model.Event) model.Event {
	copied := *e
	copied.Participants = append([]model.Participant{}, e.Participants...)
	return copied
}
