package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventure/eventure/internal/model"
)

var _ model.EventStore = (*EventRepository)(nil)

// EventRepository handles persistence for events and their participants.
type EventRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool, timeout time.Duration) *EventRepository {
	return &EventRepository{db: db, timeout: timeout}
}

// Create inserts a new event with an empty participant list.
func (r *EventRepository) Create(ctx context.Context, event model.Event) (model.Event, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, event_date, location, description, capacity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Title, event.Date, event.Location, event.Description, event.Capacity, event.CreatedAt,
	)
	if err != nil {
		return model.Event{}, storeErr("insert event", err)
	}
	event.Participants = []model.Participant{}
	return event, nil
}

// List returns all events with their participants in registration order.
// Zero events is a valid result, not an error.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT id, title, event_date, location, description, capacity, created_at
		 FROM events
		 ORDER BY event_date ASC`,
	)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer rows.Close()

	events := []model.Event{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &e.Location, &e.Description, &e.Capacity, &e.CreatedAt); err != nil {
			return nil, storeErr("scan event", err)
		}
		e.Participants = []model.Participant{}
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list events", err)
	}

	prows, err := r.db.Query(ctx,
		`SELECT event_id, user_id, name, email, registered_at
		 FROM participants
		 ORDER BY registered_at ASC`,
	)
	if err != nil {
		return nil, storeErr("list participants", err)
	}
	defer prows.Close()

	for prows.Next() {
		var (
			eventID uuid.UUID
			p       model.Participant
		)
		if err := prows.Scan(&eventID, &p.ID, &p.Name, &p.Email, &p.RegisteredAt); err != nil {
			return nil, storeErr("scan participant", err)
		}
		if i, ok := index[eventID]; ok {
			events[i].Participants = append(events[i].Participants, p)
		}
	}
	return events, prows.Err()
}

// GetByID returns a single event with its participants, or not_found.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Event, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, title, event_date, location, description, capacity, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Date, &e.Location, &e.Description, &e.Capacity, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, model.NewError(model.KindNotFound, "event not found")
		}
		return model.Event{}, storeErr("get event", err)
	}

	e.Participants, err = r.listParticipants(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// Update replaces all event fields. The capacity invariant must hold after
// every mutation, so shrinking capacity below the current participant count
// is rejected; the check runs under the same row lock as registrations.
func (r *EventRepository) Update(ctx context.Context, event model.Event) (model.Event, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Event{}, storeErr("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current int
	err = tx.QueryRow(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`,
		event.ID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, model.NewError(model.KindNotFound, "event not found")
		}
		return model.Event{}, storeErr("lock event row", err)
	}

	var registered int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE event_id = $1`,
		event.ID,
	).Scan(&registered)
	if err != nil {
		return model.Event{}, storeErr("count participants", err)
	}
	if event.Capacity < registered {
		err = model.NewError(model.KindValidation, "capacity cannot be lower than the current participant count")
		return model.Event{}, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET title = $2, event_date = $3, location = $4, description = $5, capacity = $6
		 WHERE id = $1`,
		event.ID, event.Title, event.Date, event.Location, event.Description, event.Capacity,
	)
	if err != nil {
		return model.Event{}, storeErr("update event", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return model.Event{}, storeErr("commit transaction", err)
	}

	return r.GetByID(ctx, event.ID)
}

// Delete removes an event and, via cascade, its participants.
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewError(model.KindNotFound, "event not found")
	}
	return nil
}

// Register admits a participant under the capacity and uniqueness
// invariants. The event row is locked with SELECT ... FOR UPDATE, so
// concurrent attempts against the same event are serialised by the store
// and both checks are evaluated against persisted state at commit time.
// Two concurrent registrations can therefore never jointly overshoot
// capacity.
func (r *EventRepository) Register(ctx context.Context, eventID uuid.UUID, p model.Participant) (model.Participant, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Participant{}, storeErr("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var capacity int
	err = tx.QueryRow(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Participant{}, model.NewError(model.KindNotFound, "event not found")
		}
		return model.Participant{}, storeErr("lock event row", err)
	}

	// The duplicate check runs before the capacity check so a user who
	// already holds a seat on a full event is told so, not turned away
	// as over capacity.
	var registered, duplicate int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE user_id = $2)
		 FROM participants WHERE event_id = $1`,
		eventID, p.ID,
	).Scan(&registered, &duplicate)
	if err != nil {
		return model.Participant{}, storeErr("count participants", err)
	}
	if duplicate > 0 {
		err = model.NewError(model.KindAlreadyRegistered, "user already registered for this event")
		return model.Participant{}, err
	}
	if registered >= capacity {
		err = model.NewError(model.KindCapacityExceeded, "event is at full capacity")
		return model.Participant{}, err
	}

	p.RegisteredAt = time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO participants (event_id, user_id, name, email, registered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		eventID, p.ID, p.Name, p.Email, p.RegisteredAt,
	)
	if err != nil {
		return model.Participant{}, storeErr("insert participant", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return model.Participant{}, storeErr("commit transaction", err)
	}
	return p, nil
}

func (r *EventRepository) listParticipants(ctx context.Context, eventID uuid.UUID) ([]model.Participant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, name, email, registered_at
		 FROM participants
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, storeErr("list participants", err)
	}
	defer rows.Close()

	participants := []model.Participant{}
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.RegisteredAt); err != nil {
			return nil, storeErr("scan participant", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
