// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eventure/eventure/internal/logger"
	"github.com/eventure/eventure/internal/model"
	"github.com/eventure/eventure/internal/report"
)

// registerAttempts bounds automatic retries when the store is unavailable.
// All other failure kinds are terminal for the call.
const registerAttempts = 3

// EventService orchestrates event CRUD, registration, and reporting.
type EventService struct {
	events   model.EventStore
	reports  report.Generator
	validate *validator.Validate
	logger   *logger.Logger

	retryBackoff time.Duration
	now          func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events model.EventStore, reports report.Generator, logger *logger.Logger) *EventService {
	return &EventService{
		events:       events,
		reports:      reports,
		validate:     validator.New(),
		logger:       logger,
		retryBackoff: 100 * time.Millisecond,
		now:          time.Now,
	}
}

// Create validates the request and persists a new event with an empty
// participant list.
func (s *EventService) Create(ctx context.Context, req model.EventRequest) (model.Event, error) {
	req = trimEventRequest(req)
	if err := s.validate.Struct(req); err != nil {
		return model.Event{}, model.WrapError(model.KindValidation, "invalid event payload", err)
	}

	event, err := s.events.Create(ctx, model.Event{
		ID:          uuid.New(),
		Title:       req.Title,
		Date:        req.Date,
		Location:    req.Location,
		Description: req.Description,
		Capacity:    req.Capacity,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return model.Event{}, err
	}

	s.logger.Info("event created", "event_id", event.ID, "title", event.Title, "capacity", event.Capacity)
	return event, nil
}

// List returns all events projected against the current time. Zero events
// yields an empty slice, not an error.
func (s *EventService) List(ctx context.Context) ([]model.ViewEvent, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]model.ViewEvent, 0, len(events))
	for _, e := range events {
		views = append(views, model.Project(e, now))
	}
	return views, nil
}

// Get returns a single event projected against the current time.
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (model.ViewEvent, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return model.ViewEvent{}, err
	}
	return model.Project(event, s.now()), nil
}

// Update replaces all event fields after the same validation as Create.
func (s *EventService) Update(ctx context.Context, id uuid.UUID, req model.EventRequest) (model.Event, error) {
	req = trimEventRequest(req)
	if err := s.validate.Struct(req); err != nil {
		return model.Event{}, model.WrapError(model.KindValidation, "invalid event payload", err)
	}

	return s.events.Update(ctx, model.Event{
		ID:          id,
		Title:       req.Title,
		Date:        req.Date,
		Location:    req.Location,
		Description: req.Description,
		Capacity:    req.Capacity,
	})
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("event deleted", "event_id", id)
	return nil
}

// Register admits the authenticated caller to an event. The capacity and
// uniqueness checks are delegated to the store's atomic conditional write;
// only store_unavailable failures are retried, with backoff, before the
// outcome is surfaced.
func (s *EventService) Register(ctx context.Context, eventID uuid.UUID, identity *model.Identity) (model.Participant, error) {
	if identity == nil {
		return model.Participant{}, model.NewError(model.KindUnauthenticated, "registration requires a verified identity")
	}

	participant := model.Participant{
		ID:    identity.ID,
		Name:  identity.Name,
		Email: identity.Email,
	}

	var lastErr error
	for attempt := 1; attempt <= registerAttempts; attempt++ {
		admitted, err := s.events.Register(ctx, eventID, participant)
		if err == nil {
			s.logger.Info("participant registered", "event_id", eventID, "user_id", identity.ID)
			return admitted, nil
		}
		lastErr = err
		if !model.IsKind(err, model.KindStoreUnavailable) {
			return model.Participant{}, err
		}

		s.logger.Warn("registration store unavailable, retrying",
			"event_id", eventID, "attempt", attempt, "error", err.Error())
		select {
		case <-ctx.Done():
			return model.Participant{}, model.WrapError(model.KindStoreUnavailable, "registration abandoned", ctx.Err())
		case <-time.After(s.retryBackoff * time.Duration(attempt)):
		}
	}
	return model.Participant{}, lastErr
}

// Report hands event facts to the report-generation collaborator and
// returns its prose verbatim. The operation is read-only with respect to
// event state.
func (s *EventService) Report(ctx context.Context, eventID uuid.UUID) (string, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return "", err
	}

	text, err := s.reports.Generate(ctx, report.Facts{
		Title:            event.Title,
		Date:             event.Date,
		Location:         event.Location,
		Description:      event.Description,
		ParticipantCount: len(event.Participants),
		Capacity:         event.Capacity,
	})
	if err != nil {
		s.logger.Error("report generation failed", "event_id", eventID, "error", err.Error())
		return "", err
	}
	return text, nil
}

func trimEventRequest(req model.EventRequest) model.EventRequest {
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	req.Description = strings.TrimSpace(req.Description)
	return req
}
