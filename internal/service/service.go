// Package service implements the command side: it loads the Event
// aggregate, applies one operation, persists it and publishes the domain
// events the operation recorded.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/bus"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/repository"
)

// ErrPublish is returned when a command was saved but its domain events
// could not be handed to the bus.
var ErrPublish = errors.New("domain events not published")

// EventStore persists Event aggregates.
type EventStore interface {
	Create(ctx context.Context, e *domain.Event) ([]domain.DomainEvent, error)
	Load(ctx context.Context, id string) (*domain.Event, error)
	Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*domain.Event, []domain.DomainEvent, error)
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events EventStore
	bus    bus.Publisher
	logger *slog.Logger
	opts   []domain.Option
}

// NewEventService constructs an EventService with its dependencies. opts
// are applied to newly created aggregates.
func NewEventService(events EventStore, pub bus.Publisher, logger *slog.Logger, opts ...domain.Option) *EventService {
	return &EventService{
		events: events,
		bus:    pub,
		logger: logger.With("component", "service"),
		opts:   opts,
	}
}

// CreateEvent validates the request and stores a Draft event.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*domain.Event, error) {
	e, err := domain.NewEvent(req.OrganizerID, req.Details(), s.opts...)
	if err != nil {
		return nil, err
	}
	events, err := s.events.Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", e.ID(), "organizer_id", e.OrganizerID())
	return e, s.publish(ctx, e.ID(), events)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	e, err := s.events.Load(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Publish opens a Draft event for registration.
func (s *EventService) Publish(ctx context.Context, id string) (*domain.Event, error) {
	return s.mutate(ctx, "publish", id, func(e *domain.Event) error { return e.Publish() })
}

// Cancel cancels a Draft or Published event.
func (s *EventService) Cancel(ctx context.Context, id string) (*domain.Event, error) {
	return s.mutate(ctx, "cancel", id, func(e *domain.Event) error { return e.Cancel() })
}

// Register adds an attendee. The aggregate is locked for the duration, so
// concurrent registrations for the last seat cannot both succeed.
func (s *EventService) Register(ctx context.Context, id string, req model.RegisterRequest) (*domain.Event, error) {
	return s.mutate(ctx, "register", id, func(e *domain.Event) error {
		return e.RegisterAttendee(req.UserID, req.Name, req.Email)
	})
}

// CancelRegistration removes an attendee.
func (s *EventService) CancelRegistration(ctx context.Context, id, userID string) (*domain.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &domain.ArgumentError{Field: "user_id", Msg: "must not be blank"}
	}
	return s.mutate(ctx, "cancel registration", id, func(e *domain.Event) error {
		return e.CancelRegistration(userID)
	})
}

// Update replaces the descriptive fields of an event.
func (s *EventService) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*domain.Event, error) {
	return s.mutate(ctx, "update", id, func(e *domain.Event) error { return e.Update(req.Details()) })
}

func (s *EventService) mutate(ctx context.Context, op, id string, fn repository.MutateFunc) (*domain.Event, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	e, events, err := s.events.Mutate(ctx, id, fn)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%s event: %w", op, err)
	}
	s.logger.Info("event "+op, "event_id", id, "version", e.Version(), "domain_events", len(events))
	return e, s.publish(ctx, id, events)
}

// publish runs after the save committed; a failure leaves the state change
// in place and is reported to the caller.
func (s *EventService) publish(ctx context.Context, id string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.bus.Publish(ctx, events...); err != nil {
		s.logger.Error("publish domain events", "event_id", id, "count", len(events), "error", err)
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &domain.ArgumentError{Field: "id", Msg: "is required"}
	}
	return nil
}

// isDomainError reports errors the handlers map to client statuses; they
// are surfaced without extra wrapping.
func isDomainError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrConcurrentUpdate) ||
		errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrCapacityExceeded) ||
		errors.Is(err, domain.ErrDuplicateRegistration) ||
		errors.Is(err, domain.ErrNotRegistered)
}
