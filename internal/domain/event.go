// Package domain holds the Event aggregate, the invariants it enforces and
// the catalog of domain events exchanged between bounded contexts.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of an Event.
type State string

const (
	StateDraft     State = "Draft"
	StatePublished State = "Published"
	StateCancelled State = "Cancelled"
	StateCompleted State = "Completed"
)

// MaxCapacity caps the attendee capacity of a single event.
const MaxCapacity = 100_000

// Details are the mutable descriptive fields of an Event.
type Details struct {
	Title       string
	Description string
	Location    Location
	StartTime   time.Time
	EndTime     time.Time
	Capacity    int
}

// Event is the aggregate root. All fields are private; it changes only
// through its methods and every method validates before mutating.
//
// Event is not safe for concurrent use. Callers serialise access per
// aggregate (see repository.Mutate).
type Event struct {
	id          string
	organizerID string
	details     Details
	state       State
	attendees   []Attendee
	version     int64
	createdAt   time.Time
	updatedAt   time.Time

	pending []DomainEvent
	now     func() time.Time
}

// Option configures an Event at construction.
type Option func(*Event)

// WithClock overrides the time source used for timestamps and the
// start-not-in-past check.
func WithClock(now func() time.Time) Option {
	return func(e *Event) { e.now = now }
}

// NewEvent validates d and returns a Draft event with a fresh id and an
// empty roster.
func NewEvent(organizerID string, d Details, opts ...Option) (*Event, error) {
	e := &Event{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	organizerID = strings.TrimSpace(organizerID)
	if organizerID == "" {
		return nil, argErr("organizer_id", "must not be blank")
	}
	d, err := normalizeDetails(d)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	if d.StartTime.Before(now) {
		return nil, argErr("start_time", "must not be in the past")
	}

	e.id = uuid.NewString()
	e.organizerID = organizerID
	e.details = d
	e.state = StateDraft
	e.createdAt = now
	e.updatedAt = now
	return e, nil
}

func normalizeDetails(d Details) (Details, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	if d.Title == "" {
		return Details{}, argErr("title", "must not be blank")
	}
	if d.Description == "" {
		return Details{}, argErr("description", "must not be blank")
	}
	loc, err := NewLocation(d.Location.Venue, d.Location.Street, d.Location.City,
		d.Location.Region, d.Location.PostalCode, d.Location.Country)
	if err != nil {
		return Details{}, err
	}
	d.Location = loc
	if d.StartTime.IsZero() {
		return Details{}, argErr("start_time", "is required")
	}
	if !d.EndTime.After(d.StartTime) {
		return Details{}, argErr("end_time", "must be after start_time")
	}
	if d.Capacity <= 0 {
		return Details{}, argErr("capacity", "must be a positive integer")
	}
	if d.Capacity > MaxCapacity {
		return Details{}, argErr("capacity", "cannot exceed 100,000")
	}
	d.StartTime = d.StartTime.UTC()
	d.EndTime = d.EndTime.UTC()
	return d, nil
}

func (e *Event) ID() string           { return e.id }
func (e *Event) OrganizerID() string  { return e.organizerID }
func (e *Event) Details() Details     { return e.details }
func (e *Event) State() State         { return e.state }
func (e *Event) Version() int64       { return e.version }
func (e *Event) CreatedAt() time.Time { return e.createdAt }
func (e *Event) UpdatedAt() time.Time { return e.updatedAt }

// Attendees returns a copy of the roster in registration order.
func (e *Event) Attendees() []Attendee { return slices.Clone(e.attendees) }

// AttendeeCount is the current roster size.
func (e *Event) AttendeeCount() int { return len(e.attendees) }

// IsFull reports whether the roster has reached capacity.
func (e *Event) IsFull() bool { return len(e.attendees) == e.details.Capacity }

// IsRegistered reports whether userID is on the roster.
func (e *Event) IsRegistered(userID string) bool { return e.indexOf(userID) >= 0 }

func (e *Event) indexOf(userID string) int {
	return slices.IndexFunc(e.attendees, func(a Attendee) bool { return a.UserID == userID })
}

// Publish moves a Draft event to Published.
func (e *Event) Publish() error {
	switch e.state {
	case StateDraft:
	case StatePublished:
		return &InvalidStateError{State: e.state, Msg: "event is already published"}
	default:
		return &InvalidStateError{State: e.state, Msg: "only draft events can be published"}
	}
	e.state = StatePublished
	e.touch()
	e.record(EventPublished{
		EventID:   e.id,
		Title:     e.details.Title,
		StartTime: e.details.StartTime,
	})
	return nil
}

// Cancel moves a Draft or Published event to Cancelled.
func (e *Event) Cancel() error {
	switch e.state {
	case StateDraft, StatePublished:
	case StateCancelled:
		return &InvalidStateError{State: e.state, Msg: "event is already cancelled"}
	case StateCompleted:
		return &InvalidStateError{State: e.state, Msg: "event is already completed"}
	default:
		return &InvalidStateError{State: e.state, Msg: "unknown state"}
	}
	e.state = StateCancelled
	e.touch()
	e.record(EventCancelled{EventID: e.id, Title: e.details.Title})
	return nil
}

// RegisterAttendee adds userID to the roster. Checks run in order: state,
// capacity, duplicate, attendee fields.
func (e *Event) RegisterAttendee(userID, name, email string) error {
	switch e.state {
	case StatePublished:
	case StateCancelled:
		return &InvalidStateError{State: e.state, Msg: "event is cancelled"}
	case StateCompleted:
		return &InvalidStateError{State: e.state, Msg: "event is completed"}
	default:
		return &InvalidStateError{State: e.state, Msg: "event is not published"}
	}
	if e.IsFull() {
		return &CapacityExceededError{EventID: e.id, Capacity: e.details.Capacity}
	}
	if e.IsRegistered(strings.TrimSpace(userID)) {
		return &DuplicateRegistrationError{EventID: e.id, UserID: strings.TrimSpace(userID)}
	}
	a, err := newAttendee(userID, name, email, e.now())
	if err != nil {
		return err
	}

	e.attendees = append(e.attendees, a)
	e.touch()
	e.record(AttendeeRegistered{
		EventID:      e.id,
		UserID:       a.UserID,
		UserName:     a.Name,
		RegisteredAt: a.RegisteredAt,
	})
	return nil
}

// CancelRegistration removes userID from the roster. No domain event is
// recorded, so read models that counted the registration keep counting it.
func (e *Event) CancelRegistration(userID string) error {
	i := e.indexOf(strings.TrimSpace(userID))
	if i < 0 {
		return &NotRegisteredError{EventID: e.id, UserID: userID}
	}
	e.attendees = slices.Delete(e.attendees, i, i+1)
	e.touch()
	return nil
}

// Update replaces the descriptive fields. It records no domain event.
func (e *Event) Update(d Details) error {
	switch e.state {
	case StateCancelled:
		return &InvalidStateError{State: e.state, Msg: "cannot update a cancelled event"}
	case StateCompleted:
		return &InvalidStateError{State: e.state, Msg: "cannot update a completed event"}
	}
	d, err := normalizeDetails(d)
	if err != nil {
		return err
	}
	if d.Capacity < len(e.attendees) {
		return argErr("capacity", "cannot reduce below current attendance")
	}
	e.details = d
	e.touch()
	return nil
}

// DrainDomainEvents returns the buffered events and clears the buffer.
func (e *Event) DrainDomainEvents() []DomainEvent {
	out := e.pending
	e.pending = nil
	return out
}

func (e *Event) record(evt DomainEvent) { e.pending = append(e.pending, evt) }

func (e *Event) touch() { e.updatedAt = e.now().UTC() }
