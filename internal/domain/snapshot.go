package domain

import (
	"fmt"
	"slices"
	"time"
)

// Snapshot is the persisted form of an Event.
type Snapshot struct {
	ID          string
	OrganizerID string
	Details     Details
	State       State
	Attendees   []Attendee
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot captures the current state. Buffered domain events are not part
// of it.
func (e *Event) Snapshot() Snapshot {
	return Snapshot{
		ID:          e.id,
		OrganizerID: e.organizerID,
		Details:     e.details,
		State:       e.state,
		Attendees:   slices.Clone(e.attendees),
		Version:     e.version,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
	}
}

// Rehydrate rebuilds an Event from storage. It is the only way to obtain an
// event in the Completed state, which the external scheduler writes
// directly. The start-not-in-past rule is not re-checked.
func Rehydrate(s Snapshot, opts ...Option) (*Event, error) {
	switch s.State {
	case StateDraft, StatePublished, StateCancelled, StateCompleted:
	default:
		return nil, fmt.Errorf("rehydrate event %s: unknown state %q", s.ID, s.State)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("rehydrate event: missing id")
	}
	if len(s.Attendees) > s.Details.Capacity {
		return nil, fmt.Errorf("rehydrate event %s: %d attendees exceed capacity %d",
			s.ID, len(s.Attendees), s.Details.Capacity)
	}
	e := &Event{
		id:          s.ID,
		organizerID: s.OrganizerID,
		details:     s.Details,
		state:       s.State,
		attendees:   slices.Clone(s.Attendees),
		version:     s.Version,
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetVersion is called by the persistence layer after a successful save.
func (e *Event) SetVersion(v int64) { e.version = v }
