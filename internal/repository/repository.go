// Package repository persists Event aggregates. It uses pgx directly (no
// ORM); the aggregate is stored as one events row plus its attendee roster.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("not found")

// ErrConcurrentUpdate is returned when the stored version moved under a
// mutation.
var ErrConcurrentUpdate = errors.New("event was modified concurrently")

// MutateFunc changes a loaded aggregate. Returning an error aborts the
// mutation and nothing is written.
type MutateFunc func(e *domain.Event) error

// EventRepository stores events in PostgreSQL.
type EventRepository struct {
	db   *pgxpool.Pool
	opts []domain.Option
}

// NewEventRepository constructs an EventRepository. opts are applied to
// every rehydrated aggregate.
func NewEventRepository(db *pgxpool.Pool, opts ...domain.Option) *EventRepository {
	return &EventRepository{db: db, opts: opts}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectEvent = `
	SELECT id, organizer_id, title, description,
	       venue, street, city, region, postal_code, country,
	       start_time, end_time, capacity, state, version, created_at, updated_at
	FROM events WHERE id = $1`

// Create inserts a new aggregate and returns the domain events it buffered.
func (r *EventRepository) Create(ctx context.Context, e *domain.Event) (_ []domain.DomainEvent, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	s := e.Snapshot()
	d := s.Details
	_, err = tx.Exec(ctx,
		`INSERT INTO events (id, organizer_id, title, description,
		                     venue, street, city, region, postal_code, country,
		                     start_time, end_time, capacity, state, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, $15, $16)`,
		s.ID, s.OrganizerID, d.Title, d.Description,
		d.Location.Venue, d.Location.Street, d.Location.City, d.Location.Region, d.Location.PostalCode, d.Location.Country,
		d.StartTime, d.EndTime, d.Capacity, string(s.State), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	if err = copyAttendees(ctx, tx, s.ID, s.Attendees); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	e.SetVersion(1)
	return e.DrainDomainEvents(), nil
}

// Load returns the aggregate or ErrNotFound.
func (r *EventRepository) Load(ctx context.Context, id string) (*domain.Event, error) {
	return r.load(ctx, r.db, id, false)
}

// Mutate runs fn on the aggregate while holding its row lock, persists the
// result and returns the drained domain events.
//
// SELECT … FOR UPDATE serialises concurrent commands on the same event, so
// two registrations can never both see the last free seat. The version
// predicate on the UPDATE catches writers that bypass the lock.
func (r *EventRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (_ *domain.Event, _ []domain.DomainEvent, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	e, err := r.load(ctx, tx, id, true)
	if err != nil {
		return nil, nil, err
	}
	if err = fn(e); err != nil {
		return nil, nil, err
	}
	events := e.DrainDomainEvents()

	s := e.Snapshot()
	d := s.Details
	tag, err := tx.Exec(ctx,
		`UPDATE events
		 SET title = $3, description = $4,
		     venue = $5, street = $6, city = $7, region = $8, postal_code = $9, country = $10,
		     start_time = $11, end_time = $12, capacity = $13, state = $14, updated_at = $15,
		     version = version + 1
		 WHERE id = $1 AND version = $2`,
		s.ID, s.Version, d.Title, d.Description,
		d.Location.Venue, d.Location.Street, d.Location.City, d.Location.Region, d.Location.PostalCode, d.Location.Country,
		d.StartTime, d.EndTime, d.Capacity, string(s.State), s.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, ErrConcurrentUpdate
	}

	if _, err = tx.Exec(ctx, `DELETE FROM attendees WHERE event_id = $1`, s.ID); err != nil {
		return nil, nil, fmt.Errorf("clear attendees: %w", err)
	}
	if err = copyAttendees(ctx, tx, s.ID, s.Attendees); err != nil {
		return nil, nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	e.SetVersion(s.Version + 1)
	return e, events, nil
}

func (r *EventRepository) load(ctx context.Context, q querier, id string, lock bool) (*domain.Event, error) {
	query := selectEvent
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		s     domain.Snapshot
		state string
	)
	d := &s.Details
	err := q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.OrganizerID, &d.Title, &d.Description,
		&d.Location.Venue, &d.Location.Street, &d.Location.City, &d.Location.Region, &d.Location.PostalCode, &d.Location.Country,
		&d.StartTime, &d.EndTime, &d.Capacity, &state, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	s.State = domain.State(state)
	d.StartTime = d.StartTime.UTC()
	d.EndTime = d.EndTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()

	rows, err := q.Query(ctx,
		`SELECT user_id, name, email, registered_at
		 FROM attendees
		 WHERE event_id = $1
		 ORDER BY position ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Attendee
		if err := rows.Scan(&a.UserID, &a.Name, &a.Email, &a.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		a.RegisteredAt = a.RegisteredAt.UTC()
		s.Attendees = append(s.Attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	return domain.Rehydrate(s, r.opts...)
}

// copyAttendees bulk-loads the roster, keeping its order in position.
func copyAttendees(ctx context.Context, tx pgx.Tx, eventID string, attendees []domain.Attendee) error {
	if len(attendees) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"attendees"},
		[]string{"event_id", "position", "user_id", "name", "email", "registered_at"},
		pgx.CopyFromSlice(len(attendees), func(i int) ([]any, error) {
			a := attendees[i]
			return []any{eventID, i, a.UserID, a.Name, a.Email, a.RegisteredAt.UTC()}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy attendees: %w", err)
	}
	return nil
}
