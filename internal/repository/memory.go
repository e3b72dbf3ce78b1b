package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

// Memory keeps aggregates as snapshots in process. Mutations of one event
// are serialised by a per-event lock, mirroring the row lock of the
// PostgreSQL repository.
type Memory struct {
	opts []domain.Option

	mu     sync.Mutex
	events map[string]domain.Snapshot
	locks  map[string]*sync.Mutex
}

// NewMemory returns an empty repository.
func NewMemory(opts ...domain.Option) *Memory {
	return &Memory{
		opts:   opts,
		events: make(map[string]domain.Snapshot),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Create stores a new aggregate at version 1 and returns its drained events.
func (m *Memory) Create(ctx context.Context, e *domain.Event) ([]domain.DomainEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID()]; ok {
		return nil, fmt.Errorf("insert event: duplicate id %s", e.ID())
	}
	e.SetVersion(1)
	m.events[e.ID()] = e.Snapshot()
	m.locks[e.ID()] = &sync.Mutex{}
	return e.DrainDomainEvents(), nil
}

// Load rehydrates the aggregate stored under id.
func (m *Memory) Load(ctx context.Context, id string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	s, ok := m.events[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return domain.Rehydrate(s, m.opts...)
}

// Mutate applies fn to the aggregate under a per-id lock and bumps its version.
func (m *Memory) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Event, []domain.DomainEvent, error) {
	m.mu.Lock()
	lock, ok := m.locks[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	e, err := m.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := fn(e); err != nil {
		return nil, nil, err
	}
	events := e.DrainDomainEvents()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events[id].Version != e.Version() {
		return nil, nil, ErrConcurrentUpdate
	}
	e.SetVersion(e.Version() + 1)
	m.events[id] = e.Snapshot()
	return e, events, nil
}
