// Package audit is the append-only operability log written by the
// projection consumers. Nothing reads it to drive behaviour.
package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

// Sink appends audit entries.
type Sink interface {
	Append(ctx context.Context, entry model.AuditLogEntry) error
}

// Reader lists audit entries for one entity, newest first.
type Reader interface {
	ForEntity(ctx context.Context, entityID string, limit int) ([]model.AuditLogEntry, error)
}

// Memory is an in-process audit log.
type Memory struct {
	mu      sync.RWMutex
	entries []model.AuditLogEntry
}

// NewMemory returns an empty log.
func NewMemory() *Memory {
	return &Memory{}
}

// Append records entry.
func (m *Memory) Append(_ context.Context, entry model.AuditLogEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
	return nil
}

// ForEntity returns up to limit entries for entityID, newest first.
func (m *Memory) ForEntity(_ context.Context, entityID string, limit int) ([]model.AuditLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.AuditLogEntry
	for _, e := range m.entries {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Entries returns every entry in append order.
func (m *Memory) Entries() []model.AuditLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.AuditLogEntry(nil), m.entries...)
}
