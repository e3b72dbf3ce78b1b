// Package readmodel is the key-addressable store behind the projections.
//
// Writes are plain read-modify-write: Get, change, Put. Nothing spans the
// read and the write, so two consumers updating the same record at once
// can lose one update.
package readmodel

import (
	"context"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

// Collection stores records of one kind by string key.
type Collection[T any] interface {
	// Get returns the record for key, or ok=false when absent.
	Get(ctx context.Context, key string) (record T, ok bool, err error)
	Put(ctx context.Context, key string, record T) error
}

// Store groups the collections the projections write to.
type Store struct {
	EventMetrics Collection[model.EventMetrics]
	// DailyMetrics is keyed by model.DailyMetricsKey(date, eventID).
	DailyMetrics Collection[model.DailyMetrics]
	// DailySales is keyed by date (model.DateLayout).
	DailySales Collection[model.DailySalesReport]
	Attendance Collection[model.AttendanceHistory]
}

// Deduper remembers processed message ids.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// NewMemoryStore returns a Store backed by process memory.
func NewMemoryStore() Store {
	return Store{
		EventMetrics: NewMemoryCollection[model.EventMetrics](),
		DailyMetrics: NewMemoryCollection[model.DailyMetrics](),
		DailySales:   NewMemoryCollection[model.DailySalesReport](),
		Attendance:   NewMemoryCollection[model.AttendanceHistory](),
	}
}
