package readmodel

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/codec"
)

// MemoryCollection keeps encoded copies of records so callers never share
// maps or slices with the store.
type MemoryCollection[T any] struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryCollection returns an empty collection.
func NewMemoryCollection[T any]() *MemoryCollection[T] {
	return &MemoryCollection[T]{data: make(map[string][]byte)}
}

// Get decodes a fresh copy of the record stored under key.
func (c *MemoryCollection[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var record T
	if err := ctx.Err(); err != nil {
		return record, false, err
	}
	c.mu.RLock()
	raw, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return record, false, nil
	}
	if err := codec.Unmarshal(raw, &record); err != nil {
		return record, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return record, true, nil
}

// Put stores an encoded copy of record under key.
func (c *MemoryCollection[T]) Put(ctx context.Context, key string, record T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return nil
}

// Len is the number of stored records.
func (c *MemoryCollection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// MemoryDeduper is an in-process Deduper.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduper returns an empty deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

// Seen reports whether key was marked.
func (d *MemoryDeduper) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[key]
	return ok, nil
}

// Mark records key as processed.
func (d *MemoryDeduper) Mark(_ context.Context, key string) error {
	d.mu.Lock()
	d.seen[key] = struct{}{}
	d.mu.Unlock()
	return nil
}
