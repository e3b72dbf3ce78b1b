package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

// DeadLetter is a message that exhausted its deliveries.
type DeadLetter struct {
	Message Message
	Err     error
}

// MemoryOptions configures a Memory bus.
type MemoryOptions struct {
	// MaxDeliveries bounds redelivery of a failing message. Default 5.
	MaxDeliveries int
	Now           func() time.Time
}

// Memory is an in-process bus with one FIFO queue per event type. A failed
// message goes back to the tail of its queue, so it is retried after
// anything published in the meantime.
type Memory struct {
	logger        *slog.Logger
	maxDeliveries int
	now           func() time.Time

	mu     sync.Mutex
	queues map[string][]Message
	types  []string
	dead   []DeadLetter
	notify chan struct{}
}

// NewMemory builds an in-memory bus.
func NewMemory(logger *slog.Logger, opts MemoryOptions) *Memory {
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Memory{
		logger:        logger.With("component", "bus.memory"),
		maxDeliveries: opts.MaxDeliveries,
		now:           opts.Now,
		queues:        make(map[string][]Message),
		notify:        make(chan struct{}, 1),
	}
}

// Publish encodes and enqueues events.
func (m *Memory) Publish(ctx context.Context, events ...domain.DomainEvent) error {
	msgs := make([]Message, 0, len(events))
	for _, evt := range events {
		msg, err := NewMessage(evt, m.now())
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Enqueue(msgs...)
	return nil
}

// Enqueue appends already-encoded messages, e.g. a redelivery from an
// external log.
func (m *Memory) Enqueue(msgs ...Message) {
	m.mu.Lock()
	for _, msg := range msgs {
		if msg.Attempt == 0 {
			msg.Attempt = 1
		}
		if _, ok := m.queues[msg.Type]; !ok {
			m.types = append(m.types, msg.Type)
		}
		m.queues[msg.Type] = append(m.queues[msg.Type], msg)
	}
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Pending is the number of queued messages.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.queues {
		n += len(q)
	}
	return n
}

// DeadLetters returns messages that exhausted their deliveries.
func (m *Memory) DeadLetters() []DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeadLetter(nil), m.dead...)
}

// Pump delivers queued messages until every queue is empty, taking one
// message per event type in turn. Types are independent: a failure in one
// never blocks another. It returns the number of deliveries made.
func (m *Memory) Pump(ctx context.Context, router *Router) (int, error) {
	delivered := 0
	for {
		batch := m.takeOnePerType()
		if len(batch) == 0 {
			return delivered, nil
		}
		for i, msg := range batch {
			if err := ctx.Err(); err != nil {
				m.Enqueue(batch[i:]...)
				return delivered, err
			}
			if !router.Has(msg.Type) {
				m.logger.Debug("dropping unrouted message", "type", msg.Type, "id", msg.ID)
				continue
			}
			delivered++
			err := router.Route(ctx, msg)
			if err == nil {
				continue
			}
			m.retry(msg, err)
		}
	}
}

// Run pumps whenever messages arrive until ctx is cancelled.
func (m *Memory) Run(ctx context.Context, router *Router) error {
	for {
		if _, err := m.Pump(ctx, router); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-m.notify:
		}
	}
}

func (m *Memory) retry(msg Message, err error) {
	if msg.Attempt >= m.maxDeliveries {
		m.logger.Error("message dead-lettered",
			"type", msg.Type, "id", msg.ID, "attempts", msg.Attempt, "error", err)
		m.mu.Lock()
		m.dead = append(m.dead, DeadLetter{Message: msg, Err: err})
		m.mu.Unlock()
		return
	}
	m.logger.Warn("redelivering message",
		"type", msg.Type, "id", msg.ID, "attempt", msg.Attempt, "error", err)
	msg.Attempt++
	m.Enqueue(msg)
}

func (m *Memory) takeOnePerType() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var batch []Message
	for _, t := range m.types {
		q := m.queues[t]
		if len(q) == 0 {
			continue
		}
		batch = append(batch, q[0])
		m.queues[t] = q[1:]
	}
	return batch
}
