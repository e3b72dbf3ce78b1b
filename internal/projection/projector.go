// Package projection folds domain events into the read models.
//
// One Projector serves every event type; the bus routes each type to
// Projector.Handle, which decodes the message, dispatches on the concrete
// event type, writes the affected records and appends one audit entry.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/audit"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/bus"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/readmodel"
)

// Options configures a Projector.
type Options struct {
	Now func() time.Time
	// Deduper, when set, skips messages whose id was already applied.
	// Without it a redelivered message is applied again.
	Deduper readmodel.Deduper
}

// Projector applies domain events to the read-model store.
type Projector struct {
	store  readmodel.Store
	audit  audit.Sink
	logger *slog.Logger
	now    func() time.Time
	dedup  readmodel.Deduper
}

// New builds a Projector.
func New(store readmodel.Store, sink audit.Sink, logger *slog.Logger, opts Options) *Projector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Projector{
		store:  store,
		audit:  sink,
		logger: logger.With("component", "projection"),
		now:    opts.Now,
		dedup:  opts.Deduper,
	}
}

// Routes builds the routing table: every catalog event type goes to
// p.Handle.
func Routes(p *Projector) (*bus.Router, error) {
	r := bus.NewRouter()
	for _, name := range domain.EventNames() {
		if err := r.Handle(name, p.Handle); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// outcome describes what a consumer touched, for the audit entry.
type outcome struct {
	entityKind string
	entityID   string
	details    string
}

// Handle applies one message. Failures of critical event types are
// returned so the transport redelivers; others are logged and swallowed.
func (p *Projector) Handle(ctx context.Context, msg bus.Message) error {
	log := p.logger.With("type", msg.Type, "id", msg.ID, "key", msg.Key, "attempt", msg.Attempt)

	evt, err := bus.DecodeEvent(msg)
	if err != nil {
		return p.fail(ctx, log, msg, outcome{entityID: msg.Key}, err)
	}

	if p.dedup != nil {
		seen, err := p.dedup.Seen(ctx, msg.ID)
		if err != nil {
			return p.fail(ctx, log, msg, outcome{entityID: msg.Key}, err)
		}
		if seen {
			log.Info("skipping already applied message")
			p.record(ctx, log, msg, outcome{entityID: msg.Key, details: "duplicate delivery skipped"}, nil)
			return nil
		}
	}

	out, err := p.apply(ctx, msg, evt)
	if err != nil {
		return p.fail(ctx, log, msg, out, err)
	}
	p.record(ctx, log, msg, out, nil)

	if p.dedup != nil {
		if err := p.dedup.Mark(ctx, msg.ID); err != nil {
			log.Warn("could not record applied message", "error", err)
		}
	}
	log.Debug("applied", "entity", out.entityID, "details", out.details)
	return nil
}

// Replay rebuilds read models by applying msgs in order. It stops at the
// first critical failure.
func (p *Projector) Replay(ctx context.Context, msgs []bus.Message) (int, error) {
	for i, msg := range msgs {
		if err := p.Handle(ctx, msg); err != nil {
			return i, fmt.Errorf("replay message %d: %w", i, err)
		}
	}
	return len(msgs), nil
}

// apply is the single dispatch point over the event catalog.
func (p *Projector) apply(ctx context.Context, msg bus.Message, evt domain.DomainEvent) (outcome, error) {
	switch e := evt.(type) {
	case domain.EventPublished:
		return p.onEventPublished(ctx, e)
	case domain.EventCancelled:
		return p.onEventCancelled(ctx, e)
	case domain.AttendeeRegistered:
		return p.onAttendeeRegistered(ctx, e)
	case domain.SeatReserved:
		return p.onSeatReserved(ctx, p.day(msg), e)
	case domain.SeatReleased:
		return p.onSeatReleased(ctx, e)
	case domain.SeatAdded:
		return p.onSeatAdded(ctx, e)
	case domain.TicketCreated:
		return p.onTicketCreated(ctx, p.day(msg), e)
	case domain.TicketPaid:
		return p.onTicketPaid(ctx, p.day(msg), e)
	default:
		return outcome{entityID: msg.Key}, fmt.Errorf("%w: %T", bus.ErrUnknownEvent, evt)
	}
}

func (p *Projector) fail(ctx context.Context, log *slog.Logger, msg bus.Message, out outcome, err error) error {
	perr := &ProcessingError{EventType: msg.Type, MessageID: msg.ID, Err: err}
	p.record(ctx, log, msg, out, perr)
	if errors.Is(err, bus.ErrUnknownEvent) || Critical(msg.Type) {
		log.Error("projection failed; requesting redelivery", "error", err)
		return perr
	}
	log.Warn("projection failed; dropping informational event", "error", err)
	return nil
}

// record appends the audit entry. The audit log is best-effort: a failed
// append is logged and never reaches the caller.
func (p *Projector) record(ctx context.Context, log *slog.Logger, msg bus.Message, out outcome, err error) {
	entry := model.AuditLogEntry{
		ID:         uuid.NewString(),
		Timestamp:  p.now().UTC(),
		Operation:  msg.Type,
		EntityKind: out.entityKind,
		EntityID:   out.entityID,
		MessageID:  msg.ID,
		Details:    out.details,
		Success:    err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if aerr := p.audit.Append(ctx, entry); aerr != nil {
		log.Warn("audit append failed", "error", aerr)
	}
}

// day is the reporting date of msg: the date it was published, or today
// when the transport did not carry one.
func (p *Projector) day(msg bus.Message) string {
	at := msg.OccurredAt
	if at.IsZero() {
		at = p.now()
	}
	return at.UTC().Format(model.DateLayout)
}
