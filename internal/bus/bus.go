// Package bus carries domain events from producers to projection consumers.
//
// Delivery is at-least-once. A message may be handed to its handler more
// than once, and a redelivered message may arrive after messages published
// later. Handlers signal a retryable failure by returning an error.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/codec"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

// ErrUnknownEvent is returned when a message type is not in the catalog.
var ErrUnknownEvent = errors.New("unknown event type")

// Message is one domain event in transit. ID is assigned once at publish
// time and stays the same across redeliveries.
type Message struct {
	ID         string
	Type       string
	Key        string
	OccurredAt time.Time
	Payload    []byte
	// Attempt is 1 on first delivery and grows on each redelivery.
	Attempt int
}

// Handler processes one message. A non-nil error asks for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Publisher is the "publish domain event" sink used by the command side.
type Publisher interface {
	Publish(ctx context.Context, events ...domain.DomainEvent) error
}

// Subscriber delivers routed messages until ctx is cancelled.
type Subscriber interface {
	Run(ctx context.Context, router *Router) error
}

// NewMessage encodes evt into a message with a fresh id.
func NewMessage(evt domain.DomainEvent, at time.Time) (Message, error) {
	payload, err := codec.Marshal(evt)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", evt.EventName(), err)
	}
	return Message{
		ID:         uuid.NewString(),
		Type:       evt.EventName(),
		Key:        evt.AggregateID(),
		OccurredAt: at.UTC(),
		Payload:    payload,
		Attempt:    1,
	}, nil
}

// DecodeEvent turns a message payload back into its catalog type.
func DecodeEvent(msg Message) (domain.DomainEvent, error) {
	switch msg.Type {
	case domain.EventPublishedName:
		return decodeAs[domain.EventPublished](msg)
	case domain.EventCancelledName:
		return decodeAs[domain.EventCancelled](msg)
	case domain.AttendeeRegisteredName:
		return decodeAs[domain.AttendeeRegistered](msg)
	case domain.SeatReservedName:
		return decodeAs[domain.SeatReserved](msg)
	case domain.SeatReleasedName:
		return decodeAs[domain.SeatReleased](msg)
	case domain.SeatAddedName:
		return decodeAs[domain.SeatAdded](msg)
	case domain.TicketCreatedName:
		return decodeAs[domain.TicketCreated](msg)
	case domain.TicketPaidName:
		return decodeAs[domain.TicketPaid](msg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
}

func decodeAs[T domain.DomainEvent](msg Message) (domain.DomainEvent, error) {
	var evt T
	if err := codec.Unmarshal(msg.Payload, &evt); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", msg.Type, msg.ID, err)
	}
	timesToUTC(reflect.ValueOf(&evt).Elem())
	return evt, nil
}

var timeType = reflect.TypeOf(time.Time{})

// timesToUTC rewrites the top-level time fields of a decoded event in UTC.
// Payload timestamps carry their offset, which would otherwise decode into
// an unnamed fixed zone.
func timesToUTC(v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Type() != timeType || !f.CanSet() {
			continue
		}
		f.Set(reflect.ValueOf(f.Interface().(time.Time).UTC()))
	}
}
