package domain

import "time"

// Logical names of every event in the catalog. They double as bus routing keys.
const (
	EventPublishedName     = "EventPublished"
	EventCancelledName     = "EventCancelled"
	AttendeeRegisteredName = "AttendeeRegistered"
	SeatReservedName       = "SeatReserved"
	SeatReleasedName       = "SeatReleased"
	SeatAddedName          = "SeatAdded"
	TicketCreatedName      = "TicketCreated"
	TicketPaidName         = "TicketPaid"
)

// EventNames lists the closed catalog in a stable order.
func EventNames() []string {
	return []string{
		EventPublishedName,
		EventCancelledName,
		AttendeeRegisteredName,
		SeatReservedName,
		SeatReleasedName,
		SeatAddedName,
		TicketCreatedName,
		TicketPaidName,
	}
}

// DomainEvent is an immutable fact. The unexported marker method closes the
// set to the types declared in this file.
type DomainEvent interface {
	EventName() string
	// AggregateID is the id the event is keyed by on the bus.
	AggregateID() string
	isDomainEvent()
}

// EventPublished is emitted by Event.Publish.
type EventPublished struct {
	EventID   string    `json:"event_id" cbor:"event_id"`
	Title     string    `json:"title" cbor:"title"`
	StartTime time.Time `json:"start_time" cbor:"start_time"`
}

// EventCancelled is emitted by Event.Cancel.
type EventCancelled struct {
	EventID string `json:"event_id" cbor:"event_id"`
	Title   string `json:"title" cbor:"title"`
}

// AttendeeRegistered is emitted by Event.RegisterAttendee.
type AttendeeRegistered struct {
	EventID      string    `json:"event_id" cbor:"event_id"`
	UserID       string    `json:"user_id" cbor:"user_id"`
	UserName     string    `json:"user_name" cbor:"user_name"`
	RegisteredAt time.Time `json:"registered_at" cbor:"registered_at"`
}

// SeatReserved comes from the seating context.
type SeatReserved struct {
	MapID    string `json:"map_id" cbor:"map_id"`
	EventID  string `json:"event_id" cbor:"event_id"`
	Row      string `json:"row" cbor:"row"`
	Number   int    `json:"number" cbor:"number"`
	Category string `json:"category,omitempty" cbor:"category,omitempty"`
}

// SeatReleased comes from the seating context.
type SeatReleased struct {
	MapID   string `json:"map_id" cbor:"map_id"`
	EventID string `json:"event_id" cbor:"event_id"`
	Row     string `json:"row" cbor:"row"`
	Number  int    `json:"number" cbor:"number"`
}

// SeatAdded comes from the seating context when a seat map grows.
type SeatAdded struct {
	MapID    string `json:"map_id" cbor:"map_id"`
	EventID  string `json:"event_id" cbor:"event_id"`
	Row      string `json:"row" cbor:"row"`
	Number   int    `json:"number" cbor:"number"`
	Category string `json:"category,omitempty" cbor:"category,omitempty"`
}

// TicketCreated comes from the ticketing context. Amounts are in minor
// currency units. AppliedCoupons is the encoded coupon list as the ticketing
// service stores it: a JSON array of codes or a comma-separated string.
type TicketCreated struct {
	TicketID       string `json:"ticket_id" cbor:"ticket_id"`
	EventID        string `json:"event_id" cbor:"event_id"`
	Amount         int64  `json:"amount" cbor:"amount"`
	DiscountAmount int64  `json:"discount_amount" cbor:"discount_amount"`
	AppliedCoupons string `json:"applied_coupons,omitempty" cbor:"applied_coupons,omitempty"`
}

// TicketPaid comes from the payments context.
type TicketPaid struct {
	OrderID     string   `json:"order_id" cbor:"order_id"`
	EventID     string   `json:"event_id" cbor:"event_id"`
	AmountTotal int64    `json:"amount_total" cbor:"amount_total"`
	SeatIDs     []string `json:"seat_ids" cbor:"seat_ids"`
}

func (EventPublished) EventName() string     { return EventPublishedName }
func (EventCancelled) EventName() string     { return EventCancelledName }
func (AttendeeRegistered) EventName() string { return AttendeeRegisteredName }
func (SeatReserved) EventName() string       { return SeatReservedName }
func (SeatReleased) EventName() string       { return SeatReleasedName }
func (SeatAdded) EventName() string          { return SeatAddedName }
func (TicketCreated) EventName() string      { return TicketCreatedName }
func (TicketPaid) EventName() string         { return TicketPaidName }

func (e EventPublished) AggregateID() string     { return e.EventID }
func (e EventCancelled) AggregateID() string     { return e.EventID }
func (e AttendeeRegistered) AggregateID() string { return e.EventID }
func (e SeatReserved) AggregateID() string       { return e.MapID }
func (e SeatReleased) AggregateID() string       { return e.MapID }
func (e SeatAdded) AggregateID() string          { return e.MapID }
func (e TicketCreated) AggregateID() string      { return e.TicketID }
func (e TicketPaid) AggregateID() string         { return e.OrderID }

func (EventPublished) isDomainEvent()     {}
func (EventCancelled) isDomainEvent()     {}
func (AttendeeRegistered) isDomainEvent() {}
func (SeatReserved) isDomainEvent()       {}
func (SeatReleased) isDomainEvent()       {}
func (SeatAdded) isDomainEvent()          {}
func (TicketCreated) isDomainEvent()      {}
func (TicketPaid) isDomainEvent()         {}
