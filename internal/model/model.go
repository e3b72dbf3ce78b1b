// Package model defines the read models maintained by the projection layer
// and the request/response payloads of the HTTP API.
package model

import (
	"time"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

// DateLayout is the key format of the per-day read models.
const DateLayout = "2006-01-02"

// EventMetrics is the per-event reporting aggregate.
type EventMetrics struct {
	EventID           string         `json:"event_id" bson:"event_id"`
	Title             string         `json:"title" bson:"title"`
	State             string         `json:"state" bson:"state"`
	StartTime         time.Time      `json:"start_time" bson:"start_time"`
	TotalRevenue      int64          `json:"total_revenue" bson:"total_revenue"`
	TotalDiscounts    int64          `json:"total_discounts" bson:"total_discounts"`
	TotalReservations int            `json:"total_reservations" bson:"total_reservations"`
	AttendeeCount     int            `json:"attendee_count" bson:"attendee_count"`
	CouponUsage       map[string]int `json:"coupon_usage,omitempty" bson:"coupon_usage,omitempty"`
	LastUpdated       time.Time      `json:"last_updated" bson:"last_updated"`
}

// DailyMetrics aggregates paid orders per (date, event).
type DailyMetrics struct {
	Date        string    `json:"date" bson:"date"`
	EventID     string    `json:"event_id" bson:"event_id"`
	TotalSales  int64     `json:"total_sales" bson:"total_sales"`
	TicketsSold int       `json:"tickets_sold" bson:"tickets_sold"`
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
}

// DailyMetricsKey is the store key of a DailyMetrics record.
func DailyMetricsKey(date, eventID string) string { return date + "|" + eventID }

// DailySalesReport aggregates sales across all events for one date.
type DailySalesReport struct {
	Date                   string         `json:"date" bson:"date"`
	TotalRevenue           int64          `json:"total_revenue" bson:"total_revenue"`
	ReservationCount       int            `json:"reservation_count" bson:"reservation_count"`
	ReservationsByCategory map[string]int `json:"reservations_by_category,omitempty" bson:"reservations_by_category,omitempty"`
	LastUpdated            time.Time      `json:"last_updated" bson:"last_updated"`
}

// AttendanceHistory tracks seat occupancy and the attendee list of an event.
type AttendanceHistory struct {
	EventID             string           `json:"event_id" bson:"event_id"`
	Capacity            int              `json:"capacity" bson:"capacity"`
	SeatsReserved       int              `json:"seats_reserved" bson:"seats_reserved"`
	SeatsAvailable      int              `json:"seats_available" bson:"seats_available"`
	OccupancyPercentage float64          `json:"occupancy_percentage" bson:"occupancy_percentage"`
	Attendees           []AttendeeRecord `json:"attendees" bson:"attendees"`
	LastUpdated         time.Time        `json:"last_updated" bson:"last_updated"`
}

// HasAttendee reports whether userID is already in the attendee list.
func (h *AttendanceHistory) HasAttendee(userID string) bool {
	for _, a := range h.Attendees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// RecomputeOccupancy refreshes OccupancyPercentage from Reserved/Capacity.
func (h *AttendanceHistory) RecomputeOccupancy() {
	if h.Capacity <= 0 {
		h.OccupancyPercentage = 0
		return
	}
	h.OccupancyPercentage = float64(h.SeatsReserved) / float64(h.Capacity) * 100
}

// AttendeeRecord is one attendee as seen by the read side.
type AttendeeRecord struct {
	UserID       string    `json:"user_id" bson:"user_id"`
	Name         string    `json:"name" bson:"name"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}

// AuditLogEntry is an append-only record of one consumer invocation.
type AuditLogEntry struct {
	ID         string    `json:"id" bson:"_id"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	Operation  string    `json:"operation" bson:"operation"`
	EntityKind string    `json:"entity_kind" bson:"entity_kind"`
	EntityID   string    `json:"entity_id" bson:"entity_id"`
	MessageID  string    `json:"message_id,omitempty" bson:"message_id,omitempty"`
	Details    string    `json:"details,omitempty" bson:"details,omitempty"`
	Success    bool      `json:"success" bson:"success"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
}

// ─── HTTP payloads ────────────────────────────────────────────────────────────

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	OrganizerID string          `json:"organizer_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    domain.Location `json:"location"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Capacity    int             `json:"capacity"`
}

// Details converts the request into aggregate details.
func (r CreateEventRequest) Details() domain.Details {
	return domain.Details{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Capacity:    r.Capacity,
	}
}

// UpdateEventRequest is the payload for PUT /events/{id}.
type UpdateEventRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    domain.Location `json:"location"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Capacity    int             `json:"capacity"`
}

// Details converts the request into aggregate details.
func (r UpdateEventRequest) Details() domain.Details {
	return domain.Details{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Capacity:    r.Capacity,
	}
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// EventView is the JSON representation of an Event.
type EventView struct {
	ID          string            `json:"id"`
	OrganizerID string            `json:"organizer_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Location    domain.Location   `json:"location"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	Capacity    int               `json:"capacity"`
	State       string            `json:"state"`
	IsFull      bool              `json:"is_full"`
	Attendees   []domain.Attendee `json:"attendees"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewEventView renders e.
func NewEventView(e *domain.Event) EventView {
	d := e.Details()
	attendees := e.Attendees()
	if attendees == nil {
		attendees = []domain.Attendee{}
	}
	return EventView{
		ID:          e.ID(),
		OrganizerID: e.OrganizerID(),
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Capacity:    d.Capacity,
		State:       string(e.State()),
		IsFull:      e.IsFull(),
		Attendees:   attendees,
		CreatedAt:   e.CreatedAt(),
		UpdatedAt:   e.UpdatedAt(),
	}
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
