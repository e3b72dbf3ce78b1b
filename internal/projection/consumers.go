package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

const (
	kindEvent   = "Event"
	kindSeatMap = "SeatMap"
	kindTicket  = "Ticket"
	kindOrder   = "Order"
)

func (p *Projector) onEventPublished(ctx context.Context, e domain.EventPublished) (outcome, error) {
	out := outcome{entityKind: kindEvent, entityID: e.EventID}
	m, err := p.eventMetrics(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	m.State = string(domain.StatePublished)
	m.Title = e.Title
	m.StartTime = e.StartTime
	if err := p.putEventMetrics(ctx, m); err != nil {
		return out, err
	}
	out.details = fmt.Sprintf("published %q starting %s", e.Title, e.StartTime.Format(model.DateLayout))
	return out, nil
}

func (p *Projector) onEventCancelled(ctx context.Context, e domain.EventCancelled) (outcome, error) {
	out := outcome{entityKind: kindEvent, entityID: e.EventID}
	m, err := p.eventMetrics(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	m.State = string(domain.StateCancelled)
	if m.Title == "" {
		m.Title = e.Title
	}
	if err := p.putEventMetrics(ctx, m); err != nil {
		return out, err
	}
	out.details = "cancelled"
	return out, nil
}

// onAttendeeRegistered is the one consumer with a built-in duplicate check:
// a user already in the attendee list is not counted again. The roster is
// written after the count, so a failed count update leaves the user
// unrecorded and a replay counts them.
func (p *Projector) onAttendeeRegistered(ctx context.Context, e domain.AttendeeRegistered) (outcome, error) {
	out := outcome{entityKind: kindEvent, entityID: e.EventID}
	h, err := p.attendance(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	if h.HasAttendee(e.UserID) {
		out.details = fmt.Sprintf("attendee %s already recorded", e.UserID)
		return out, nil
	}

	m, err := p.eventMetrics(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	m.AttendeeCount++
	if err := p.putEventMetrics(ctx, m); err != nil {
		return out, err
	}

	h.Attendees = append(h.Attendees, model.AttendeeRecord{
		UserID:       e.UserID,
		Name:         e.UserName,
		RegisteredAt: e.RegisteredAt,
	})
	if err := p.putAttendance(ctx, h); err != nil {
		return out, err
	}
	out.details = fmt.Sprintf("registered %s; %d attendees", e.UserID, m.AttendeeCount)
	return out, nil
}

func (p *Projector) onSeatReserved(ctx context.Context, day string, e domain.SeatReserved) (outcome, error) {
	out := outcome{entityKind: kindSeatMap, entityID: e.MapID}

	report, err := p.dailySales(ctx, day)
	if err != nil {
		return out, err
	}
	report.ReservationCount++
	if e.Category != "" {
		if report.ReservationsByCategory == nil {
			report.ReservationsByCategory = make(map[string]int)
		}
		report.ReservationsByCategory[e.Category]++
	}
	if err := p.putDailySales(ctx, report); err != nil {
		return out, err
	}

	h, err := p.attendance(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	h.SeatsReserved++
	h.SeatsAvailable = max(h.SeatsAvailable-1, 0)
	h.RecomputeOccupancy()
	if err := p.putAttendance(ctx, h); err != nil {
		return out, err
	}

	m, err := p.eventMetrics(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	m.TotalReservations++
	if err := p.putEventMetrics(ctx, m); err != nil {
		return out, err
	}

	out.details = fmt.Sprintf("reserved %s-%d for event %s; occupancy %.1f%%",
		e.Row, e.Number, e.EventID, h.OccupancyPercentage)
	return out, nil
}

func (p *Projector) onSeatReleased(ctx context.Context, e domain.SeatReleased) (outcome, error) {
	out := outcome{entityKind: kindSeatMap, entityID: e.MapID}
	h, err := p.attendance(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	h.SeatsReserved = max(h.SeatsReserved-1, 0)
	h.SeatsAvailable++
	if h.Capacity > 0 && h.SeatsAvailable > h.Capacity {
		h.SeatsAvailable = h.Capacity
	}
	h.RecomputeOccupancy()
	if err := p.putAttendance(ctx, h); err != nil {
		return out, err
	}
	out.details = fmt.Sprintf("released %s-%d for event %s; occupancy %.1f%%",
		e.Row, e.Number, e.EventID, h.OccupancyPercentage)
	return out, nil
}

func (p *Projector) onSeatAdded(ctx context.Context, e domain.SeatAdded) (outcome, error) {
	out := outcome{entityKind: kindSeatMap, entityID: e.MapID}
	h, err := p.attendance(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	h.Capacity++
	h.SeatsAvailable++
	h.RecomputeOccupancy()
	if err := p.putAttendance(ctx, h); err != nil {
		return out, err
	}
	out.details = fmt.Sprintf("added %s-%d to event %s; capacity %d", e.Row, e.Number, e.EventID, h.Capacity)
	return out, nil
}

func (p *Projector) onTicketCreated(ctx context.Context, day string, e domain.TicketCreated) (outcome, error) {
	out := outcome{entityKind: kindTicket, entityID: e.TicketID}

	report, err := p.dailySales(ctx, day)
	if err != nil {
		return out, err
	}
	report.TotalRevenue += e.Amount
	report.ReservationCount++
	if err := p.putDailySales(ctx, report); err != nil {
		return out, err
	}

	m, err := p.eventMetrics(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	m.TotalRevenue += e.Amount
	m.TotalDiscounts += e.DiscountAmount
	m.TotalReservations++
	coupons := decodeCoupons(e.AppliedCoupons)
	if len(coupons) > 0 && m.CouponUsage == nil {
		m.CouponUsage = make(map[string]int)
	}
	for _, c := range coupons {
		m.CouponUsage[c]++
	}
	if err := p.putEventMetrics(ctx, m); err != nil {
		return out, err
	}

	out.details = fmt.Sprintf("ticket for event %s: amount %d discount %d coupons %v",
		e.EventID, e.Amount, e.DiscountAmount, coupons)
	return out, nil
}

func (p *Projector) onTicketPaid(ctx context.Context, day string, e domain.TicketPaid) (outcome, error) {
	out := outcome{entityKind: kindOrder, entityID: e.OrderID}
	tickets := max(len(e.SeatIDs), 1)

	dm, err := p.dailyMetrics(ctx, day, e.EventID)
	if err != nil {
		return out, err
	}
	dm.TotalSales += e.AmountTotal
	dm.TicketsSold += tickets
	if err := p.putDailyMetrics(ctx, dm); err != nil {
		return out, err
	}

	report, err := p.dailySales(ctx, day)
	if err != nil {
		return out, err
	}
	report.TotalRevenue += e.AmountTotal
	if err := p.putDailySales(ctx, report); err != nil {
		return out, err
	}

	m, err := p.eventMetrics(ctx, e.EventID)
	if err != nil {
		return out, err
	}
	m.TotalRevenue += e.AmountTotal
	if err := p.putEventMetrics(ctx, m); err != nil {
		return out, err
	}

	out.details = fmt.Sprintf("paid %d for %d tickets of event %s", e.AmountTotal, tickets, e.EventID)
	return out, nil
}

// decodeCoupons accepts a JSON array of codes or a comma-separated list.
// Blank codes are dropped.
func decodeCoupons(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		codes = strings.Split(raw, ",")
	}
	out := codes[:0]
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
