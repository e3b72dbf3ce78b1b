package projection

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

// The helpers below read a record or start a fresh one, and stamp
// LastUpdated on write.

func (p *Projector) eventMetrics(ctx context.Context, eventID string) (model.EventMetrics, error) {
	m, ok, err := p.store.EventMetrics.Get(ctx, eventID)
	if err != nil {
		return m, fmt.Errorf("load event metrics %s: %w", eventID, err)
	}
	if !ok {
		m = model.EventMetrics{EventID: eventID}
	}
	return m, nil
}

func (p *Projector) putEventMetrics(ctx context.Context, m model.EventMetrics) error {
	m.LastUpdated = p.now().UTC()
	if err := p.store.EventMetrics.Put(ctx, m.EventID, m); err != nil {
		return fmt.Errorf("save event metrics %s: %w", m.EventID, err)
	}
	return nil
}

func (p *Projector) attendance(ctx context.Context, eventID string) (model.AttendanceHistory, error) {
	h, ok, err := p.store.Attendance.Get(ctx, eventID)
	if err != nil {
		return h, fmt.Errorf("load attendance %s: %w", eventID, err)
	}
	if !ok {
		h = model.AttendanceHistory{EventID: eventID}
	}
	return h, nil
}

func (p *Projector) putAttendance(ctx context.Context, h model.AttendanceHistory) error {
	h.LastUpdated = p.now().UTC()
	if err := p.store.Attendance.Put(ctx, h.EventID, h); err != nil {
		return fmt.Errorf("save attendance %s: %w", h.EventID, err)
	}
	return nil
}

func (p *Projector) dailySales(ctx context.Context, day string) (model.DailySalesReport, error) {
	r, ok, err := p.store.DailySales.Get(ctx, day)
	if err != nil {
		return r, fmt.Errorf("load daily sales %s: %w", day, err)
	}
	if !ok {
		r = model.DailySalesReport{Date: day}
	}
	return r, nil
}

func (p *Projector) putDailySales(ctx context.Context, r model.DailySalesReport) error {
	r.LastUpdated = p.now().UTC()
	if err := p.store.DailySales.Put(ctx, r.Date, r); err != nil {
		return fmt.Errorf("save daily sales %s: %w", r.Date, err)
	}
	return nil
}

func (p *Projector) dailyMetrics(ctx context.Context, day, eventID string) (model.DailyMetrics, error) {
	key := model.DailyMetricsKey(day, eventID)
	m, ok, err := p.store.DailyMetrics.Get(ctx, key)
	if err != nil {
		return m, fmt.Errorf("load daily metrics %s: %w", key, err)
	}
	if !ok {
		m = model.DailyMetrics{Date: day, EventID: eventID}
	}
	return m, nil
}

func (p *Projector) putDailyMetrics(ctx context.Context, m model.DailyMetrics) error {
	m.LastUpdated = p.now().UTC()
	key := model.DailyMetricsKey(m.Date, m.EventID)
	if err := p.store.DailyMetrics.Put(ctx, key, m); err != nil {
		return fmt.Errorf("save daily metrics %s: %w", key, err)
	}
	return nil
}
