package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/bus"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// recorder captures published events.
type recorder struct {
	events []domain.DomainEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, events ...domain.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, events...)
	return nil
}

func (r *recorder) names() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

func newService(pub bus.Publisher) *EventService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEventService(repository.NewMemory(domain.WithClock(clock)), pub, logger, domain.WithClock(clock))
}

func createRequest(capacity int) model.CreateEventRequest {
	return model.CreateEventRequest{
		OrganizerID: "org-1",
		Title:       "Go Conf",
		Description: "Talks",
		Location:    domain.Location{Venue: "Hall", Street: "2 Side St", City: "Porto", Region: "N", PostalCode: "4000", Country: "PT"},
		StartTime:   testNow.Add(24 * time.Hour),
		EndTime:     testNow.Add(30 * time.Hour),
		Capacity:    capacity,
	}
}

func TestLifecyclePublishesDomainEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recorder{}
	svc := newService(pub)

	e, err := svc.CreateEvent(ctx, createRequest(1))
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if e.State() != domain.StateDraft || len(pub.events) != 0 {
		t.Fatalf("state=%s published=%v", e.State(), pub.names())
	}

	if _, err := svc.Publish(ctx, e.ID()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := svc.Register(ctx, e.ID(), model.RegisterRequest{UserID: "u1", Name: "Ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = svc.Register(ctx, e.ID(), model.RegisterRequest{UserID: "u2", Name: "Bia", Email: "bia@example.com"})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("second Register = %v, want capacity exceeded", err)
	}

	if _, err := svc.CancelRegistration(ctx, e.ID(), "u1"); err != nil {
		t.Fatalf("CancelRegistration: %v", err)
	}
	if _, err := svc.Cancel(ctx, e.ID()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	want := []string{domain.EventPublishedName, domain.AttendeeRegisteredName, domain.EventCancelledName}
	got := pub.names()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("published[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	stored, err := svc.GetEvent(ctx, e.ID())
	if err != nil {
		t.Fatal(err)
	}
	if stored.State() != domain.StateCancelled || stored.AttendeeCount() != 0 {
		t.Errorf("stored state=%s attendees=%d", stored.State(), stored.AttendeeCount())
	}
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(&recorder{})
	e, err := svc.CreateEvent(ctx, createRequest(5))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"get missing", func() error { _, err := svc.GetEvent(ctx, "missing"); return err }, repository.ErrNotFound},
		{"blank id", func() error { _, err := svc.Publish(ctx, " "); return err }, domain.ErrInvalidArgument},
		{"register on draft", func() error {
			_, err := svc.Register(ctx, e.ID(), model.RegisterRequest{UserID: "u1", Name: "A", Email: "a@example.com"})
			return err
		}, domain.ErrInvalidState},
		{"unregister stranger", func() error { _, err := svc.CancelRegistration(ctx, e.ID(), "ghost"); return err }, domain.ErrNotRegistered},
		{"blank user", func() error { _, err := svc.CancelRegistration(ctx, e.ID(), ""); return err }, domain.ErrInvalidArgument},
		{"bad update", func() error {
			req := model.UpdateEventRequest{Title: "x"}
			_, err := svc.Update(ctx, e.ID(), req)
			return err
		}, domain.ErrInvalidArgument},
		{"invalid create", func() error { _, err := svc.CreateEvent(ctx, createRequest(0)); return err }, domain.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateRecordsNoDomainEvent(t *testing.T) {
	ctx := context.Background()
	pub := &recorder{}
	svc := newService(pub)
	e, _ := svc.CreateEvent(ctx, createRequest(5))

	req := model.UpdateEventRequest{
		Title:       "Go Conf 2026",
		Description: "More talks",
		Location:    e.Details().Location,
		StartTime:   e.Details().StartTime,
		EndTime:     e.Details().EndTime,
		Capacity:    50,
	}
	got, err := svc.Update(ctx, e.ID(), req)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Details().Title != "Go Conf 2026" || got.Details().Capacity != 50 {
		t.Errorf("details = %+v", got.Details())
	}
	if len(pub.events) != 0 {
		t.Errorf("published %v", pub.names())
	}
}

func TestPublishFailureKeepsStateChange(t *testing.T) {
	ctx := context.Background()
	pub := &recorder{}
	svc := newService(pub)
	e, _ := svc.CreateEvent(ctx, createRequest(5))

	pub.err = errors.New("broker down")
	got, err := svc.Publish(ctx, e.ID())
	if !errors.Is(err, ErrPublish) {
		t.Fatalf("err = %v, want ErrPublish", err)
	}
	if got == nil || got.State() != domain.StatePublished {
		t.Fatalf("event = %v", got)
	}
	stored, _ := svc.GetEvent(ctx, e.ID())
	if stored.State() != domain.StatePublished {
		t.Errorf("stored state = %s", stored.State())
	}
}

func TestServiceFeedsMemoryBus(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.NewMemory(logger, bus.MemoryOptions{Now: clock})
	svc := newService(b)

	e, _ := svc.CreateEvent(ctx, createRequest(5))
	if _, err := svc.Publish(ctx, e.ID()); err != nil {
		t.Fatal(err)
	}

	var seen []bus.Message
	r := bus.NewRouter()
	_ = r.Handle(domain.EventPublishedName, func(_ context.Context, msg bus.Message) error {
		seen = append(seen, msg)
		return nil
	})
	if _, err := b.Pump(ctx, r); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0].Key != e.ID() {
		t.Fatalf("delivered %+v", seen)
	}
	evt, err := bus.DecodeEvent(seen[0])
	if err != nil {
		t.Fatal(err)
	}
	if p := evt.(domain.EventPublished); p.Title != "Go Conf" || !p.StartTime.Equal(e.Details().StartTime) {
		t.Errorf("payload = %+v", p)
	}
}
