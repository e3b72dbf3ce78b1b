package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type eventStore interface {
	Create(ctx context.Context, e *domain.Event) ([]domain.DomainEvent, error)
	Load(ctx context.Context, id string) (*domain.Event, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Event, []domain.DomainEvent, error)
}

func newEvent(t *testing.T, capacity int) *domain.Event {
	t.Helper()
	e, err := domain.NewEvent("org-1", domain.Details{
		Title:       "Concert",
		Description: "Open air",
		Location:    domain.Location{Venue: "Park", Street: "1 Main St", City: "Lisbon", Region: "LX", PostalCode: "1000", Country: "PT"},
		StartTime:   testNow.Add(48 * time.Hour),
		EndTime:     testNow.Add(50 * time.Hour),
		Capacity:    capacity,
	}, domain.WithClock(clock))
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return e
}

func exerciseStore(t *testing.T, repo eventStore) {
	ctx := context.Background()
	e := newEvent(t, 2)
	if _, err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load(missing) = %v, want ErrNotFound", err)
	}

	_, events, err := repo.Mutate(ctx, e.ID(), func(e *domain.Event) error { return e.Publish() })
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(events) != 1 || events[0].EventName() != domain.EventPublishedName {
		t.Fatalf("events = %v", events)
	}

	for _, u := range []string{"u1", "u2"} {
		_, events, err := repo.Mutate(ctx, e.ID(), func(e *domain.Event) error {
			return e.RegisterAttendee(u, "User "+u, u+"@example.com")
		})
		if err != nil || len(events) != 1 {
			t.Fatalf("register %s: events=%v err=%v", u, events, err)
		}
	}

	_, _, err = repo.Mutate(ctx, e.ID(), func(e *domain.Event) error {
		return e.RegisterAttendee("u3", "User 3", "u3@example.com")
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("register on full event = %v", err)
	}

	got, err := repo.Load(ctx, e.ID())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.State() != domain.StatePublished || got.AttendeeCount() != 2 {
		t.Errorf("state=%s attendees=%d", got.State(), got.AttendeeCount())
	}
	if got.Version() != 4 {
		t.Errorf("version = %d, want 4", got.Version())
	}
	if a := got.Attendees(); a[0].UserID != "u1" || a[1].UserID != "u2" {
		t.Errorf("roster order = %+v", a)
	}
	if !got.Details().StartTime.Equal(e.Details().StartTime) {
		t.Errorf("start time = %v", got.Details().StartTime)
	}

	// A failed mutation writes nothing.
	_, _, err = repo.Mutate(ctx, e.ID(), func(e *domain.Event) error {
		_ = e.CancelRegistration("u1")
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("aborted mutation succeeded")
	}
	got, _ = repo.Load(ctx, e.ID())
	if got.AttendeeCount() != 2 || got.Version() != 4 {
		t.Errorf("aborted mutation leaked: attendees=%d version=%d", got.AttendeeCount(), got.Version())
	}
}

func TestMemoryRepository(t *testing.T) {
	exerciseStore(t, NewMemory(domain.WithClock(clock)))
}

func TestMemoryMutateUnknownEvent(t *testing.T) {
	repo := NewMemory()
	_, _, err := repo.Mutate(context.Background(), "nope", func(*domain.Event) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestMemoryMutateSerialisesPerEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(domain.WithClock(clock))
	e := newEvent(t, 10)
	if _, err := repo.Create(ctx, e); err != nil {
		t.Fatal(err)
	}
	if _, _, err := repo.Mutate(ctx, e.ID(), func(e *domain.Event) error { return e.Publish() }); err != nil {
		t.Fatal(err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uid := string(rune('a' + i))
			_, _, err := repo.Mutate(ctx, e.ID(), func(e *domain.Event) error {
				return e.RegisterAttendee(uid, "Guest", uid+"@example.com")
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := repo.Load(ctx, e.ID())
	if accepted != 10 || got.AttendeeCount() != 10 {
		t.Errorf("accepted=%d attendees=%d, want 10", accepted, got.AttendeeCount())
	}
}

// TestPostgresRepository runs against a live database when
// TEST_DATABASE_URL is set. The schema must already be migrated.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	exerciseStore(t, NewEventRepository(pool, domain.WithClock(clock)))
}
