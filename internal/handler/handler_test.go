package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/audit"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/bus"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/projection"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/readmodel"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/repository"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/service"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	bus    *bus.Memory
	routes *bus.Router
	store  readmodel.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := bus.NewMemory(logger, bus.MemoryOptions{Now: clock})
	svc := service.NewEventService(repository.NewMemory(domain.WithClock(clock)), b, logger, domain.WithClock(clock))

	store := readmodel.NewMemoryStore()
	log := audit.NewMemory()
	proj := projection.New(store, log, logger, projection.Options{Now: clock})
	routes, err := projection.Routes(proj)
	if err != nil {
		t.Fatal(err)
	}

	router := NewRouter(logger, []string{"*"},
		NewEventHandler(svc, logger).Mount,
		NewReportHandler(store, log, logger).Mount,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, bus: b, routes: routes, store: store}
}

func (h *harness) do(method, path string, body any) (int, []byte) {
	h.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	if err != nil {
		h.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatal(err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (h *harness) pump() {
	h.t.Helper()
	if _, err := h.bus.Pump(context.Background(), h.routes); err != nil {
		h.t.Fatalf("Pump: %v", err)
	}
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func createBody(capacity int) model.CreateEventRequest {
	return model.CreateEventRequest{
		OrganizerID: "org-1",
		Title:       "Rust & Go",
		Description: "Systems night",
		Location:    domain.Location{Venue: "Lab", Street: "3 Dock Rd", City: "Braga", Region: "N", PostalCode: "4700", Country: "PT"},
		StartTime:   testNow.Add(24 * time.Hour),
		EndTime:     testNow.Add(27 * time.Hour),
		Capacity:    capacity,
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(http.MethodGet, "/health", nil)
	if status != http.StatusOK || decode[map[string]string](t, body)["status"] != "ok" {
		t.Errorf("health = %d %s", status, body)
	}
}

func TestCommandStatusMapping(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodPost, "/events", createBody(1))
	if status != http.StatusCreated {
		t.Fatalf("create = %d %s", status, body)
	}
	ev := decode[model.EventView](t, body)
	if ev.State != "Draft" || ev.ID == "" {
		t.Fatalf("view = %+v", ev)
	}
	base := "/events/" + ev.ID

	reg := model.RegisterRequest{UserID: "u1", Name: "Ana", Email: "ana@example.com"}
	steps := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad json", http.MethodPost, "/events", map[string]any{"nope": 1}, http.StatusBadRequest},
		{"invalid details", http.MethodPost, "/events", createBody(0), http.StatusBadRequest},
		{"missing event", http.MethodGet, "/events/missing", nil, http.StatusNotFound},
		{"register on draft", http.MethodPost, base + "/attendees", reg, http.StatusConflict},
		{"publish", http.MethodPost, base + "/publish", nil, http.StatusOK},
		{"publish twice", http.MethodPost, base + "/publish", nil, http.StatusConflict},
		{"register", http.MethodPost, base + "/attendees", reg, http.StatusCreated},
		{"register duplicate", http.MethodPost, base + "/attendees", reg, http.StatusConflict},
		{"register over capacity", http.MethodPost, base + "/attendees",
			model.RegisterRequest{UserID: "u2", Name: "Bia", Email: "bia@example.com"}, http.StatusConflict},
		{"unregister stranger", http.MethodDelete, base + "/attendees/ghost", nil, http.StatusNotFound},
		{"update keeps roster", http.MethodPut, base, model.UpdateEventRequest{
			Title: "x", Description: "y", Location: createBody(1).Location,
			StartTime: testNow.Add(24 * time.Hour), EndTime: testNow.Add(25 * time.Hour), Capacity: 1,
		}, http.StatusOK},
		{"unregister", http.MethodDelete, base + "/attendees/u1", nil, http.StatusOK},
		{"cancel", http.MethodPost, base + "/cancel", nil, http.StatusOK},
		{"cancel twice", http.MethodPost, base + "/cancel", nil, http.StatusConflict},
		{"get", http.MethodGet, base, nil, http.StatusOK},
	}
	for _, s := range steps {
		status, body := h.do(s.method, s.path, s.body)
		if status != s.want {
			t.Errorf("%s: status = %d, want %d (%s)", s.name, status, s.want, body)
		}
	}

	_, body = h.do(http.MethodGet, base, nil)
	if got := decode[model.EventView](t, body); got.State != "Cancelled" || len(got.Attendees) != 0 || got.Title != "x" {
		t.Errorf("final view = %+v", got)
	}
}

func TestCapacityMessage(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(http.MethodPost, "/events", createBody(1))
	id := decode[model.EventView](t, body).ID
	h.do(http.MethodPost, "/events/"+id+"/publish", nil)
	h.do(http.MethodPost, "/events/"+id+"/attendees", model.RegisterRequest{UserID: "u1", Name: "A", Email: "a@example.com"})

	_, body = h.do(http.MethodPost, "/events/"+id+"/attendees", model.RegisterRequest{UserID: "u2", Name: "B", Email: "b@example.com"})
	if got := decode[model.ErrorResponse](t, body).Error; got != "evento está completo" {
		t.Errorf("error = %q", got)
	}
}

func TestReportsFollowCommands(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(http.MethodPost, "/events", createBody(10))
	id := decode[model.EventView](t, body).ID

	if status, _ := h.do(http.MethodGet, "/reports/events/"+id+"/metrics", nil); status != http.StatusNotFound {
		t.Errorf("metrics before any event = %d", status)
	}

	h.do(http.MethodPost, "/events/"+id+"/publish", nil)
	h.do(http.MethodPost, "/events/"+id+"/attendees", model.RegisterRequest{UserID: "u1", Name: "Ana", Email: "ana@example.com"})
	h.pump()

	status, body := h.do(http.MethodGet, "/reports/events/"+id+"/metrics", nil)
	if status != http.StatusOK {
		t.Fatalf("metrics = %d %s", status, body)
	}
	m := decode[model.EventMetrics](t, body)
	if m.State != "Published" || m.AttendeeCount != 1 || m.Title != "Rust & Go" {
		t.Errorf("metrics = %+v", m)
	}

	status, body = h.do(http.MethodGet, "/reports/events/"+id+"/attendance", nil)
	if status != http.StatusOK || len(decode[model.AttendanceHistory](t, body).Attendees) != 1 {
		t.Errorf("attendance = %d %s", status, body)
	}

	status, body = h.do(http.MethodGet, "/reports/audit/"+id, nil)
	if entries := decode[[]model.AuditLogEntry](t, body); status != http.StatusOK || len(entries) != 2 {
		t.Errorf("audit = %d %s", status, body)
	}
	status, body = h.do(http.MethodGet, "/reports/audit/"+id+"?limit=1", nil)
	if entries := decode[[]model.AuditLogEntry](t, body); status != http.StatusOK || len(entries) != 1 {
		t.Errorf("audit limit = %d %s", status, body)
	}
	if status, _ := h.do(http.MethodGet, "/reports/audit/"+id+"?limit=zero", nil); status != http.StatusBadRequest {
		t.Errorf("bad limit = %d", status)
	}
	status, body = h.do(http.MethodGet, "/reports/audit/nobody", nil)
	if status != http.StatusOK || string(bytes.TrimSpace(body)) != "[]" {
		t.Errorf("empty audit = %d %s", status, body)
	}
}

func TestDailyReports(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_ = h.bus.Publish(ctx,
		domain.TicketPaid{OrderID: "o1", EventID: "e1", AmountTotal: 1500, SeatIDs: []string{"A-1", "A-2"}},
		domain.SeatReserved{MapID: "m1", EventID: "e1", Row: "A", Number: 3, Category: "VIP"},
	)
	h.pump()

	status, body := h.do(http.MethodGet, "/reports/daily/2026-03-01", nil)
	if status != http.StatusOK {
		t.Fatalf("daily = %d %s", status, body)
	}
	if r := decode[model.DailySalesReport](t, body); r.TotalRevenue != 1500 || r.ReservationsByCategory["VIP"] != 1 {
		t.Errorf("daily sales = %+v", r)
	}

	status, body = h.do(http.MethodGet, "/reports/daily/2026-03-01/events/e1", nil)
	if dm := decode[model.DailyMetrics](t, body); status != http.StatusOK || dm.TicketsSold != 2 || dm.TotalSales != 1500 {
		t.Errorf("daily metrics = %d %s", status, body)
	}

	if status, _ := h.do(http.MethodGet, "/reports/daily/01-03-2026", nil); status != http.StatusBadRequest {
		t.Errorf("bad date = %d", status)
	}
	if status, _ := h.do(http.MethodGet, "/reports/daily/2026-03-02", nil); status != http.StatusNotFound {
		t.Errorf("empty day = %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	req, _ := http.NewRequest(http.MethodOptions, h.srv.URL+"/events", nil)
	req.Header.Set("Origin", "https://tickets.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
