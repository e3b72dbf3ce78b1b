package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/audit"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/readmodel"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// ReportHandler serves the read models. Every endpoint is a plain lookup;
// nothing here computes.
type ReportHandler struct {
	store  readmodel.Store
	audit  audit.Reader
	logger *slog.Logger
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(store readmodel.Store, reader audit.Reader, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{store: store, audit: reader, logger: logger.With("component", "reports")}
}

// Mount registers the report routes on r.
func (h *ReportHandler) Mount(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/events/{id}/metrics", h.EventMetrics)
		r.Get("/events/{id}/attendance", h.Attendance)
		r.Get("/daily/{date}", h.DailySales)
		r.Get("/daily/{date}/events/{id}", h.DailyMetrics)
		r.Get("/audit/{entityId}", h.AuditLog)
	})
}

// EventMetrics handles GET /reports/events/{id}/metrics
func (h *ReportHandler) EventMetrics(w http.ResponseWriter, r *http.Request) {
	serveRecord(h, w, r, h.store.EventMetrics, chi.URLParam(r, "id"), "event metrics not found")
}

// Attendance handles GET /reports/events/{id}/attendance
func (h *ReportHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	serveRecord(h, w, r, h.store.Attendance, chi.URLParam(r, "id"), "attendance history not found")
}

// DailySales handles GET /reports/daily/{date}
func (h *ReportHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	serveRecord(h, w, r, h.store.DailySales, date, "no sales report for "+date)
}

// DailyMetrics handles GET /reports/daily/{date}/events/{id}
func (h *ReportHandler) DailyMetrics(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	key := model.DailyMetricsKey(date, chi.URLParam(r, "id"))
	serveRecord(h, w, r, h.store.DailyMetrics, key, "no daily metrics for "+key)
}

// AuditLog handles GET /reports/audit/{entityId}?limit=N
func (h *ReportHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	entries, err := h.audit.ForEntity(r.Context(), chi.URLParam(r, "entityId"), limit)
	if err != nil {
		h.internal(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.AuditLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ReportHandler) internal(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("report lookup failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func serveRecord[T any](h *ReportHandler, w http.ResponseWriter, r *http.Request, c readmodel.Collection[T], key, notFound string) {
	rec, ok, err := c.Get(r.Context(), key)
	if err != nil {
		h.internal(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func parseDate(w http.ResponseWriter, raw string) (string, bool) {
	d, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted as "+model.DateLayout)
		return "", false
	}
	return d.Format(model.DateLayout), true
}
