// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer and the read models.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/repository"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/service"
)

// EventHandler serves the command endpoints.
type EventHandler struct {
	svc    *service.EventService
	logger *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger.With("component", "handler")}
}

// Mount registers the event routes on r.
func (h *EventHandler) Mount(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Post("/{id}/publish", h.PublishEvent)
		r.Post("/{id}/cancel", h.CancelEvent)
		r.Post("/{id}/attendees", h.Register)
		r.Delete("/{id}/attendees/{userId}", h.CancelRegistration)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service and domain errors to statuses.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, domain.ErrNotRegistered):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrDuplicateRegistration),
		errors.Is(err, repository.ErrConcurrentUpdate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// respond writes e, or the error when the command failed. A command that
// was saved but not published still returns the event, with 202 and a
// warning header, since retrying it would be rejected.
func (h *EventHandler) respond(w http.ResponseWriter, r *http.Request, status int, e *domain.Event, err error) {
	if err != nil {
		if e != nil && errors.Is(err, service.ErrPublish) {
			w.Header().Set("Warning", `199 - "domain events not published"`)
			writeJSON(w, http.StatusAccepted, model.NewEventView(e))
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, model.NewEventView(e))
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := h.svc.CreateEvent(r.Context(), req)
	h.respond(w, r, http.StatusCreated, e, err)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, e, err)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	h.respond(w, r, http.StatusOK, e, err)
}

// PublishEvent handles POST /events/{id}/publish
func (h *EventHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Publish(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, e, err)
}

// CancelEvent handles POST /events/{id}/cancel
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, e, err)
}

// Register handles POST /events/{id}/attendees
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), req)
	h.respond(w, r, http.StatusCreated, e, err)
}

// CancelRegistration handles DELETE /events/{id}/attendees/{userId}
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.CancelRegistration(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	h.respond(w, r, http.StatusOK, e, err)
}
