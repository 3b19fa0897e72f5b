package braiders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"braidpilot-backend/internal/httpx"
	"braidpilot-backend/internal/middleware"
	"braidpilot-backend/internal/schedule"
	"braidpilot-backend/internal/styles"
	"braidpilot-backend/internal/transport"
	"braidpilot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("braiders list: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.service.List(ctx, salonID)
	if err != nil {
		log.Error("braiders list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("braiders list: ok", slog.String("salon_id", salonID), slog.Int("count", len(list)))
	transport.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("braiders create: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("braiders create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("braiders create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	braider, err := h.service.Create(ctx, salonID, req)
	if err != nil {
		log.Error("braiders create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("braiders create: ok", slog.String("braider_id", braider.ID))
	transport.WriteJSON(w, http.StatusCreated, braider)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("braiders update: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("braiders update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("braiders update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	braider, err := h.service.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("braiders update: not found", slog.String("braider_id", id))
			transport.WriteError(w, http.StatusNotFound, "braider not found", nil)
			return
		}
		log.Error("braiders update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("braiders update: ok", slog.String("braider_id", id))
	transport.WriteJSON(w, http.StatusOK, braider)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("braiders delete: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("braiders delete: not found", slog.String("braider_id", id))
			transport.WriteError(w, http.StatusNotFound, "braider not found", nil)
		case errors.Is(err, ErrActiveBookings):
			log.Warn("braiders delete: active bookings", slog.String("braider_id", id))
			transport.WriteRejection(w, http.StatusConflict, "BRAIDER_HAS_ACTIVE_BOOKINGS",
				"braider still has pending or confirmed bookings; deactivate or resolve them first")
		default:
			log.Error("braiders delete: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("braiders delete: ok", slog.String("braider_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("braiders available: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	query := r.URL.Query()
	params := struct {
		Date  string `validate:"required,date"`
		Time  string `validate:"required,clock"`
		Style string
	}{
		Date:  strings.TrimSpace(query.Get("date")),
		Time:  strings.TrimSpace(query.Get("time")),
		Style: strings.TrimSpace(query.Get("style")),
	}
	if err := h.val.Struct(params); err != nil {
		log.Warn("braiders available: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}
	duration, err := httpx.QueryInt(query, "duration", 0)
	if err != nil {
		log.Warn("braiders available: invalid duration")
		transport.WriteError(w, http.StatusBadRequest, "invalid duration", nil)
		return
	}
	if duration <= 0 {
		duration = styles.DurationOrDefault(params.Style, 0)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	candidates, err := h.service.AvailableBraiders(ctx, salonID, params.Style, params.Date, params.Time, duration)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("braiders available: salon not found", slog.String("salon_id", salonID))
			transport.WriteError(w, http.StatusNotFound, "salon not found", nil)
		case errors.Is(err, schedule.ErrInvalidDuration):
			log.Warn("braiders available: invalid duration")
			transport.WriteError(w, http.StatusBadRequest, "duration must be positive", nil)
		default:
			log.Error("braiders available: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("braiders available: ok",
		slog.String("salon_id", salonID),
		slog.String("date", params.Date),
		slog.Int("candidates", len(candidates)))
	transport.WriteJSON(w, http.StatusOK, candidates)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
