package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"braidpilot-backend/internal/braiders"
	"braidpilot-backend/internal/cache"
	"braidpilot-backend/internal/capacity"
	"braidpilot-backend/internal/httpx"
	"braidpilot-backend/internal/middleware"
	"braidpilot-backend/internal/transport"
	"braidpilot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
	store   cache.Cache
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, store cache.Cache) *Handler {
	if store == nil {
		store = cache.NewNoop()
	}
	return &Handler{
		service: service,
		val:     val,
		log:     log,
		store:   store,
	}
}

// rejectionStatus maps machine-readable rejection reasons onto HTTP statuses.
func rejectionStatus(reason string) int {
	switch reason {
	case ReasonInvalidDuration:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req RequestInput
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	outcome, err := h.service.Request(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSalonNotFound):
			log.Warn("booking create: salon not found", slog.String("salon_id", req.SalonID))
			transport.WriteError(w, http.StatusNotFound, "salon not found", nil)
		case errors.Is(err, ErrPastSlot):
			log.Warn("booking create: past slot")
			transport.WriteError(w, http.StatusBadRequest, "appointment slot is in the past", nil)
		default:
			log.Error("booking create: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	if !outcome.Accepted {
		log.Info("booking create: rejected",
			slog.String("salon_id", req.SalonID),
			slog.String("reason", outcome.Reason))
		transport.WriteRejection(w, rejectionStatus(outcome.Reason), outcome.Reason, outcome.Message)
		return
	}

	h.invalidateDay(req.SalonID, req.AppointmentDate)

	log.Info("booking create: ok",
		slog.String("booking_id", outcome.BookingID),
		slog.String("braider_id", outcome.BraiderID))
	transport.WriteJSON(w, http.StatusCreated, outcome)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("booking get: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("booking get: not found", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
			return
		}
		log.Error("booking get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) ListBySalon(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("booking list: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	query := r.URL.Query()
	status := strings.TrimSpace(query.Get("status"))
	if status != "" && !knownStatus(status) {
		log.Warn("booking list: invalid status", slog.String("status", status))
		transport.WriteError(w, http.StatusBadRequest, "invalid status", nil)
		return
	}
	date := strings.TrimSpace(query.Get("date"))

	limit, offset, err := httpx.ParseLimitOffset(query, 50, 200)
	if err != nil {
		log.Warn("booking list: invalid pagination")
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.service.List(ctx, salonID, status, date, limit, offset)
	if err != nil {
		log.Error("booking list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("booking list: ok", slog.String("salon_id", salonID), slog.Int("count", len(list)))
	transport.WriteJSON(w, http.StatusOK, list)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("booking status: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req statusRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking status: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.Transition(ctx, id, req.Status)
	if !h.writeTransitionError(w, log, "booking status", id, err) {
		return
	}

	h.invalidateDay(updated.SalonID, updated.AppointmentDate)
	log.Info("booking status: ok", slog.String("booking_id", id), slog.String("status", updated.Status))
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) PaymentCaptured(w http.ResponseWriter, r *http.Request) {
	h.paymentSignal(w, r, "payment captured", h.service.PaymentCaptured)
}

func (h *Handler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	h.paymentSignal(w, r, "payment failed", h.service.PaymentFailed)
}

func (h *Handler) paymentSignal(w http.ResponseWriter, r *http.Request, name string, apply func(context.Context, string) (Booking, error)) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn(name + ": missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := apply(ctx, id)
	if !h.writeTransitionError(w, log, name, id, err) {
		return
	}

	h.invalidateDay(updated.SalonID, updated.AppointmentDate)
	log.Info(name+": ok", slog.String("booking_id", id), slog.String("status", updated.Status))
	transport.WriteJSON(w, http.StatusOK, updated)
}

type reassignRequest struct {
	BraiderID string `json:"braiderId"`
}

func (h *Handler) Reassign(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("booking reassign: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req reassignRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking reassign: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.Reassign(ctx, id, req.BraiderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("booking reassign: not found", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
		case errors.Is(err, braiders.ErrNotFound):
			log.Warn("booking reassign: braider unavailable", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusConflict, "braider is not available for this slot", nil)
		case errors.Is(err, ErrIllegalTransition):
			log.Warn("booking reassign: terminal booking", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusConflict, "booking is no longer active", nil)
		default:
			log.Error("booking reassign: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("booking reassign: ok", slog.String("booking_id", id), slog.String("braider_id", updated.BraiderID))
	transport.WriteJSON(w, http.StatusOK, updated)
}

type rescheduleRequest struct {
	Date string `json:"date" validate:"required,date"`
	Time string `json:"time" validate:"required,clock"`
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("booking reschedule: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req rescheduleRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking reschedule: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking reschedule: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// We need the old date for cache invalidation before it changes.
	original, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("booking reschedule: not found", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
			return
		}
		log.Error("booking reschedule: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	outcome, err := h.service.Reschedule(ctx, id, req.Date, req.Time)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("booking reschedule: not found", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
		case errors.Is(err, ErrIllegalTransition):
			log.Warn("booking reschedule: terminal booking", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusConflict, "booking is no longer active", nil)
		case errors.Is(err, ErrPastSlot):
			log.Warn("booking reschedule: past slot")
			transport.WriteError(w, http.StatusBadRequest, "appointment slot is in the past", nil)
		default:
			log.Error("booking reschedule: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	if !outcome.Accepted {
		log.Info("booking reschedule: rejected",
			slog.String("booking_id", id),
			slog.String("reason", outcome.Reason))
		transport.WriteRejection(w, rejectionStatus(outcome.Reason), outcome.Reason, outcome.Message)
		return
	}

	h.invalidateDay(original.SalonID, original.AppointmentDate)
	h.invalidateDay(original.SalonID, req.Date)

	log.Info("booking reschedule: ok", slog.String("booking_id", id), slog.String("date", req.Date))
	transport.WriteJSON(w, http.StatusOK, outcome)
}

func (h *Handler) ExpirePending(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("booking expire: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	cancelled, err := h.service.ExpirePending(ctx, salonID, time.Now())
	if err != nil {
		log.Error("booking expire: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("booking expire: ok", slog.String("salon_id", salonID), slog.Int("cancelled", cancelled))
	transport.WriteJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}

// writeTransitionError writes lifecycle errors; returns true when the caller
// may proceed with a success response.
func (h *Handler) writeTransitionError(w http.ResponseWriter, log *slog.Logger, name, id string, err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn(name+": not found", slog.String("booking_id", id))
		transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
	case errors.Is(err, ErrIllegalTransition):
		log.Warn(name+": illegal transition", slog.String("booking_id", id))
		transport.WriteError(w, http.StatusConflict, "illegal status transition", nil)
	default:
		log.Error(name+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
	return false
}

func knownStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// invalidateDay drops every cached availability answer for the salon's day.
func (h *Handler) invalidateDay(salonID, date string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.store.DeletePrefix(ctx, capacity.CacheKeyPrefix(salonID, date)); err != nil {
		h.log.Warn("availability cache invalidation failed", slog.String("error", err.Error()))
	}
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
