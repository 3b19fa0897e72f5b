package capacity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"braidpilot-backend/internal/cache"
	"braidpilot-backend/internal/httpx"
	"braidpilot-backend/internal/middleware"
	"braidpilot-backend/internal/schedule"
	"braidpilot-backend/internal/styles"
	"braidpilot-backend/internal/transport"
	"braidpilot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service  *Service
	val      *validation.Validator
	log      *slog.Logger
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, store cache.Cache, cacheTTL time.Duration) *Handler {
	return &Handler{
		service:  service,
		val:      val,
		log:      log,
		cache:    store,
		cacheTTL: cacheTTL,
	}
}

type availabilityQuery struct {
	Date string `validate:"required,date"`
	Time string `validate:"required,clock"`
}

type blockRequest struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Reason    string `json:"reason"`
}

type unblockRequest struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

func CacheKeyPrefix(salonID, date string) string {
	return "availability:" + salonID + ":" + date + ":"
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("availability: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	q := availabilityQuery{
		Date: r.URL.Query().Get("date"),
		Time: r.URL.Query().Get("time"),
	}
	style := strings.TrimSpace(r.URL.Query().Get("style"))
	if err := h.val.Struct(q); err != nil {
		log.Warn("availability: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	duration, err := httpx.QueryInt(r.URL.Query(), "duration", 0)
	if err != nil {
		log.Warn("availability: invalid duration")
		transport.WriteError(w, http.StatusBadRequest, "invalid duration", nil)
		return
	}

	cacheKey := CacheKeyPrefix(salonID, q.Date) + q.Time + ":" + strconv.Itoa(duration) + ":" + strings.ToLower(style)
	if h.cache != nil {
		if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
			log.Info("availability: cache hit", slog.String("salon_id", salonID), slog.String("date", q.Date))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if duration == 0 {
		settings, err := h.service.repo.Settings(ctx, salonID)
		if err != nil {
			log.Warn("availability: salon not found", slog.String("salon_id", salonID))
			transport.WriteError(w, http.StatusNotFound, "salon not found", nil)
			return
		}
		duration = styles.DurationOrDefault(style, settings.DefaultDurationMinutes)
	}

	check, err := h.service.CheckSlot(ctx, salonID, q.Date, q.Time, duration)
	if err != nil {
		switch {
		case errors.Is(err, ErrSalonNotFound):
			log.Warn("availability: salon not found", slog.String("salon_id", salonID))
			transport.WriteError(w, http.StatusNotFound, "salon not found", nil)
		case errors.Is(err, schedule.ErrInvalidDuration), errors.Is(err, schedule.ErrInvalidTime), errors.Is(err, schedule.ErrInvalidDate):
			log.Warn("availability: invalid input", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		default:
			log.Error("availability: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	response := map[string]interface{}{
		"salonId":  salonID,
		"date":     q.Date,
		"time":     q.Time,
		"duration": duration,
		"slot":     check,
	}

	if h.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			_ = h.cache.Set(r.Context(), cacheKey, payload, h.cacheTTL)
		}
	}

	log.Info("availability: ok",
		slog.String("salon_id", salonID),
		slog.String("date", q.Date),
		slog.String("time", q.Time),
		slog.Bool("available", check.Available),
	)
	transport.WriteJSON(w, http.StatusOK, response)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("capacity status: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		log.Warn("capacity status: invalid date", slog.String("date", date))
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report, err := h.service.Status(ctx, salonID, date)
	if err != nil {
		if errors.Is(err, ErrSalonNotFound) {
			log.Warn("capacity status: salon not found", slog.String("salon_id", salonID))
			transport.WriteError(w, http.StatusNotFound, "salon not found", nil)
			return
		}
		log.Error("capacity status: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("capacity status: ok", slog.String("salon_id", salonID), slog.String("date", date))
	transport.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("blocks create: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	var req blockRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("blocks create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("blocks create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	slot, err := h.service.Block(ctx, salonID, req.Date, req.StartTime, req.EndTime, req.Reason)
	if err != nil {
		if errors.Is(err, ErrInvalidInterval) {
			log.Warn("blocks create: invalid interval", slog.String("start", req.StartTime), slog.String("end", req.EndTime))
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Error("blocks create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if h.cache != nil {
		_ = h.cache.DeletePrefix(r.Context(), CacheKeyPrefix(salonID, req.Date))
	}

	log.Info("blocks create: ok",
		slog.String("salon_id", salonID),
		slog.String("block_id", slot.ID),
		slog.String("date", slot.Date),
		slog.String("range", slot.StartTime+"-"+slot.EndTime),
	)
	transport.WriteJSON(w, http.StatusCreated, slot)
}

func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	salonID := strings.TrimSpace(chi.URLParam(r, "id"))
	if salonID == "" {
		log.Warn("blocks delete: missing salon id")
		transport.WriteError(w, http.StatusBadRequest, "missing salon id", nil)
		return
	}

	var req unblockRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("blocks delete: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("blocks delete: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	touched, err := h.service.Unblock(ctx, salonID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		if errors.Is(err, ErrInvalidInterval) {
			log.Warn("blocks delete: invalid interval")
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Error("blocks delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if h.cache != nil {
		_ = h.cache.DeletePrefix(r.Context(), CacheKeyPrefix(salonID, req.Date))
	}

	log.Info("blocks delete: ok", slog.String("salon_id", salonID), slog.Int("touched", touched))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "unblocked",
		"touched": touched,
	})
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
