package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/clinicbook/libs/otel"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
)

// ProviderSource looks providers up; storage.ProviderRepository and directory.Cached both satisfy it.
type ProviderSource interface {
	List(ctx context.Context) ([]model.Provider, error)
	Provider(ctx context.Context, id string) (model.Provider, error)
}

type ProviderHandler struct {
	providers ProviderSource
	metrics   *metrics.BookingMetrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewProviderHandler(providers ProviderSource, m *metrics.BookingMetrics, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{providers: providers, metrics: m, logger: logger, now: time.Now}
}

type providerListResponse struct {
	Success   bool             `json:"success"`
	Providers []model.Provider `json:"providers"`
}

type providerResponse struct {
	Success  bool           `json:"success"`
	Provider model.Provider `json:"provider"`
}

type slotsResponse struct {
	Success    bool              `json:"success"`
	ProviderID string            `json:"provider_id"`
	Week       int               `json:"week"`
	AtStart    bool              `json:"at_start"`
	AtEnd      bool              `json:"at_end"`
	Start      time.Time         `json:"start"`
	Days       []engine.DayGroup `json:"days"`
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.List(r.Context())
	if err != nil {
		h.logger.Error("list providers failed", "err", err)
		writeFailure(w, http.StatusInternalServerError, "Could not load providers")
		return
	}
	if providers == nil {
		providers = []model.Provider{}
	}
	httpx.WriteJSON(w, http.StatusOK, providerListResponse{Success: true, Providers: providers})
}

func (h *ProviderHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, providerResponse{Success: true, Provider: p})
}

// Slots returns the offerable slots of one week page (?week=0..51) for a provider.
func (h *ProviderHandler) Slots(w http.ResponseWriter, r *http.Request) {
	week := 0
	if raw := r.URL.Query().Get("week"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > engine.MaxWeekOffset {
			writeFailure(w, http.StatusBadRequest, "week must be between 0 and "+strconv.Itoa(engine.MaxWeekOffset))
			return
		}
		week = n
	}

	p, ok := h.lookup(w, r)
	if !ok {
		return
	}

	_, span := otelx.Tracer("booking-service").Start(r.Context(), "slots.build_window")
	started := time.Now()
	win := engine.BuildWindow(p, week, h.now())
	total := 0
	for _, d := range win.Days {
		total += len(d.Slots)
	}
	h.metrics.ObserveWindow(time.Since(started).Seconds(), total)
	span.SetAttributes(
		attribute.String("provider.id", p.ID),
		attribute.Int("slots.week", week),
		attribute.Int("slots.days", len(win.Days)),
		attribute.Int("slots.total", total),
	)
	span.End()

	days := win.Days
	if days == nil {
		days = []engine.DayGroup{}
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		Success:    true,
		ProviderID: p.ID,
		Week:       week,
		AtStart:    week == 0,
		AtEnd:      week >= engine.MaxWeekOffset,
		Start:      win.Start,
		Days:       days,
	})
}

func (h *ProviderHandler) lookup(w http.ResponseWriter, r *http.Request) (model.Provider, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeFailure(w, http.StatusBadRequest, "missing provider id")
		return model.Provider{}, false
	}
	p, err := h.providers.Provider(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeFailure(w, http.StatusNotFound, "Provider not found")
			return model.Provider{}, false
		}
		h.logger.Error("provider lookup failed", "provider_id", id, "err", err)
		writeFailure(w, http.StatusInternalServerError, "Could not load provider")
		return model.Provider{}, false
	}
	return p, true
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, directory.ErrNotFound)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	httpx.WriteJSON(w, status, model.BookingAck{Success: false, Message: msg})
}
