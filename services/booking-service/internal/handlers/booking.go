package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/revenue"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slotkey"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/storage"
)

const (
	msgBooked          = "Appointment Booked"
	msgSlotTaken       = "Slot Not Available"
	msgUnavailable     = "Doctor Not Available"
	msgProviderMissing = "Provider not found"
	msgInvalidSlot     = "Invalid slot"
	msgCancelled       = "Appointment Cancelled"
)

type AppointmentStore interface {
	Book(ctx context.Context, userID string, req model.BookingRequest) (model.Appointment, error)
	Cancel(ctx context.Context, appointmentID string) (model.Appointment, error)
	List(ctx context.Context) ([]model.Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Appointment, error)
}

// Invalidator drops cached provider state after the booked-slot index changed.
type Invalidator interface {
	Invalidate(ctx context.Context, providerID string)
}

type BookingHandler struct {
	appts   AppointmentStore
	cache   Invalidator
	metrics *metrics.BookingMetrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewBookingHandler(appts AppointmentStore, cache Invalidator, m *metrics.BookingMetrics, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{appts: appts, cache: cache, metrics: m, logger: logger, now: time.Now}
}

type appointmentsResponse struct {
	Success      bool                `json:"success"`
	Appointments []model.Appointment `json:"appointments"`
}

type revenueResponse struct {
	Success bool `json:"success"`
	revenue.Report
}

// Book is the authoritative slot check. The client-side window only narrows what is
// offered; the slot is re-validated here and reserved under a row lock.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "Not Authorized Login Again")
		return
	}

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.SlotDate = strings.TrimSpace(req.SlotDate)
	req.SlotTime = strings.TrimSpace(req.SlotTime)
	if req.ProviderID == "" || req.SlotDate == "" || req.SlotTime == "" {
		writeFailure(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if !h.offerable(req) {
		h.metrics.ObserveBooking("invalid")
		writeFailure(w, http.StatusUnprocessableEntity, msgInvalidSlot)
		return
	}

	logger := h.logger.With("provider_id", req.ProviderID, "slot_date", req.SlotDate, "slot_time", req.SlotTime, "user_id", claims.Subject)
	appt, err := h.appts.Book(r.Context(), claims.Subject, req)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrSlotTaken):
		h.metrics.ObserveBooking("slot_taken")
		writeFailure(w, http.StatusConflict, msgSlotTaken)
		return
	case errors.Is(err, storage.ErrProviderUnavailable):
		h.metrics.ObserveBooking("provider_unavailable")
		writeFailure(w, http.StatusConflict, msgUnavailable)
		return
	case errors.Is(err, storage.ErrNotFound):
		h.metrics.ObserveBooking("not_found")
		writeFailure(w, http.StatusNotFound, msgProviderMissing)
		return
	default:
		h.metrics.ObserveBooking("error")
		logger.Error("booking failed", "err", err)
		writeFailure(w, http.StatusInternalServerError, "Could not book appointment")
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(r.Context(), req.ProviderID)
	}
	h.metrics.ObserveBooking("booked")
	logger.Info("appointment booked", "appointment_id", appt.ID)
	httpx.WriteJSON(w, http.StatusOK, model.BookingAck{Success: true, Message: msgBooked})
}

// offerable reports whether req names a slot the availability rules would offer
// right now, ignoring existing bookings: the day's generated slots (same-day lead
// time included) must contain the time, and it must start within the booking horizon.
func (h *BookingHandler) offerable(req model.BookingRequest) bool {
	now := h.now()
	day, err := slotkey.Parse(req.SlotDate, now.Location())
	if err != nil {
		return false
	}
	if _, _, err := slotkey.ParseTime(req.SlotTime); err != nil {
		return false
	}
	horizon := now.AddDate(0, 0, (engine.MaxWeekOffset+1)*engine.DaysPerWeek)
	for _, slot := range availability.ForDay(day, nil, now) {
		if slot.Time == req.SlotTime {
			return slot.Start.Before(horizon)
		}
	}
	return false
}

func (h *BookingHandler) MyAppointments(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "Not Authorized Login Again")
		return
	}
	appts, err := h.appts.ListByUser(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("list appointments failed", "user_id", claims.Subject, "err", err)
		writeFailure(w, http.StatusInternalServerError, "Could not load appointments")
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	httpx.WriteJSON(w, http.StatusOK, appointmentsResponse{Success: true, Appointments: appts})
}

// Cancel releases an appointment's slot. Admin only.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	appt, err := h.appts.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeFailure(w, http.StatusNotFound, "Appointment not found")
			return
		}
		h.logger.Error("cancel appointment failed", "appointment_id", id, "err", err)
		writeFailure(w, http.StatusInternalServerError, "Could not cancel appointment")
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(r.Context(), appt.ProviderID)
	}
	h.logger.Info("appointment cancelled", "appointment_id", id, "provider_id", appt.ProviderID)
	httpx.WriteJSON(w, http.StatusOK, model.BookingAck{Success: true, Message: msgCancelled})
}

// Revenue reports appointments with a slot date in [start, end] and the amount
// earned from the completed or paid ones.
func (h *BookingHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := revenue.ParseRange(q.Get("start"), q.Get("end"), h.now().Location())
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "start and end must be YYYY-MM-DD with start <= end")
		return
	}
	appts, err := h.appts.List(r.Context())
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		writeFailure(w, http.StatusInternalServerError, "Could not load appointments")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, revenueResponse{Success: true, Report: revenue.Build(appts, start, end)})
}
