package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
)

type createAppointmentRequest struct {
	ServiceID  string `json:"service_id"`
	Date       string `json:"appointment_date"`
	Time       string `json:"appointment_time"`
	Notes      string `json:"notes"`
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
	GuestEmail string `json:"guest_email"`
}

// CreateAppointment books a slot for the signed-in client or for a guest.
// An Idempotency-Key header makes retries return the first booking.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	appt := model.Appointment{
		ServiceID: req.ServiceID,
		Date:      req.Date,
		Time:      req.Time,
		Notes:     req.Notes,
		Status:    model.StatusPending,
	}
	if c, ok := caller(r); ok {
		appt.ClientID = c.Sub
	} else {
		appt.GuestName = req.GuestName
		appt.GuestPhone = req.GuestPhone
		appt.GuestEmail = req.GuestEmail
	}
	if err := appt.Normalize(); err != nil {
		metrics.IncBooking("rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	svc, err := h.d.Catalog.GetService(ctx, appt.ServiceID)
	if err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	if !svc.Active {
		metrics.IncBooking("rejected")
		http.Error(w, "service is not available", http.StatusBadRequest)
		return
	}
	if appt.Date < h.d.Availability.Today() {
		metrics.IncBooking("rejected")
		http.Error(w, "appointment_date is in the past", http.StatusBadRequest)
		return
	}
	if !availability.IsCandidate(appt.Time) {
		metrics.IncBooking("rejected")
		http.Error(w, "appointment_time is not a bookable slot", http.StatusBadRequest)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" {
		if h.replayIdempotent(w, r, idemKey, appt) {
			return
		}
	}
	ok, err := h.d.Availability.IsBookable(ctx, appt.Date, appt.Time)
	if err != nil {
		metrics.IncBooking("error")
		h.d.Logger.Error("availability check failed", "err", err, "date", appt.Date)
		http.Error(w, "availability temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		// A concurrent retry may have booked the slot under this key
		// between the lookup and the check.
		if idemKey != "" && h.replayIdempotent(w, r, idemKey, appt) {
			return
		}
		metrics.IncBooking("slot_taken")
		http.Error(w, "time slot is not available", http.StatusConflict)
		return
	}

	created, replayed, err := h.d.Appointments.Create(ctx, appt, idemKey)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSlotTaken):
			metrics.IncBooking("slot_taken")
		case errors.Is(err, storage.ErrIdempotencyMismatch):
			metrics.IncBooking("rejected")
		default:
			metrics.IncBooking("error")
		}
		h.storeError(w, r, err, "appointment")
		return
	}
	if replayed {
		writeReplay(w, created)
		return
	}
	metrics.IncBooking("created")
	h.d.Logger.Info("appointment created",
		"appointment_id", created.ID,
		"date", created.Date,
		"time", created.Time,
		"guest", created.IsGuest(),
	)
	writeJSON(w, http.StatusCreated, created)
}

// replayIdempotent answers a retry of a booking already stored under key.
// It reports whether a response was written.
func (h *Handler) replayIdempotent(w http.ResponseWriter, r *http.Request, key string, appt model.Appointment) bool {
	prev, found, err := h.d.Appointments.LookupIdempotent(r.Context(), key, appt.RequestHash())
	if err != nil {
		metrics.IncBooking("rejected")
		h.storeError(w, r, err, "appointment")
		return true
	}
	if !found {
		return false
	}
	writeReplay(w, prev)
	return true
}

func writeReplay(w http.ResponseWriter, appt model.Appointment) {
	metrics.IncBooking("replayed")
	w.Header().Set("Idempotent-Replayed", "true")
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) MyAppointments(w http.ResponseWriter, r *http.Request) {
	c, _ := caller(r)
	items, err := h.d.Appointments.List(r.Context(), storage.AppointmentFilter{
		ClientID: c.Sub,
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

// CancelAppointment lets the owning client or an admin cancel.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	c, _ := caller(r)
	id := r.PathValue("id")
	appt, err := h.d.Appointments.Transition(r.Context(), id, model.StatusCancelled, func(a model.Appointment) error {
		if c.IsAdmin() || (a.ClientID != "" && a.ClientID == c.Sub) {
			return nil
		}
		return errForbidden
	})
	if err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	h.d.Logger.Info("appointment cancelled", "appointment_id", appt.ID, "by", c.Sub)
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) AdminListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.AppointmentFilter{
		Date:  strings.TrimSpace(q.Get("date")),
		From:  strings.TrimSpace(q.Get("from")),
		Limit: queryInt(r, "limit"),
	}
	for _, d := range []string{f.Date, f.From} {
		if d == "" {
			continue
		}
		if _, err := model.ParseDate(d, nil); err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		f.Status = st
	}
	items, err := h.d.Appointments.List(r.Context(), f)
	if err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) AdminUpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	to, ok := model.ParseStatus(req.Status)
	if !ok {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	appt, err := h.d.Appointments.Transition(r.Context(), id, to, nil)
	if err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	h.audit(r, "admin.appointment.status", id, map[string]any{"status": string(to)})
	writeJSON(w, http.StatusOK, appt)
}

// AdminGetAppointment returns one booking with its deposit history.
func (h *Handler) AdminGetAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appt, err := h.d.Appointments.Get(ctx, r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	pays, err := h.d.Payments.ListForAppointment(ctx, appt.ID)
	if err != nil {
		h.storeError(w, r, err, "payment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": appt, "payments": nonNil(pays)})
}

func (h *Handler) AdminDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.d.Appointments.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	h.audit(r, "admin.appointment.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return n
}

// nonNil keeps empty lists encoded as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
