package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

const noTimesMessage = "no times available"

type availabilityResponse struct {
	Date    string   `json:"date"`
	Slots   []string `json:"slots"`
	Message string   `json:"message,omitempty"`
}

// Availability lists open slots for ?date=YYYY-MM-DD (default today). When
// bookings or blackouts cannot be read it answers 503 rather than offering
// times that may be taken.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = h.d.Availability.Today()
	}

	slots, err := h.d.Availability.Slots(r.Context(), date)
	if err != nil {
		if errors.Is(err, model.ErrInvalidDate) {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		metrics.IncAvailability("error")
		h.d.Logger.Error("availability lookup failed", "err", err, "date", date)
		http.Error(w, "availability temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := availabilityResponse{Date: date, Slots: slots}
	if resp.Slots == nil {
		resp.Slots = []string{}
	}
	if len(resp.Slots) == 0 {
		resp.Message = noTimesMessage
		metrics.IncAvailability("full")
	} else {
		metrics.IncAvailability("open")
	}
	writeJSON(w, http.StatusOK, resp)
}
