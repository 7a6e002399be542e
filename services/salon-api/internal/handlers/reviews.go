package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
)

func (h *Handler) ListServiceReviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Reviews.ListPublished(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err, "review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

type createReviewRequest struct {
	AppointmentID string `json:"appointment_id"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

// CreateReview accepts one review per completed appointment of the caller.
// Reviews stay hidden until an admin publishes them.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	c, _ := caller(r)
	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	rev := model.Review{
		AppointmentID: strings.TrimSpace(req.AppointmentID),
		ClientID:      c.Sub,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}
	if rev.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}
	if err := rev.Normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	appt, err := h.d.Appointments.Get(r.Context(), rev.AppointmentID)
	if err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	if appt.ClientID != c.Sub {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if appt.Status != model.StatusCompleted {
		http.Error(w, "only completed appointments can be reviewed", http.StatusConflict)
		return
	}
	rev.ServiceID = appt.ServiceID

	created, err := h.d.Reviews.Create(r.Context(), rev)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			http.Error(w, "appointment already reviewed", http.StatusConflict)
			return
		}
		h.storeError(w, r, err, "review")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) AdminListReviews(w http.ResponseWriter, r *http.Request) {
	var f storage.ReviewFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("published")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "published must be true or false", http.StatusBadRequest)
			return
		}
		f.Published = &v
	}
	f.Limit = queryInt(r, "limit")
	items, err := h.d.Reviews.List(r.Context(), f)
	if err != nil {
		h.storeError(w, r, err, "review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

type publishReviewRequest struct {
	Published *bool `json:"published"`
}

func (h *Handler) AdminSetReviewPublished(w http.ResponseWriter, r *http.Request) {
	var req publishReviewRequest
	if err := decodeJSON(r, &req); err != nil || req.Published == nil {
		http.Error(w, "published is required", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	rev, err := h.d.Reviews.SetPublished(r.Context(), id, *req.Published)
	if err != nil {
		h.storeError(w, r, err, "review")
		return
	}
	h.audit(r, "admin.review.publish", id, map[string]any{"published": *req.Published})
	writeJSON(w, http.StatusOK, rev)
}
