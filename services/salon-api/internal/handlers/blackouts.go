package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

func (h *Handler) AdminListBlackouts(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	if from != "" {
		if _, err := model.ParseDate(from, nil); err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	items, err := h.d.Blackouts.List(r.Context(), from)
	if err != nil {
		h.storeError(w, r, err, "blackout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (h *Handler) AdminCreateBlackout(w http.ResponseWriter, r *http.Request) {
	var b model.BlackoutDate
	if err := decodeJSON(r, &b); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	b.ID = ""
	if err := b.Normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.d.Blackouts.Create(r.Context(), b)
	if err != nil {
		h.storeError(w, r, err, "blackout")
		return
	}
	h.audit(r, "admin.blackout.create", created.ID, map[string]any{
		"start_date": created.StartDate,
		"end_date":   created.EndDate,
		"all_day":    created.AllDay,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) AdminDeleteBlackout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.d.Blackouts.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, err, "blackout")
		return
	}
	h.audit(r, "admin.blackout.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
