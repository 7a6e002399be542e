package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/notify/sms"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
)

type clientRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	IsAdmin  any    `json:"is_admin"`
}

func (req *clientRequest) normalize() error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.FullName == "" {
		return errors.New("full_name is required")
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		return errors.New("email is invalid")
	}
	if req.Phone != "" {
		if req.Phone = sms.NormalizeNumber(req.Phone); req.Phone == "" {
			return errors.New("phone is invalid")
		}
	}
	if req.Email == "" && req.Phone == "" {
		return errors.New("email or phone is required")
	}
	return nil
}

func (h *Handler) AdminListClients(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Profiles.List(r.Context(), r.URL.Query().Get("search"), queryInt(r, "limit"))
	if err != nil {
		h.storeError(w, r, err, "client")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

// AdminCreateClient adds a walk-in client without a password. The client
// can register later with the same email to claim the profile.
func (h *Handler) AdminCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := req.normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := h.d.Profiles.Create(r.Context(), storage.NewProfile{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		IsAdmin:  model.ParseAdminFlag(req.IsAdmin),
	})
	if err != nil {
		h.storeError(w, r, err, "client")
		return
	}
	h.audit(r, "admin.client.create", p.ID, nil)
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) AdminUpdateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := req.normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	current, err := h.d.Profiles.GetByID(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err, "client")
		return
	}
	current.FullName = req.FullName
	current.Email = req.Email
	current.Phone = req.Phone
	if req.IsAdmin != nil {
		current.IsAdmin = model.ParseAdminFlag(req.IsAdmin)
	}
	updated, err := h.d.Profiles.Update(r.Context(), current)
	if err != nil {
		h.storeError(w, r, err, "client")
		return
	}
	h.audit(r, "admin.client.update", id, map[string]any{"is_admin": updated.IsAdmin})
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) AdminDeleteClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if c, ok := caller(r); ok && c.Sub == id {
		http.Error(w, "cannot delete your own profile", http.StatusConflict)
		return
	}
	if err := h.d.Profiles.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, err, "client")
		return
	}
	h.audit(r, "admin.client.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
