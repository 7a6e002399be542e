package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Gallery.List(r.Context())
	if err != nil {
		h.storeError(w, r, err, "gallery item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (h *Handler) AdminCreateGalleryItem(w http.ResponseWriter, r *http.Request) {
	var it model.GalleryItem
	if err := decodeJSON(r, &it); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	it.ID = ""
	it.ImageURL = strings.TrimSpace(it.ImageURL)
	it.Caption = strings.TrimSpace(it.Caption)
	u, err := url.Parse(it.ImageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		http.Error(w, "image_url must be an absolute http(s) url", http.StatusBadRequest)
		return
	}
	created, err := h.d.Gallery.Create(r.Context(), it)
	if err != nil {
		h.storeError(w, r, err, "gallery item")
		return
	}
	h.audit(r, "admin.gallery.create", created.ID, nil)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) AdminDeleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.d.Gallery.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, err, "gallery item")
		return
	}
	h.audit(r, "admin.gallery.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
