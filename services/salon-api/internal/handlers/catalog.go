package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
)

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Catalog.ListCategories(r.Context())
	if err != nil {
		h.storeError(w, r, err, "category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

// ListServices returns active services, optionally filtered by ?category=<slug>.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Catalog.ListServices(r.Context(), storage.ServiceFilter{
		CategorySlug: strings.TrimSpace(r.URL.Query().Get("category")),
	})
	if err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.d.Catalog.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	if !svc.Active {
		http.Error(w, "service not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) AdminListServices(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Catalog.ListServices(r.Context(), storage.ServiceFilter{IncludeInactive: true})
	if err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

type serviceRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
	CategoryID      string `json:"category_id"`
	Active          *bool  `json:"active"`
}

func (req serviceRequest) toService() model.Service {
	s := model.Service{
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
		CategoryID:      strings.TrimSpace(req.CategoryID),
		Active:          true,
	}
	if req.Active != nil {
		s.Active = *req.Active
	}
	return s
}

func (h *Handler) AdminCreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	svc := req.toService()
	if err := svc.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.d.Catalog.CreateService(r.Context(), svc)
	if err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	h.audit(r, "admin.service.create", created.ID, map[string]any{"name": created.Name})
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) AdminUpdateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	svc := req.toService()
	svc.ID = r.PathValue("id")
	if err := svc.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.d.Catalog.UpdateService(r.Context(), svc)
	if err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	h.audit(r, "admin.service.update", updated.ID, nil)
	writeJSON(w, http.StatusOK, updated)
}

// AdminDeleteService deactivates; booked history keeps its service row.
func (h *Handler) AdminDeleteService(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.d.Catalog.DeactivateService(r.Context(), id); err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	h.audit(r, "admin.service.deactivate", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *Handler) AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	slug := model.Slugify(req.Slug)
	if slug == "" {
		slug = model.Slugify(req.Name)
	}
	if slug == "" {
		http.Error(w, "slug is required", http.StatusBadRequest)
		return
	}
	cat, err := h.d.Catalog.UpsertCategory(r.Context(), model.ServiceCategory{Name: req.Name, Slug: slug})
	if err != nil {
		h.storeError(w, r, err, "category")
		return
	}
	h.audit(r, "admin.category.upsert", cat.ID, map[string]any{"slug": cat.Slug})
	writeJSON(w, http.StatusCreated, cat)
}
