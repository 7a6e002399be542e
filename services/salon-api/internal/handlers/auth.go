package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	Profile   model.Profile `json:"profile"`
}

func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		http.Error(w, "valid email is required", http.StatusBadRequest)
		return
	}
	if req.FullName == "" {
		http.Error(w, "full_name is required", http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.d.Logger.Error("password hash failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	profile, err := h.d.Profiles.Create(r.Context(), storage.NewProfile{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		IsAdmin:      slices.Contains(h.d.AdminEmails, req.Email),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		h.storeError(w, r, err, "profile")
		return
	}
	h.startSession(w, r, profile, http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	profile, hash, err := h.d.Profiles.Credentials(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !storage.IsNotFound(err) {
		h.storeError(w, r, err, "profile")
		return
	}
	if err != nil || hash == "" || !auth.VerifyPassword(hash, req.Password) {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}
	h.startSession(w, r, profile, http.StatusOK)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, p model.Profile, code int) {
	token, claims, err := h.d.Signer.Issue(p.ID, p.Email, p.Role())
	if err != nil {
		h.d.Logger.Error("token issue failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	auth.SetSessionCookie(w, token, h.d.Signer.TTL(), h.d.SecureCookies)
	writeJSON(w, code, sessionResponse{
		Token:     token,
		ExpiresAt: time.Unix(claims.Exp, 0).UTC().Format(time.RFC3339),
		Profile:   p,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.d.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c, _ := caller(r)
	p, err := h.d.Profiles.GetByID(r.Context(), c.Sub)
	if err != nil {
		h.storeError(w, r, err, "profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
