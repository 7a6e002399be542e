package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/notify/sms"
)

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendSMSRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// AdminSendEmail sends one transactional email through the configured
// provider. Provider failures are reported as 502.
func (h *Handler) AdminSendEmail(w http.ResponseWriter, r *http.Request) {
	if h.d.Email == nil {
		http.Error(w, "email not configured", http.StatusServiceUnavailable)
		return
	}
	var req sendEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.To = strings.TrimSpace(req.To)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.To == "" || !strings.Contains(req.To, "@") {
		http.Error(w, "valid to address is required", http.StatusBadRequest)
		return
	}
	if req.Subject == "" || strings.TrimSpace(req.Body) == "" {
		http.Error(w, "subject and body are required", http.StatusBadRequest)
		return
	}
	if err := h.d.Email.Send(r.Context(), req.To, req.Subject, req.Body); err != nil {
		h.d.Logger.Error("email send failed", "err", err, "provider", h.d.Email.ProviderID())
		http.Error(w, "email provider error", http.StatusBadGateway)
		return
	}
	h.audit(r, "admin.notify.email", "", map[string]any{"provider": h.d.Email.ProviderID()})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "sent", "provider": h.d.Email.ProviderID()})
}

func (h *Handler) AdminSendSMS(w http.ResponseWriter, r *http.Request) {
	if h.d.SMS == nil {
		http.Error(w, "sms not configured", http.StatusServiceUnavailable)
		return
	}
	var req sendSMSRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	to := sms.NormalizeNumber(req.To)
	if to == "" {
		http.Error(w, "valid to number is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		http.Error(w, "body is required", http.StatusBadRequest)
		return
	}
	if err := h.d.SMS.Send(r.Context(), to, req.Body); err != nil {
		h.d.Logger.Error("sms send failed", "err", err, "provider", h.d.SMS.ProviderID())
		http.Error(w, "sms provider error", http.StatusBadGateway)
		return
	}
	h.audit(r, "admin.notify.sms", "", map[string]any{"provider": h.d.SMS.ProviderID()})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "sent", "provider": h.d.SMS.ProviderID()})
}
