package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/payments"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
	"github.com/stripe/stripe-go/v79"
)

type paymentIntentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type paymentIntentResponse struct {
	Payment model.Payment   `json:"payment"`
	Intent  payments.Intent `json:"intent"`
}

// CreatePaymentIntent starts the deposit payment for an appointment. The
// provider call is keyed by Idempotency-Key, or deposit:<appointment_id>
// when absent, so retries never create a second charge.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	appt, err := h.d.Appointments.Get(ctx, req.AppointmentID)
	if err != nil {
		h.storeError(w, r, err, "appointment")
		return
	}
	// Guest bookings are payable anonymously; a client's booking only by
	// that client or an admin.
	if appt.ClientID != "" {
		c, ok := caller(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !c.IsAdmin() && appt.ClientID != c.Sub {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}
	if !appt.Status.Blocking() {
		http.Error(w, "appointment is not payable", http.StatusConflict)
		return
	}
	if appt.DepositPaid {
		http.Error(w, "deposit already paid", http.StatusConflict)
		return
	}
	svc, err := h.d.Catalog.GetService(ctx, appt.ServiceID)
	if err != nil {
		h.storeError(w, r, err, "service")
		return
	}
	amount := model.DepositCents(svc.PriceCents)
	if amount <= 0 {
		http.Error(w, "service has no deposit", http.StatusBadRequest)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		idemKey = "deposit:" + appt.ID
	}
	intent, err := h.d.Gateway.CreateDepositIntent(ctx, payments.DepositRequest{
		AppointmentID:  appt.ID,
		ClientID:       appt.ClientID,
		AmountCents:    amount,
		Currency:       h.d.Currency,
		Description:    "Deposit for " + svc.Name + " on " + appt.Date + " " + appt.Time,
		ReceiptEmail:   appt.ContactEmail(),
		IdempotencyKey: idemKey,
	})
	if err != nil {
		metrics.IncPayment("intent", "error")
		h.d.Logger.Error("deposit intent failed", "err", err, "appointment_id", appt.ID)
		http.Error(w, "payment provider error, please try again", http.StatusBadGateway)
		return
	}

	payment, err := h.d.Payments.RecordIntent(ctx, model.Payment{
		ClientID:      appt.ClientID,
		AppointmentID: appt.ID,
		AmountCents:   amount,
		Currency:      h.d.Currency,
		ExternalID:    intent.ID,
		IsDeposit:     true,
	})
	if err != nil {
		h.storeError(w, r, err, "payment")
		return
	}
	if intent.Succeeded() {
		if payment, err = h.d.Payments.MarkSucceeded(ctx, intent.ID); err != nil {
			h.storeError(w, r, err, "payment")
			return
		}
	}
	metrics.IncPayment("intent", string(payment.Status))
	h.d.Logger.Info("deposit intent created",
		"appointment_id", appt.ID,
		"payment_id", payment.ID,
		"amount_cents", amount,
		"mock", intent.Mock,
	)
	writeJSON(w, http.StatusCreated, paymentIntentResponse{Payment: payment, Intent: intent})
}

// StripeWebhook settles deposits. The signature is the authentication;
// redelivered events are acknowledged without side effects.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.d.Webhooks.Configured() {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	evt, err := h.d.Webhooks.Verify(body, sigHeader)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.d.Logger.Info("payment provider event received",
		"provider", payments.ProviderStripe,
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", time.Unix(evt.Created, 0).UTC().Format(time.RFC3339),
	)

	var (
		externalID string
		status     model.PaymentStatus
	)
	switch evtType {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if evt.Data == nil || json.Unmarshal(evt.Data.Raw, &pi) != nil || pi.ID == "" {
			h.d.Logger.Error("stripe: invalid payment intent payload", "provider_event_id", evt.ID)
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		externalID = pi.ID
		status = model.PaymentSucceeded
		if evtType == "payment_intent.payment_failed" {
			status = model.PaymentFailed
		}
	}

	payment, err := h.d.Payments.ApplyProviderEvent(r.Context(), storage.ProviderEvent{
		Provider:  payments.ProviderStripe,
		EventID:   evt.ID,
		EventType: evtType,
		Payload:   body,
	}, externalID, status)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		h.d.Logger.Info("payment provider event duplicate ignored", "provider_event_id", evt.ID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
		return
	case storage.IsNotFound(err):
		h.d.Logger.Warn("payment provider event for unknown intent", "provider_event_id", evt.ID, "external_payment_id", externalID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	case err != nil:
		h.d.Logger.Error("payment provider event failed", "err", err, "provider_event_id", evt.ID)
		http.Error(w, "failed to apply provider event", http.StatusInternalServerError)
		return
	}
	if externalID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}
	metrics.IncPayment("webhook", string(payment.Status))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "payment_status": payment.Status})
}
