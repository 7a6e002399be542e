package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const ProviderStripe = "stripe"

var ErrNotConfigured = errors.New("payment provider not configured")

type DepositRequest struct {
	AppointmentID  string
	ClientID       string
	AmountCents    int64
	Currency       string
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
}

// Intent is the provider's view of a deposit. ClientSecret is handed to the
// browser to confirm the payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	Mock         bool   `json:"mock,omitempty"`
}

// Succeeded reports whether the provider already captured the funds.
func (i Intent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

type Gateway interface {
	CreateDepositIntent(ctx context.Context, req DepositRequest) (Intent, error)
}

type StripeGateway struct {
	sc *client.API
}

func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeGateway{sc: client.New(secretKey, nil)}, nil
}

func (g *StripeGateway) CreateDepositIntent(ctx context.Context, req DepositRequest) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	params.Context = ctx
	params.AddMetadata("appointment_id", req.AppointmentID)
	if req.ClientID != "" {
		params.AddMetadata("client_id", req.ClientID)
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, err
	}
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// MockGateway settles every deposit immediately. It stands in for Stripe
// when no secret key is configured.
type MockGateway struct{}

func (MockGateway) CreateDepositIntent(_ context.Context, req DepositRequest) (Intent, error) {
	return Intent{
		ID:          "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:      string(stripe.PaymentIntentStatusSucceeded),
		AmountCents: req.AmountCents,
		Currency:    strings.ToLower(req.Currency),
		Mock:        true,
	}, nil
}

// WebhookVerifier checks Stripe-Signature headers.
type WebhookVerifier struct {
	Secret    string
	Tolerance time.Duration
}

func (v WebhookVerifier) Configured() bool { return strings.TrimSpace(v.Secret) != "" }

func (v WebhookVerifier) Verify(body []byte, sigHeader string) (stripe.Event, error) {
	if !v.Configured() {
		return stripe.Event{}, ErrNotConfigured
	}
	tol := v.Tolerance
	if tol <= 0 {
		tol = webhook.DefaultTolerance
	}
	return webhook.ConstructEventWithTolerance(body, sigHeader, v.Secret, tol)
}
