package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// DepositPercent of the service price is collected up front.
const DepositPercent = 25

type Payment struct {
	ID            string        `json:"id"`
	ClientID      string        `json:"client_id,omitempty"`
	AppointmentID string        `json:"appointment_id"`
	AmountCents   int64         `json:"amount_cents"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	ExternalID    string        `json:"external_payment_id,omitempty"`
	IsDeposit     bool          `json:"is_deposit"`
	CreatedAt     time.Time     `json:"created_at"`
}

// DepositCents is DepositPercent of price, rounded half up to the cent.
func DepositCents(priceCents int64) int64 {
	if priceCents <= 0 {
		return 0
	}
	return (priceCents*DepositPercent + 50) / 100
}
