package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

// Blocking reports whether an appointment in this status occupies its slot.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id,omitempty"`
	GuestName   string    `json:"guest_name,omitempty"`
	GuestPhone  string    `json:"guest_phone,omitempty"`
	GuestEmail  string    `json:"guest_email,omitempty"`
	ServiceID   string    `json:"service_id"`
	Date        string    `json:"appointment_date"`
	Time        string    `json:"appointment_time"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	DepositPaid bool      `json:"deposit_paid"`
	PaymentRef  string    `json:"payment_reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Filled on reads from the joined profile and service rows.
	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
}

func (a Appointment) IsGuest() bool { return a.ClientID == "" }

// ContactName, ContactEmail and ContactPhone prefer the client profile and
// fall back to the guest fields.
func (a Appointment) ContactName() string  { return firstNonEmpty(a.ClientName, a.GuestName) }
func (a Appointment) ContactEmail() string { return firstNonEmpty(a.ClientEmail, a.GuestEmail) }
func (a Appointment) ContactPhone() string { return firstNonEmpty(a.ClientPhone, a.GuestPhone) }

// Normalize trims fields and canonicalizes date and time. Guests must leave
// a name and one way to reach them.
func (a *Appointment) Normalize() error {
	a.ServiceID = strings.TrimSpace(a.ServiceID)
	a.GuestName = strings.TrimSpace(a.GuestName)
	a.GuestPhone = strings.TrimSpace(a.GuestPhone)
	a.GuestEmail = strings.TrimSpace(a.GuestEmail)
	a.Notes = strings.TrimSpace(a.Notes)
	if a.ServiceID == "" {
		return errors.New("service_id is required")
	}
	if _, err := ParseDate(a.Date, nil); err != nil {
		return err
	}
	a.Date = strings.TrimSpace(a.Date)
	clock, err := NormalizeClock(a.Time)
	if err != nil {
		return err
	}
	a.Time = clock
	if a.IsGuest() {
		if a.GuestName == "" {
			return errors.New("guest_name is required for guest bookings")
		}
		if a.GuestPhone == "" && a.GuestEmail == "" {
			return errors.New("guest_phone or guest_email is required for guest bookings")
		}
	}
	if a.GuestEmail != "" && !strings.Contains(a.GuestEmail, "@") {
		return errors.New("guest_email is invalid")
	}
	if len(a.Notes) > 1000 {
		return errors.New("notes must be at most 1000 characters")
	}
	return nil
}

// RequestHash fingerprints the caller and booking fields of a normalized
// request. Retries under one idempotency key must carry the same hash.
func (a Appointment) RequestHash() string {
	h := sha256.New()
	for _, f := range []string{a.ClientID, a.GuestName, a.GuestPhone, a.GuestEmail, a.ServiceID, a.Date, a.Time, a.Notes} {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
