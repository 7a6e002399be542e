package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/outbox"
)

type Payments struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPayments(pool *db.Pool, outboxRepo *outbox.Repository) *Payments {
	return &Payments{pool: pool, outbox: outboxRepo}
}

// ProviderEvent is a webhook delivery from the payment provider, stored
// once per (Provider, EventID).
type ProviderEvent struct {
	Provider  string
	EventID   string
	EventType string
	Payload   []byte
}

const paymentColumns = `id::text, COALESCE(client_id::text, ''), appointment_id::text, amount_cents, currency,
	status, COALESCE(external_payment_id, ''), is_deposit, created_at`

func scanPayment(row pgx.Row) (model.Payment, error) {
	var p model.Payment
	var status string
	err := row.Scan(&p.ID, &p.ClientID, &p.AppointmentID, &p.AmountCents, &p.Currency,
		&status, &p.ExternalID, &p.IsDeposit, &p.CreatedAt)
	if err != nil {
		return model.Payment{}, mapErr(err)
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}

// RecordIntent stores a pending payment for a provider intent. A retried
// intent with the same external id returns the existing row.
func (r *Payments) RecordIntent(ctx context.Context, p model.Payment) (model.Payment, error) {
	if p.Currency == "" {
		p.Currency = "usd"
	}
	return scanPayment(r.pool.QueryRow(ctx, `
		INSERT INTO payments (client_id, appointment_id, amount_cents, currency, status, external_payment_id, is_deposit)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		ON CONFLICT (external_payment_id) DO UPDATE SET updated_at = now()
		RETURNING `+paymentColumns,
		nullIfEmpty(p.ClientID), p.AppointmentID, p.AmountCents, p.Currency, p.ExternalID, p.IsDeposit))
}

// ApplyProviderEvent records evt and moves the payment with externalID to
// status in one transaction. A redelivered event returns ErrDuplicate and
// changes nothing. Succeeded payments mark the appointment's deposit paid.
func (r *Payments) ApplyProviderEvent(ctx context.Context, evt ProviderEvent, externalID string, status model.PaymentStatus) (model.Payment, error) {
	var out model.Payment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING
		`, evt.Provider, evt.EventID, evt.EventType, evt.Payload)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrDuplicate
		}
		if externalID == "" {
			return nil
		}
		out, err = r.setStatus(ctx, tx, externalID, status)
		return err
	})
	return out, err
}

// MarkSucceeded settles a payment without a provider event, as the mock
// gateway does.
func (r *Payments) MarkSucceeded(ctx context.Context, externalID string) (model.Payment, error) {
	var out model.Payment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = r.setStatus(ctx, tx, externalID, model.PaymentSucceeded)
		return err
	})
	return out, err
}

func (r *Payments) setStatus(ctx context.Context, tx pgx.Tx, externalID string, status model.PaymentStatus) (model.Payment, error) {
	prev, err := scanPayment(tx.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE external_payment_id = $1 FOR UPDATE
	`, externalID))
	if err != nil {
		return model.Payment{}, err
	}
	// A settled payment never goes back.
	if prev.Status == model.PaymentSucceeded || prev.Status == status {
		return prev, nil
	}
	p, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+paymentColumns, prev.ID, string(status)))
	if err != nil {
		return model.Payment{}, err
	}
	if status != model.PaymentSucceeded {
		return p, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET deposit_paid = true, payment_reference = $2, updated_at = now()
		WHERE id = $1
	`, p.AppointmentID, p.ExternalID); err != nil {
		return model.Payment{}, err
	}
	appt, err := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, p.AppointmentID))
	if err != nil {
		return model.Payment{}, err
	}
	if r.outbox == nil {
		return model.Payment{}, errors.New("outbox repository not configured")
	}
	evt, err := outbox.NewEvent("payment", p.ID, outbox.TypePaymentSucceeded, outbox.PaymentPayload{
		PaymentID:     p.ID,
		AppointmentID: p.AppointmentID,
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		ExternalID:    p.ExternalID,
		ContactName:   appt.ContactName(),
		ContactEmail:  appt.ContactEmail(),
		ContactPhone:  appt.ContactPhone(),
	})
	if err != nil {
		return model.Payment{}, err
	}
	return p, r.outbox.Insert(ctx, tx, evt)
}

func (r *Payments) ListForAppointment(ctx context.Context, appointmentID string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE appointment_id = $1 ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
