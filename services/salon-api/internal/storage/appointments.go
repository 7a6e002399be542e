package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/outbox"
)

type Appointments struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointments(pool *db.Pool, outboxRepo *outbox.Repository) *Appointments {
	return &Appointments{pool: pool, outbox: outboxRepo}
}

const appointmentSelect = `
	SELECT a.id::text, COALESCE(a.client_id::text, ''), COALESCE(a.guest_name, ''), COALESCE(a.guest_phone, ''),
		COALESCE(a.guest_email, ''), a.service_id::text, to_char(a.appointment_date, 'YYYY-MM-DD'), a.appointment_time,
		a.status, a.notes, a.deposit_paid, COALESCE(a.payment_reference, ''), a.created_at,
		COALESCE(p.full_name, ''), COALESCE(p.email, ''), COALESCE(p.phone, ''), s.name
	FROM appointments a
	JOIN services s ON s.id = a.service_id
	LEFT JOIN profiles p ON p.id = a.client_id`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	err := row.Scan(&a.ID, &a.ClientID, &a.GuestName, &a.GuestPhone, &a.GuestEmail, &a.ServiceID, &a.Date, &a.Time,
		&status, &a.Notes, &a.DepositPaid, &a.PaymentRef, &a.CreatedAt,
		&a.ClientName, &a.ClientEmail, &a.ClientPhone, &a.ServiceName)
	if err != nil {
		return model.Appointment{}, mapErr(err)
	}
	a.Status = model.Status(status)
	return a, nil
}

// BookedTimes lists the times on date held by pending or confirmed bookings.
func (r *Appointments) BookedTimes(ctx context.Context, date string) ([]string, error) {
	d, err := dateParam(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE appointment_date = $1 AND status IN ('pending', 'confirmed')
		ORDER BY appointment_time
	`, d)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create books a in one transaction with its appointment.created event.
// With a non-empty idempotencyKey a repeated call from the same request
// returns the appointment from the first call and replayed=true. A key
// reused for a different caller or booking yields ErrIdempotencyMismatch.
func (r *Appointments) Create(ctx context.Context, a model.Appointment, idempotencyKey string) (created model.Appointment, replayed bool, err error) {
	d, err := dateParam(a.Date)
	if err != nil {
		return model.Appointment{}, false, err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		existingID, err := lockIdempotencyKey(ctx, tx, idempotencyKey, a.RequestHash())
		if err != nil {
			return model.Appointment{}, false, err
		}
		if existingID != "" {
			appt, err := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, existingID))
			if err != nil {
				return model.Appointment{}, false, err
			}
			return appt, true, tx.Commit(ctx)
		}
	}

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(client_id, guest_name, guest_phone, guest_email, service_id, appointment_date, appointment_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, nullIfEmpty(a.ClientID), nullIfEmpty(a.GuestName), nullIfEmpty(a.GuestPhone), nullIfEmpty(a.GuestEmail),
		a.ServiceID, d, a.Time, string(model.StatusPending), a.Notes).Scan(&id)
	if err != nil {
		return model.Appointment{}, false, mapErr(err)
	}

	created, err = scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return model.Appointment{}, false, err
	}
	if err := r.insertEvent(ctx, tx, outbox.TypeAppointmentCreated, created, ""); err != nil {
		return model.Appointment{}, false, err
	}
	if idempotencyKey != "" {
		if _, err := tx.Exec(ctx, `
			UPDATE appointment_idempotency_keys SET appointment_id = $2 WHERE idempotency_key = $1
		`, idempotencyKey, id); err != nil {
			return model.Appointment{}, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, false, mapErr(err)
	}
	return created, false, nil
}

// lockIdempotencyKey claims key for this transaction, waiting on concurrent
// holders. It returns the appointment id recorded by an earlier commit of
// the same request.
func lockIdempotencyKey(ctx context.Context, tx pgx.Tx, key, hash string) (string, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment_idempotency_keys (idempotency_key, request_hash)
		VALUES ($1, $2)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key, hash); err != nil {
		return "", err
	}
	var id, stored string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(appointment_id::text, ''), request_hash
		FROM appointment_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&id, &stored)
	if err != nil {
		return "", err
	}
	if stored != "" && stored != hash {
		return "", ErrIdempotencyMismatch
	}
	return id, nil
}

// LookupIdempotent finds the appointment an earlier request booked under
// key without claiming it. found is false for an unseen key.
func (r *Appointments) LookupIdempotent(ctx context.Context, key, hash string) (appt model.Appointment, found bool, err error) {
	var id, stored string
	err = r.pool.QueryRow(ctx, `
		SELECT appointment_id::text, request_hash
		FROM appointment_idempotency_keys
		WHERE idempotency_key = $1 AND appointment_id IS NOT NULL
	`, strings.TrimSpace(key)).Scan(&id, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	if stored != "" && stored != hash {
		return model.Appointment{}, false, ErrIdempotencyMismatch
	}
	appt, err = r.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, false, mapErr(err)
	}
	return appt, true, nil
}

func (r *Appointments) Get(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
}

type AppointmentFilter struct {
	ClientID string
	Date     string
	From     string
	Status   model.Status
	Limit    int
}

func (r *Appointments) List(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.ClientID != "" {
		add("a.client_id = ?", f.ClientID)
	}
	if f.Date != "" {
		d, err := dateParam(f.Date)
		if err != nil {
			return nil, err
		}
		add("a.appointment_date = ?", d)
	}
	if f.From != "" {
		d, err := dateParam(f.From)
		if err != nil {
			return nil, err
		}
		add("a.appointment_date >= ?", d)
	}
	if f.Status != "" {
		add("a.status = ?", string(f.Status))
	}
	args = append(args, clampLimit(f.Limit, 100, 500))

	query := appointmentSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.appointment_date DESC, a.appointment_time DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transition moves the appointment to status `to` under a row lock. guard,
// when set, sees the locked row first and may veto the change. Moving to the
// current status is a no-op that returns the row unchanged.
func (r *Appointments) Transition(ctx context.Context, id string, to model.Status, guard func(model.Appointment) error) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT 1 FROM appointments WHERE id = $1 FOR UPDATE`, id); err != nil {
		return model.Appointment{}, mapErr(err)
	}
	current, err := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return model.Appointment{}, err
	}
	if guard != nil {
		if err := guard(current); err != nil {
			return model.Appointment{}, err
		}
	}
	if current.Status == to {
		return current, tx.Commit(ctx)
	}
	if !current.Status.CanTransition(to) {
		return model.Appointment{}, model.ErrInvalidTransition
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(to)); err != nil {
		return model.Appointment{}, mapErr(err)
	}
	previous := current.Status
	current.Status = to
	if err := r.insertEvent(ctx, tx, outbox.TypeAppointmentStatusChanged, current, previous); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, mapErr(err)
	}
	return current, nil
}

func (r *Appointments) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Appointments) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, a model.Appointment, previous model.Status) error {
	return insertAppointmentEvent(ctx, tx, r.outbox, eventType, a, previous)
}

func insertAppointmentEvent(ctx context.Context, tx pgx.Tx, repo *outbox.Repository, eventType string, a model.Appointment, previous model.Status) error {
	if repo == nil {
		return errors.New("outbox repository not configured")
	}
	evt, err := outbox.NewEvent("appointment", a.ID, eventType, outbox.AppointmentPayload{
		AppointmentID:  a.ID,
		ServiceID:      a.ServiceID,
		ServiceName:    a.ServiceName,
		Date:           a.Date,
		Time:           a.Time,
		Status:         string(a.Status),
		PreviousStatus: string(previous),
		ContactName:    a.ContactName(),
		ContactEmail:   a.ContactEmail(),
		ContactPhone:   a.ContactPhone(),
		Guest:          a.IsGuest(),
	})
	if err != nil {
		return err
	}
	return repo.Insert(ctx, tx, evt)
}
