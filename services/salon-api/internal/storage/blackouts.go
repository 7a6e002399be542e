package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

type Blackouts struct {
	pool *db.Pool
}

func NewBlackouts(pool *db.Pool) *Blackouts {
	return &Blackouts{pool: pool}
}

const blackoutColumns = `id::text, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), all_day,
	COALESCE(start_time, ''), COALESCE(end_time, ''), reason, created_at`

func scanBlackouts(rows pgx.Rows) ([]model.BlackoutDate, error) {
	defer rows.Close()
	var out []model.BlackoutDate
	for rows.Next() {
		var b model.BlackoutDate
		if err := rows.Scan(&b.ID, &b.StartDate, &b.EndDate, &b.AllDay, &b.StartTime, &b.EndTime, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BlackoutsOn returns every blackout whose range contains date.
func (r *Blackouts) BlackoutsOn(ctx context.Context, date string) ([]model.BlackoutDate, error) {
	d, err := dateParam(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_dates
		WHERE start_date <= $1 AND end_date >= $1
		ORDER BY start_date, start_time NULLS FIRST
	`, d)
	if err != nil {
		return nil, err
	}
	return scanBlackouts(rows)
}

// List returns blackouts ending on or after from; an empty from lists all.
func (r *Blackouts) List(ctx context.Context, from string) ([]model.BlackoutDate, error) {
	var arg any
	if from != "" {
		d, err := dateParam(from)
		if err != nil {
			return nil, err
		}
		arg = d
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_dates
		WHERE $1::date IS NULL OR end_date >= $1::date
		ORDER BY start_date
	`, arg)
	if err != nil {
		return nil, err
	}
	return scanBlackouts(rows)
}

func (r *Blackouts) Create(ctx context.Context, b model.BlackoutDate) (model.BlackoutDate, error) {
	start, err := dateParam(b.StartDate)
	if err != nil {
		return model.BlackoutDate{}, err
	}
	end, err := dateParam(b.EndDate)
	if err != nil {
		return model.BlackoutDate{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO blackout_dates (start_date, end_date, all_day, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at
	`, start, end, b.AllDay, nullIfEmpty(b.StartTime), nullIfEmpty(b.EndTime), b.Reason).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return model.BlackoutDate{}, mapErr(err)
	}
	return b, nil
}

func (r *Blackouts) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blackout_dates WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AvailabilitySource answers the availability engine from Postgres.
type AvailabilitySource struct {
	*Appointments
	*Blackouts
}
