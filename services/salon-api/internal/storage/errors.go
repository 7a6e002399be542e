package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrSlotTaken = errors.New("time slot already booked")
	ErrDuplicate = errors.New("already exists")
	ErrInUse     = errors.New("still referenced")

	ErrIdempotencyMismatch = errors.New("idempotency key reused with a different request")
)

const activeSlotConstraint = "appointments_active_slot_key"

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// mapErr turns driver errors into the package's sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.HasCode(err, db.CodeUniqueViolation) && db.ConstraintName(err) == activeSlotConstraint:
		return ErrSlotTaken
	case db.HasCode(err, db.CodeUniqueViolation):
		return ErrDuplicate
	case db.HasCode(err, db.CodeForeignKey):
		return ErrInUse
	}
	return err
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// dateParam converts a YYYY-MM-DD string into a value bound to DATE columns.
func dateParam(s string) (time.Time, error) {
	return model.ParseDate(s, time.UTC)
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
