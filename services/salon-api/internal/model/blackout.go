package model

import (
	"errors"
	"strings"
	"time"
)

// BlackoutDate closes the salon for whole days, or for [StartTime, EndTime)
// on each day of the range when AllDay is false.
type BlackoutDate struct {
	ID        string    `json:"id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	AllDay    bool      `json:"all_day"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Covers reports whether date falls within the blackout's date range.
// A missing end date means the blackout lasts one day.
func (b BlackoutDate) Covers(date string) bool {
	end := b.EndDate
	if end == "" {
		end = b.StartDate
	}
	return b.StartDate <= date && date <= end
}

func (b *BlackoutDate) Normalize() error {
	b.StartDate = strings.TrimSpace(b.StartDate)
	b.EndDate = strings.TrimSpace(b.EndDate)
	b.Reason = strings.TrimSpace(b.Reason)
	start, err := ParseDate(b.StartDate, nil)
	if err != nil {
		return errors.New("start_date must be YYYY-MM-DD")
	}
	if b.EndDate == "" {
		b.EndDate = b.StartDate
	}
	end, err := ParseDate(b.EndDate, nil)
	if err != nil {
		return errors.New("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return errors.New("end_date must not be before start_date")
	}
	if b.AllDay {
		b.StartTime, b.EndTime = "", ""
		return nil
	}
	if b.StartTime, err = NormalizeClock(b.StartTime); err != nil {
		return errors.New("start_time must be HH:MM for partial-day blackouts")
	}
	if b.EndTime, err = NormalizeClock(b.EndTime); err != nil {
		return errors.New("end_time must be HH:MM for partial-day blackouts")
	}
	if b.EndTime <= b.StartTime {
		return errors.New("end_time must be after start_time")
	}
	return nil
}
