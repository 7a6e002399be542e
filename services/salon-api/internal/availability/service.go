package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

// ErrUnavailable means the booked times or blackouts could not be loaded.
// Callers must not offer any slot in that case.
var ErrUnavailable = errors.New("availability unavailable")

// Source loads the inputs of Filter for one date.
type Source interface {
	BookedTimes(ctx context.Context, date string) ([]string, error)
	BlackoutsOn(ctx context.Context, date string) ([]model.BlackoutDate, error)
}

type Service struct {
	src Source
	loc *time.Location
	now func() time.Time
}

func NewService(src Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{src: src, loc: loc, now: time.Now}
}

// Location is the salon's time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Today returns the current salon-local date.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(model.DateLayout)
}

// Slots returns the open slots for date. Past dates have none; for today,
// slots that already started are dropped.
func (s *Service) Slots(ctx context.Context, date string) ([]string, error) {
	if _, err := model.ParseDate(date, s.loc); err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)
	today := now.Format(model.DateLayout)
	if date < today {
		return []string{}, nil
	}

	booked, err := s.src.BookedTimes(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: booked times: %v", ErrUnavailable, err)
	}
	blackouts, err := s.src.BlackoutsOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: blackouts: %v", ErrUnavailable, err)
	}

	slots := Filter(date, booked, blackouts)
	if date == today {
		nowMinute := now.Hour()*60 + now.Minute()
		upcoming := slots[:0]
		for _, slot := range slots {
			if model.ClockMinutes(slot) > nowMinute {
				upcoming = append(upcoming, slot)
			}
		}
		slots = upcoming
	}
	return slots, nil
}

// IsBookable reports whether clock is currently an open slot on date.
func (s *Service) IsBookable(ctx context.Context, date, clock string) (bool, error) {
	clock, err := model.NormalizeClock(clock)
	if err != nil || !IsCandidate(clock) {
		return false, nil
	}
	slots, err := s.Slots(ctx, date)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot == clock {
			return true, nil
		}
	}
	return false, nil
}
