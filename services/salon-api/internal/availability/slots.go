package availability

import (
	"fmt"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

const (
	OpeningMinute  = 9 * 60
	LastSlotMinute = 18*60 + 30
	StepMinutes    = 30
)

// CandidateSlots returns every bookable start time of a day, "09:00"
// through "18:30" in 30 minute steps. The result is a fresh slice.
func CandidateSlots() []string {
	slots := make([]string, 0, (LastSlotMinute-OpeningMinute)/StepMinutes+1)
	for m := OpeningMinute; m <= LastSlotMinute; m += StepMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// IsCandidate reports whether clock (already normalized) is one of the
// daily candidate slots.
func IsCandidate(clock string) bool {
	if len(clock) != 5 {
		return false
	}
	m := model.ClockMinutes(clock)
	return m >= OpeningMinute && m <= LastSlotMinute && (m-OpeningMinute)%StepMinutes == 0
}

// Filter removes booked slots and slots excluded by blackouts covering date
// from the candidate list. Booked times are normalized before matching so
// "9:00" and "09:00:00" both block "09:00". An all-day blackout clears the
// day; a partial one removes slots in [start, end). A partial blackout whose
// times cannot be parsed is treated as all-day.
func Filter(date string, booked []string, blackouts []model.BlackoutDate) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		if clock, err := model.NormalizeClock(b); err == nil {
			taken[clock] = struct{}{}
		}
	}

	type window struct{ start, end string }
	var windows []window
	for _, b := range blackouts {
		if !b.Covers(date) {
			continue
		}
		if b.AllDay {
			return []string{}
		}
		start, errS := model.NormalizeClock(b.StartTime)
		end, errE := model.NormalizeClock(b.EndTime)
		if errS != nil || errE != nil {
			return []string{}
		}
		windows = append(windows, window{start: start, end: end})
	}

	out := make([]string, 0, LastSlotMinute/StepMinutes)
	for _, slot := range CandidateSlots() {
		if _, ok := taken[slot]; ok {
			continue
		}
		blocked := false
		for _, w := range windows {
			if w.start <= slot && slot < w.end {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, slot)
		}
	}
	return out
}
