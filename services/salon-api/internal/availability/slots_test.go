package availability

import (
	"reflect"
	"testing"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
)

const day = "2026-03-02"

func TestCandidateSlots(t *testing.T) {
	slots := CandidateSlots()
	if len(slots) != 20 {
		t.Fatalf("expected 20 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" || slots[1] != "09:30" || slots[19] != "18:30" {
		t.Fatalf("unexpected bounds %v", slots)
	}
	slots[0] = "mutated"
	if CandidateSlots()[0] != "09:00" {
		t.Fatal("CandidateSlots must return a fresh slice")
	}
}

func TestFilter_IdentityWithoutConstraints(t *testing.T) {
	if got := Filter(day, nil, nil); !reflect.DeepEqual(got, CandidateSlots()) {
		t.Fatalf("expected full candidate list, got %v", got)
	}
}

func TestFilter_ExcludesBooked(t *testing.T) {
	got := Filter(day, []string{"10:00"}, nil)
	if len(got) != 19 {
		t.Fatalf("expected 19 slots, got %d", len(got))
	}
	for _, s := range got {
		if s == "10:00" {
			t.Fatal("booked slot 10:00 returned")
		}
	}
}

func TestFilter_NormalizesBookedTimes(t *testing.T) {
	got := Filter(day, []string{"9:00", "09:30:00", "garbage"}, nil)
	if got[0] != "10:00" || len(got) != 18 {
		t.Fatalf("unnormalized booked times not excluded: %v", got)
	}
}

func TestFilter_AllDayBlackout(t *testing.T) {
	blackouts := []model.BlackoutDate{{StartDate: "2026-03-01", EndDate: "2026-03-03", AllDay: true}}
	got := Filter(day, nil, blackouts)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestFilter_PartialBlackoutHalfOpen(t *testing.T) {
	blackouts := []model.BlackoutDate{{StartDate: day, EndDate: day, StartTime: "12:00", EndTime: "13:30"}}
	got := Filter(day, nil, blackouts)
	for _, s := range got {
		if "12:00" <= s && s < "13:30" {
			t.Fatalf("slot %s inside blackout returned", s)
		}
	}
	if len(got) != 17 {
		t.Fatalf("expected 17 slots, got %d: %v", len(got), got)
	}
	found := false
	for _, s := range got {
		if s == "13:30" {
			found = true
		}
	}
	if !found {
		t.Fatal("end of blackout window is exclusive; 13:30 should stay bookable")
	}
}

func TestFilter_IgnoresBlackoutsOutsideDate(t *testing.T) {
	blackouts := []model.BlackoutDate{{StartDate: "2026-03-03", EndDate: "2026-03-04", AllDay: true}}
	if got := Filter(day, nil, blackouts); len(got) != 20 {
		t.Fatalf("blackout on another date applied: %v", got)
	}
}

func TestFilter_MalformedPartialBlackoutFailsClosed(t *testing.T) {
	blackouts := []model.BlackoutDate{{StartDate: day, EndDate: day, StartTime: "", EndTime: "12:00"}}
	if got := Filter(day, nil, blackouts); len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	booked := []string{"10:00", "15:30"}
	blackouts := []model.BlackoutDate{{StartDate: day, StartTime: "17:00", EndTime: "18:00"}}
	first := Filter(day, booked, blackouts)
	second := Filter(day, booked, blackouts)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("filter not idempotent: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(Filter(day, first, nil), []string{"10:00", "15:30", "17:00", "17:30"}) {
		t.Fatalf("unexpected complement %v", Filter(day, first, nil))
	}
}

func TestIsCandidate(t *testing.T) {
	for _, s := range []string{"09:00", "13:30", "18:30"} {
		if !IsCandidate(s) {
			t.Fatalf("%s should be a candidate", s)
		}
	}
	for _, s := range []string{"08:30", "09:15", "19:00", "9:00", ""} {
		if IsCandidate(s) {
			t.Fatalf("%s should not be a candidate", s)
		}
	}
}
