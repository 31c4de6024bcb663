package availability

import (
	"testing"
	"time"
)

func TestAvailableSlots_Basic(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, loc)
	windowStart := time.Date(2026, 1, 28, 9, 0, 0, 0, loc)
	windowEnd := time.Date(2026, 1, 28, 10, 0, 0, 0, loc)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestAvailableSlots_InvalidWindow(t *testing.T) {
	day := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	if got := AvailableSlots(day, day, time.Hour, time.Hour, nil, day); got != nil {
		t.Fatalf("expected no slots for empty window, got %v", got)
	}
	if got := AvailableSlots(day, day.Add(time.Hour), 0, time.Hour, nil, day); got != nil {
		t.Fatalf("expected no slots for zero duration, got %v", got)
	}
}

func TestDayHours_BookedAndPast(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, loc)
	busy := []Interval{{Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour)}}
	now := day.Add(9*time.Hour + 30*time.Minute)

	hours := DayHours(day, 8, 18, busy, now)
	if len(hours) != 10 {
		t.Fatalf("expected 10 hours, got %d", len(hours))
	}
	for _, h := range hours {
		want := h.Hour >= 10 && h.Hour != 14
		if h.Available != want {
			t.Fatalf("hour %d: expected available=%v", h.Hour, want)
		}
	}
	if hours[0].Hour != 8 || hours[9].Hour != 17 {
		t.Fatalf("unexpected range %d..%d", hours[0].Hour, hours[9].Hour)
	}
}

func TestDayHours_EmptyRange(t *testing.T) {
	hours := DayHours(time.Now(), 18, 8, nil, time.Now())
	if hours == nil || len(hours) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", hours)
	}
}
