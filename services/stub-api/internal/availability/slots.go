package availability

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Hour is one bookable hour of a provider's day.
type Hour struct {
	Hour      int  `json:"hour"`
	Available bool `json:"available"`
}

// AvailableSlots returns slot start times within [windowStart, windowEnd) where a booking of
// length duration would not overlap any of the busy intervals. Starts before now are skipped.
//
// All times are expected to be in the same location (timezone).
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// DayHours lists every hour in [openHour, closeHour) of day, in order. An
// hour is available when it has not started yet and nothing busy overlaps it.
func DayHours(day time.Time, openHour, closeHour int, busy []Interval, now time.Time) []Hour {
	if closeHour <= openHour {
		return []Hour{}
	}
	y, m, d := day.Date()
	open := time.Date(y, m, d, openHour, 0, 0, 0, day.Location())
	closing := time.Date(y, m, d, closeHour, 0, 0, 0, day.Location())

	free := map[int]bool{}
	for _, s := range AvailableSlots(open, closing, time.Hour, time.Hour, busy, now) {
		free[s.Hour()] = true
	}

	out := make([]Hour, 0, closeHour-openHour)
	for h := openHour; h < closeHour; h++ {
		out = append(out, Hour{Hour: h, Available: free[h]})
	}
	return out
}
