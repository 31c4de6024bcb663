// Package availability turns a provider's hourly day availability into the
// morning and afternoon lists shown when picking an appointment time.
package availability

import (
	"fmt"

	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/model"
)

// Noon splits the day: hours before it are morning.
const Noon = 12

type Slot struct {
	Hour      int
	Available bool
	Label     string
}

// SelectableSlot is a Slot annotated with whether it matches the current pick.
type SelectableSlot struct {
	Slot
	Selected bool
}

// Label formats an hour as a zero-padded "HH:00". It does not depend on
// locale or timezone.
func Label(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// Derive partitions records into morning (hour < 12) and afternoon slots,
// keeping input order in each. Hours are not validated: negative hours land
// in the morning and hours past 23 in the afternoon. Both results are
// non-nil.
func Derive(records []model.DayAvailability) (morning, afternoon []Slot) {
	morning = make([]Slot, 0, len(records))
	afternoon = make([]Slot, 0, len(records))
	for _, r := range records {
		s := Slot{Hour: r.Hour, Available: r.Available, Label: Label(r.Hour)}
		if r.Hour < Noon {
			morning = append(morning, s)
		} else {
			afternoon = append(afternoon, s)
		}
	}
	return morning, afternoon
}

// WithSelection marks the slot whose hour equals selectedHour. The input is
// not modified; the selection is never stored on a Slot.
func WithSelection(slots []Slot, selectedHour int) []SelectableSlot {
	out := make([]SelectableSlot, len(slots))
	for i, s := range slots {
		out[i] = SelectableSlot{Slot: s, Selected: s.Hour == selectedHour}
	}
	return out
}

// Find returns the first slot for hour.
func Find(slots []Slot, hour int) (Slot, bool) {
	for _, s := range slots {
		if s.Hour == hour {
			return s, true
		}
	}
	return Slot{}, false
}

func Contains(slots []Slot, hour int) bool {
	_, ok := Find(slots, hour)
	return ok
}
