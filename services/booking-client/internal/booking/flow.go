// Package booking drives appointment creation: picking a provider, a day and
// an available hour, then submitting it.
package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/model"
)

// NoHour means no hour is selected.
const NoHour = -1

var (
	ErrNoProvider      = errors.New("no provider selected")
	ErrNoHour          = errors.New("no hour selected")
	ErrUnknownHour     = errors.New("hour is not in the loaded availability")
	ErrHourUnavailable = errors.New("hour is not available")
	// ErrStaleAvailability is returned when the selection changed while a load was in flight.
	ErrStaleAvailability = errors.New("selection changed during availability load")
)

type API interface {
	DayAvailability(ctx context.Context, q model.DayAvailabilityQuery) ([]model.DayAvailability, error)
	CreateAppointment(ctx context.Context, providerID string, date time.Time) error
}

type Selection struct {
	ProviderID string
	Date       time.Time
	Hour       int
}

type Slots struct {
	Morning   []availability.SelectableSlot
	Afternoon []availability.SelectableSlot
}

// Flow holds the selection state of one appointment being created. It is
// safe for concurrent use.
type Flow struct {
	api    API
	logger *slog.Logger

	mu        sync.Mutex
	sel       Selection
	gen       uint64
	loaded    bool
	morning   []availability.Slot
	afternoon []availability.Slot
}

// NewFlow starts with providerID preselected and date as the chosen day.
func NewFlow(client API, providerID string, date time.Time, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Flow{
		api:    client,
		logger: logger,
		sel:    Selection{ProviderID: providerID, Date: date, Hour: NoHour},
	}
}

func (f *Flow) Selection() Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sel
}

// SelectProvider changes the provider, clearing the hour and loaded slots.
func (f *Flow) SelectProvider(providerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if providerID == f.sel.ProviderID {
		return
	}
	f.sel.ProviderID = providerID
	f.resetLocked()
}

// SelectDate changes the day, clearing the hour and loaded slots.
func (f *Flow) SelectDate(date time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sameDay(date, f.sel.Date) {
		return
	}
	f.sel.Date = date
	f.resetLocked()
}

func (f *Flow) resetLocked() {
	f.sel.Hour = NoHour
	f.gen++
	f.loaded = false
	f.morning, f.afternoon = nil, nil
}

// LoadAvailability fetches the hours for the current provider and day. A
// result that arrives after the selection moved on is dropped.
func (f *Flow) LoadAvailability(ctx context.Context) error {
	f.mu.Lock()
	sel, gen := f.sel, f.gen
	f.mu.Unlock()

	if sel.ProviderID == "" {
		return ErrNoProvider
	}
	records, err := f.api.DayAvailability(ctx, model.QueryFor(sel.ProviderID, sel.Date))
	if err != nil {
		return err
	}
	morning, afternoon := availability.Derive(records)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		f.logger.Debug("dropping stale availability", "provider_id", sel.ProviderID)
		return ErrStaleAvailability
	}
	f.morning, f.afternoon = morning, afternoon
	f.loaded = true
	if f.sel.Hour != NoHour {
		if s, ok := f.findLocked(f.sel.Hour); !ok || !s.Available {
			f.sel.Hour = NoHour
		}
	}
	return nil
}

// SelectHour accepts only hours present and available in the loaded list.
func (f *Flow) SelectHour(hour int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.findLocked(hour)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHour, availability.Label(hour))
	}
	if !s.Available {
		return fmt.Errorf("%w: %s", ErrHourUnavailable, s.Label)
	}
	f.sel.Hour = hour
	return nil
}

func (f *Flow) findLocked(hour int) (availability.Slot, bool) {
	if s, ok := availability.Find(f.morning, hour); ok {
		return s, true
	}
	return availability.Find(f.afternoon, hour)
}

// Slots returns the loaded morning and afternoon lists with the current
// selection marked.
func (f *Flow) Slots() Slots {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Slots{
		Morning:   availability.WithSelection(f.morning, f.sel.Hour),
		Afternoon: availability.WithSelection(f.afternoon, f.sel.Hour),
	}
}

// AppointmentTime is the selected day at hour:00 in the day's location.
func (s Selection) AppointmentTime() time.Time {
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, s.Hour, 0, 0, 0, s.Date.Location())
}

// Create submits the appointment and returns its start time.
func (f *Flow) Create(ctx context.Context) (time.Time, error) {
	sel := f.Selection()
	if sel.ProviderID == "" {
		return time.Time{}, ErrNoProvider
	}
	if sel.Hour == NoHour {
		return time.Time{}, ErrNoHour
	}
	at := sel.AppointmentTime()
	if err := f.api.CreateAppointment(ctx, sel.ProviderID, at); err != nil {
		return time.Time{}, err
	}
	f.logger.Info("appointment created", "provider_id", sel.ProviderID, "date", at.Format(time.RFC3339))
	return at, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
