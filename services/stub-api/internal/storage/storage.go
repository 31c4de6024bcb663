// Package storage keeps the stub API's users, appointments and uploaded files
// in memory.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/availability"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
	ErrSlotTaken  = errors.New("slot already booked")
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
}

type Appointment struct {
	ID         string
	ProviderID string
	UserID     string
	Date       time.Time
	CreatedAt  time.Time
}

type File struct {
	ContentType string
	Content     []byte
}

// Memory is safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]User
	byEmail      map[string]string
	appointments []Appointment
	files        map[string]File
}

func NewMemory() *Memory {
	return &Memory{
		users:   map[string]User{},
		byEmail: map[string]string{},
		files:   map[string]File{},
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Memory) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := emailKey(u.Email)
	if _, ok := m.byEmail[key]; ok {
		return User{}, ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	m.byEmail[key] = u.ID
	return u, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[emailKey(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) GetByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// UpdateUser replaces a stored user, keeping the email index in step.
func (m *Memory) UpdateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	oldKey, newKey := emailKey(old.Email), emailKey(u.Email)
	if oldKey != newKey {
		if _, taken := m.byEmail[newKey]; taken {
			return ErrEmailTaken
		}
		delete(m.byEmail, oldKey)
		m.byEmail[newKey] = u.ID
	}
	m.users[u.ID] = u
	return nil
}

// ListProviders returns every user except exceptID, ordered by name.
func (m *Memory) ListProviders(_ context.Context, exceptID string) []User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for id, u := range m.users {
		if id != exceptID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CreateAppointment books one hour starting at a.Date.
func (m *Memory) CreateAppointment(_ context.Context, a Appointment) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.appointments {
		if existing.ProviderID == a.ProviderID && existing.Date.Equal(a.Date) {
			return Appointment{}, ErrSlotTaken
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.appointments = append(m.appointments, a)
	return a, nil
}

// BusyIntervals returns the provider's booked hours overlapping [from, to).
func (m *Memory) BusyIntervals(_ context.Context, providerID string, from, to time.Time) []availability.Interval {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []availability.Interval
	for _, a := range m.appointments {
		end := a.Date.Add(time.Hour)
		if a.ProviderID == providerID && a.Date.Before(to) && from.Before(end) {
			out = append(out, availability.Interval{Start: a.Date, End: end})
		}
	}
	return out
}

func (m *Memory) PutFile(_ context.Context, name string, f File) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = f
}

func (m *Memory) GetFile(_ context.Context, name string) (File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[name]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}
