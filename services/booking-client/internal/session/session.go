// Package session owns who is signed in: the user and bearer token pair, its
// persistence across restarts and the loading gate consumers wait on.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/md-rashed-zaman/barberbook/libs/kvstore"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/model"
)

const (
	UserKey  = "session.user"
	TokenKey = "session.token"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotAuthenticated     = errors.New("not authenticated")
)

type State int

const (
	Uninitialized State = iota
	Restoring
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is always handed out by value; user and token are both set or both empty.
type Session struct {
	User  model.User
	Token string
}

type Authenticator interface {
	CreateSession(ctx context.Context, email, password string) (model.User, string, error)
}

type Manager struct {
	store  kvstore.Store
	auth   Authenticator
	logger *slog.Logger

	mu      sync.RWMutex
	state   State
	current Session

	ready     chan struct{}
	readyOnce sync.Once
}

func NewManager(store kvstore.Store, auth Authenticator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		store:  store,
		auth:   auth,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// storedUser is the persisted shape of model.User.
type storedUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

func encodeUser(u model.User) (string, error) {
	raw, err := json.Marshal(storedUser{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeUser(raw string) (model.User, error) {
	var su storedUser
	if err := json.Unmarshal([]byte(raw), &su); err != nil {
		return model.User{}, err
	}
	if strings.TrimSpace(su.ID) == "" {
		return model.User{}, errors.New("stored user has no id")
	}
	return model.User{ID: su.ID, Name: su.Name, Email: su.Email, AvatarURL: su.AvatarURL}, nil
}

// Restore loads the persisted session once. Missing or malformed data is a
// normal startup state: the manager ends Anonymous and no error is returned.
// Later calls return the current session without touching storage; a call
// made while the first load is running waits for it, or for ctx.
func (m *Manager) Restore(ctx context.Context) (Session, bool) {
	m.mu.Lock()
	switch m.state {
	case Uninitialized:
	case Restoring:
		m.mu.Unlock()
		if err := m.WaitReady(ctx); err != nil {
			return Session{}, false
		}
		return m.Current()
	default:
		m.markReady()
		snap, ok := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ok
	}
	m.state = Restoring
	m.mu.Unlock()
	defer m.markReady()

	restored, reason := m.load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	// A sign-in or sign-out that finished while storage was being read wins.
	if m.state != Restoring {
		return m.snapshotLocked()
	}
	if reason != "" {
		m.logger.Debug("session restore skipped", "reason", reason)
		m.state = Anonymous
		m.current = Session{}
		return Session{}, false
	}
	m.state = Authenticated
	m.current = restored
	m.logger.Debug("session restored", "user_id", restored.User.ID)
	return restored, true
}

func (m *Manager) load(ctx context.Context) (Session, string) {
	values, err := m.store.MultiGet(ctx, UserKey, TokenKey)
	if err != nil {
		m.logger.Warn("session storage unreadable", "err", err)
		return Session{}, "storage error"
	}
	rawUser, rawToken := values[UserKey], values[TokenKey]
	if rawUser == "" || rawToken == "" {
		return Session{}, "missing keys"
	}
	user, err := decodeUser(rawUser)
	if err != nil {
		return Session{}, "malformed user: " + err.Error()
	}
	return Session{User: user, Token: rawToken}, ""
}

// SignIn exchanges credentials and persists both keys before the new session
// becomes visible. On any failure nothing is written and the state is unchanged.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, token, err := m.auth.CreateSession(ctx, email, password)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	encoded, err := encodeUser(user)
	if err != nil {
		return Session{}, fmt.Errorf("encode user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.MultiSet(ctx, map[string]string{
		UserKey:  encoded,
		TokenKey: token,
	}); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}
	m.current = Session{User: user, Token: token}
	m.state = Authenticated
	m.logger.Info("signed in", "user_id", user.ID)
	return m.current, nil
}

// SignOut is client-authoritative: the in-memory session is always cleared,
// even when removing the persisted keys fails. That failure is returned for
// reporting only.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID := m.current.User.ID
	m.current = Session{}
	m.state = Anonymous

	if err := m.store.MultiRemove(ctx, UserKey, TokenKey); err != nil {
		m.logger.Warn("failed to clear persisted session", "err", err)
		return fmt.Errorf("clear session storage: %w", err)
	}
	m.logger.Info("signed out", "user_id", userID)
	return nil
}

// UpdateUser replaces the user half of the session and re-persists it, so a
// restart shows the latest profile. The token is left as is.
func (m *Manager) UpdateUser(ctx context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Authenticated {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user id is required")
	}
	encoded, err := encodeUser(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := m.store.MultiSet(ctx, map[string]string{UserKey: encoded}); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	m.current.User = user
	return nil
}

func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() (Session, bool) {
	return m.current, m.state == Authenticated
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Token
}

// IsLoading is true until the restore attempt has finished.
func (m *Manager) IsLoading() bool {
	select {
	case <-m.ready:
		return false
	default:
		return true
	}
}

func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) markReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}
