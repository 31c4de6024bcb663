package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/auth"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/session"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/validation"
)

// fakeAPI is a minimal booking API that accepts a@b.com/secret1.
type fakeAPI struct {
	mu           sync.Mutex
	token        string
	appointments []map[string]any
	authHeaders  []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@b.com" || req.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Incorrect email/password combination."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":  map[string]string{"id": "u1", "name": "Ana", "email": "a@b.com"},
			"token": f.token,
		})
	})
	mux.HandleFunc("GET /providers", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Carlos"}]`))
	})
	mux.HandleFunc("GET /providers/{id}/day-availability", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = w.Write([]byte(`[{"hour":9,"available":true},{"hour":10,"available":false},{"hour":14,"available":true}]`))
	})
	mux.HandleFunc("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.appointments = append(f.appointments, body)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	return mux
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
}

type env struct {
	api   *fakeAPI
	store string
}

func setup(t *testing.T, token string) *env {
	t.Helper()
	fa := &fakeAPI{token: token}
	srv := httptest.NewServer(fa.handler())
	t.Cleanup(srv.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("BARBERBOOK_API_URL", srv.URL)
	store := filepath.Join(t.TempDir(), "session.json")
	t.Setenv("BARBERBOOK_STORE", store)
	return &env{api: fa, store: store}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runState(t, args...)
	return out, err
}

func runState(t *testing.T, args ...string) (string, *rootState, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root, st := newRoot(&out, &errOut)
	root.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := execute(ctx, root, st)
	return out.String(), st, err
}

func TestSignInPersistsAcrossInvocations(t *testing.T) {
	setup(t, "tok-abc")

	out, err := run(t, "whoami")
	if err != nil || !strings.Contains(out, "Nenhuma sessão ativa") {
		t.Fatalf("expected no session, got %q %v", out, err)
	}

	out, err = run(t, "signin", "--email", "a@b.com", "--password", "secret1")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if !strings.Contains(out, "Bem-vindo, Ana") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, "whoami")
	if err != nil || !strings.Contains(out, "Ana <a@b.com> (u1)") {
		t.Fatalf("expected restored session, got %q %v", out, err)
	}
	if strings.Contains(out, "expira") {
		t.Fatalf("opaque token has no expiry to show: %q", out)
	}

	if _, err := run(t, "signout"); err != nil {
		t.Fatalf("signout failed: %v", err)
	}
	out, _ = run(t, "whoami")
	if !strings.Contains(out, "Nenhuma sessão ativa") {
		t.Fatalf("expected session cleared, got %q", out)
	}
}

func TestWhoAmIShowsJWTExpiry(t *testing.T) {
	token, err := auth.SignHS256(auth.Claims{Sub: "u1", Exp: time.Now().Add(time.Hour).Unix()}, "k")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	setup(t, token)
	if _, err := run(t, "signin", "--email", "a@b.com", "--password", "secret1"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	out, _ := run(t, "whoami")
	if !strings.Contains(out, "token expira em:") {
		t.Fatalf("expected expiry line, got %q", out)
	}
}

func TestSignInFailure(t *testing.T) {
	setup(t, "tok-abc")
	_, err := run(t, "signin", "--email", "a@b.com", "--password", "wrong")
	var n *Notice
	if !errors.As(err, &n) || n.Title != "Erro na autenticação" {
		t.Fatalf("expected auth notice, got %v", err)
	}
	if !errors.Is(err, session.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed in chain, got %v", err)
	}
}

func TestBookRequiresSession(t *testing.T) {
	setup(t, "tok-abc")
	_, err := run(t, "book", "--provider", "p1", "--date", "2031-03-10", "--hour", "14")
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestBookSendsBearerAndConfirms(t *testing.T) {
	e := setup(t, "tok-abc")
	if _, err := run(t, "signin", "--email", "a@b.com", "--password", "secret1"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}

	out, err := run(t, "availability", "--provider", "p1", "--date", "2031-03-10")
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if !strings.Contains(out, "Manhã: 09:00  10:00 (ocupado)") || !strings.Contains(out, "Tarde: 14:00") {
		t.Fatalf("unexpected availability output %q", out)
	}

	if _, err := run(t, "book", "--provider", "p1", "--date", "2031-03-10", "--hour", "10"); err == nil {
		t.Fatal("booking an unavailable hour should fail")
	}

	out, err = run(t, "book", "--provider", "p1", "--date", "2031-03-10", "--hour", "14")
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}
	if !strings.Contains(out, "segunda-feira, dia 10 de março de 2031 às 14:00") {
		t.Fatalf("unexpected confirmation %q", out)
	}

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	if len(e.api.appointments) != 1 || e.api.appointments[0]["provider_id"] != "p1" {
		t.Fatalf("unexpected appointments %+v", e.api.appointments)
	}
	for _, h := range e.api.authHeaders {
		if h != "Bearer tok-abc" {
			t.Fatalf("expected bearer header on every call, got %q", h)
		}
	}
}

func TestProvidersListsBlurb(t *testing.T) {
	setup(t, "tok-abc")
	if _, err := run(t, "signin", "--email", "a@b.com", "--password", "secret1"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	out, err := run(t, "dashboard")
	if err != nil {
		t.Fatalf("providers failed: %v", err)
	}
	if !strings.Contains(out, "Carlos") || !strings.Contains(out, "Segunda à sexta") || !strings.Contains(out, "8h às 18h") {
		t.Fatalf("unexpected providers output %q", out)
	}
}

func TestSignUpValidationError(t *testing.T) {
	setup(t, "tok-abc")
	_, err := run(t, "signup", "--email", "not-an-email", "--password", "123")
	var verr *validation.Error
	if !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Fatalf("expected three field errors, got %v", err)
	}
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	setup(t, "tok-abc")
	t.Setenv("BARBERBOOK_TIMEOUT", "3s")
	cmd, _ := newRoot(&bytes.Buffer{}, &bytes.Buffer{})
	cfg, err := loadConfig(cmd.PersistentFlags())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.Timeout != 3*time.Second || cfg.OTelEnabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !strings.HasPrefix(cfg.APIURL, "http://127.0.0.1") {
		t.Fatalf("api url should come from env, got %q", cfg.APIURL)
	}

	_ = cmd.PersistentFlags().Set("log-level", "debug")
	cfg, _ = loadConfig(cmd.PersistentFlags())
	if cfg.LogLevel != "debug" {
		t.Fatalf("flag should override default, got %q", cfg.LogLevel)
	}
}

func TestAppClosedAfterFailingCommand(t *testing.T) {
	setup(t, "tok-abc")
	_, st, err := runState(t, "signin", "--email", "a@b.com", "--password", "wrong")
	if err == nil {
		t.Fatal("expected signin to fail")
	}
	if st.app == nil || !st.app.closed {
		t.Fatal("app must be closed after a failed command")
	}

	_, st, err = runState(t, "whoami")
	if err != nil || !st.app.closed {
		t.Fatalf("app must be closed after a successful command, err=%v", err)
	}
}

func TestWhoAmIShowsExpiredToken(t *testing.T) {
	token, err := auth.SignHS256(auth.Claims{Sub: "u1", Exp: time.Now().Add(-time.Hour).Unix()}, "k")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	setup(t, token)
	if _, err := run(t, "signin", "--email", "a@b.com", "--password", "secret1"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	out, _ := run(t, "whoami")
	if !strings.Contains(out, "token expirou em:") {
		t.Fatalf("expected expired line, got %q", out)
	}
}
