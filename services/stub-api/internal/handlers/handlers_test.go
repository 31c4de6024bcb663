package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/storage"
)

const testSecret = "test-secret"

// now is far enough ahead that issued tokens are still valid against the wall clock.
var now = time.Date(2031, time.March, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	srv   *httptest.Server
	store *storage.Memory
}

func newFixture(t *testing.T, limiter *httpx.RateLimiter) *fixture {
	return newFixtureIn(t, limiter, time.UTC)
}

func newFixtureIn(t *testing.T, limiter *httpx.RateLimiter, loc *time.Location) *fixture {
	t.Helper()
	store := storage.NewMemory()
	h := New(store, Options{
		Secret:         testSecret,
		PublicURL:      "http://files.test",
		Location:       loc,
		SessionLimiter: limiter,
	})
	h.now = func() time.Time { return now }
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, raw
}

func (f *fixture) signUpAndIn(t *testing.T, name, email string) (userResponse, string) {
	t.Helper()
	resp, raw := f.do(t, http.MethodPost, "/users", "", createUserRequest{Name: name, Email: email, Password: "secret1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign up: %d %s", resp.StatusCode, raw)
	}
	resp, raw = f.do(t, http.MethodPost, "/sessions", "", sessionRequest{Email: email, Password: "secret1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign in: %d %s", resp.StatusCode, raw)
	}
	var sess sessionResponse
	if err := json.Unmarshal(raw, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess.User, sess.Token
}

func TestSignUpAndSession(t *testing.T) {
	f := newFixture(t, nil)
	user, token := f.signUpAndIn(t, "Ana", "a@b.com")
	if user.ID == "" || user.Name != "Ana" || token == "" {
		t.Fatalf("unexpected session %+v %q", user, token)
	}

	resp, _ := f.do(t, http.MethodPost, "/users", "", createUserRequest{Name: "Ana", Email: "a@b.com", Password: "secret1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate email: expected 400, got %d", resp.StatusCode)
	}

	resp, raw := f.do(t, http.MethodPost, "/sessions", "", sessionRequest{Email: "a@b.com", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized || !strings.Contains(string(raw), "Incorrect email/password") {
		t.Fatalf("wrong password: %d %s", resp.StatusCode, raw)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	f := newFixture(t, nil)
	for _, token := range []string{"", "tok-abc"} {
		resp, _ := f.do(t, http.MethodGet, "/providers", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, resp.StatusCode)
		}
	}
}

func TestProvidersExcludeCaller(t *testing.T) {
	f := newFixture(t, nil)
	_, token := f.signUpAndIn(t, "Ana", "a@b.com")
	f.signUpAndIn(t, "Carlos", "c@b.com")

	resp, raw := f.do(t, http.MethodGet, "/providers", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("providers: %d %s", resp.StatusCode, raw)
	}
	var providers []userResponse
	if err := json.Unmarshal(raw, &providers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(providers) != 1 || providers[0].Name != "Carlos" {
		t.Fatalf("unexpected providers %+v", providers)
	}
}

func TestBookingFlow(t *testing.T) {
	f := newFixture(t, nil)
	_, token := f.signUpAndIn(t, "Ana", "a@b.com")
	carlos, _ := f.signUpAndIn(t, "Carlos", "c@b.com")

	path := "/providers/" + carlos.ID + "/day-availability?year=2031&month=3&day=10"
	hours := func() []availability.Hour {
		resp, raw := f.do(t, http.MethodGet, path, token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("availability: %d %s", resp.StatusCode, raw)
		}
		var out []availability.Hour
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return out
	}

	before := hours()
	if len(before) != 10 || before[0].Hour != 8 || before[0].Available || before[1].Available || !before[2].Available {
		t.Fatalf("unexpected availability before booking %+v", before)
	}

	at := time.Date(2031, time.March, 10, 14, 0, 0, 0, time.UTC)
	resp, raw := f.do(t, http.MethodPost, "/appointments", token, createAppointmentRequest{ProviderID: carlos.ID, Date: at})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create appointment: %d %s", resp.StatusCode, raw)
	}
	resp, _ = f.do(t, http.MethodPost, "/appointments", token, createAppointmentRequest{ProviderID: carlos.ID, Date: at})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("double booking: expected 400, got %d", resp.StatusCode)
	}

	after := hours()
	if after[6].Hour != 14 || after[6].Available {
		t.Fatalf("14:00 should be booked: %+v", after)
	}
}

func TestCreateAppointmentRules(t *testing.T) {
	f := newFixture(t, nil)
	ana, token := f.signUpAndIn(t, "Ana", "a@b.com")
	carlos, _ := f.signUpAndIn(t, "Carlos", "c@b.com")

	cases := []struct {
		name     string
		provider string
		at       time.Time
		status   int
	}{
		{"past", carlos.ID, now.Add(-time.Hour), http.StatusBadRequest},
		{"after hours", carlos.ID, time.Date(2031, time.March, 11, 19, 0, 0, 0, time.UTC), http.StatusBadRequest},
		{"with yourself", ana.ID, time.Date(2031, time.March, 11, 10, 0, 0, 0, time.UTC), http.StatusBadRequest},
		{"unknown provider", "nope", time.Date(2031, time.March, 11, 10, 0, 0, 0, time.UTC), http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, raw := f.do(t, http.MethodPost, "/appointments", token, createAppointmentRequest{ProviderID: tc.provider, Date: tc.at})
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d %s", tc.name, tc.status, resp.StatusCode, raw)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, nil)
	_, token := f.signUpAndIn(t, "Ana", "a@b.com")

	resp, raw := f.do(t, http.MethodPut, "/profile", token, profileRequest{Name: "Ana Maria", Email: "a@b.com", OldPassword: "wrong", NewPassword: "secret2"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong old password: expected 400, got %d %s", resp.StatusCode, raw)
	}

	resp, raw = f.do(t, http.MethodPut, "/profile", token, profileRequest{Name: "Ana Maria", Email: "a@b.com", OldPassword: "secret1", NewPassword: "secret2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update profile: %d %s", resp.StatusCode, raw)
	}
	var user userResponse
	_ = json.Unmarshal(raw, &user)
	if user.Name != "Ana Maria" {
		t.Fatalf("unexpected user %+v", user)
	}

	resp, _ = f.do(t, http.MethodPost, "/sessions", "", sessionRequest{Email: "a@b.com", Password: "secret2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new password should work, got %d", resp.StatusCode)
	}
}

func TestUpdateAvatar(t *testing.T) {
	f := newFixture(t, nil)
	ana, token := f.signUpAndIn(t, "Ana", "a@b.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("avatar", ana.ID+".jpg")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("\xff\xd8\xff\xe0jpeg"))
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPatch, f.srv.URL+"/users/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, raw := send(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update avatar: %d %s", resp.StatusCode, raw)
	}
	var user userResponse
	_ = json.Unmarshal(raw, &user)
	if !strings.HasPrefix(user.AvatarURL, "http://files.test/files/") || !strings.HasSuffix(user.AvatarURL, ana.ID+".jpg") {
		t.Fatalf("unexpected avatar url %q", user.AvatarURL)
	}

	name := strings.TrimPrefix(user.AvatarURL, "http://files.test/files/")
	if file, err := f.store.GetFile(context.Background(), name); err != nil || len(file.Content) != 8 {
		t.Fatalf("stored file: %+v %v", file, err)
	}
	resp, _ = f.do(t, http.MethodGet, "/files/"+name, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("file download: %d", resp.StatusCode)
	}
}

func TestSessionRateLimit(t *testing.T) {
	f := newFixture(t, httpx.NewRateLimiter(2, time.Minute))
	for i := 0; i < 2; i++ {
		resp, _ := f.do(t, http.MethodPost, "/sessions", "", sessionRequest{Email: "x@b.com", Password: "nope"})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.StatusCode)
		}
	}
	resp, _ := f.do(t, http.MethodPost, "/sessions", "", sessionRequest{Email: "x@b.com", Password: "nope"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}

func TestCreateAppointmentHalfHourOffset(t *testing.T) {
	// Same offset as Asia/Kolkata, without depending on the host tz database.
	ist := time.FixedZone("IST", 5*3600+30*60)
	f := newFixtureIn(t, nil, ist)
	_, token := f.signUpAndIn(t, "Ana", "a@b.com")
	carlos, _ := f.signUpAndIn(t, "Carlos", "c@b.com")

	at := time.Date(2031, time.March, 12, 14, 0, 0, 0, ist)
	resp, raw := f.do(t, http.MethodPost, "/appointments", token, createAppointmentRequest{ProviderID: carlos.ID, Date: at})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create appointment: %d %s", resp.StatusCode, raw)
	}
	var appt appointmentResponse
	if err := json.Unmarshal(raw, &appt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !appt.Date.Equal(at) {
		t.Fatalf("expected appointment at %s, got %s", at.Format(time.RFC3339), appt.Date.Format(time.RFC3339))
	}

	resp, raw = f.do(t, http.MethodGet, "/providers/"+carlos.ID+"/day-availability?year=2031&month=3&day=12", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("availability: %d %s", resp.StatusCode, raw)
	}
	var hours []availability.Hour
	if err := json.Unmarshal(raw, &hours); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, h := range hours {
		if want := h.Hour != 14; h.Available != want {
			t.Fatalf("hour %d: expected available=%v, got %+v", h.Hour, want, hours)
		}
	}
}
