package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource supplies the bearer token for each outbound request. An empty
// token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Logger  *slog.Logger
	// Transport is the innermost round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	base *url.URL
	http *http.Client
}

const maxErrorBody = 4 << 10

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("api base url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", raw)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	transports := []httpx.Transport{
		httpx.WithOutboundRequestID(),
		httpx.WithClientLog(logger),
	}
	if opts.Tokens != nil {
		transports = append(transports, httpx.WithBearer(opts.Tokens.Token))
	}
	inner := opts.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	rt := httpx.ChainTransport(otelhttp.NewTransport(inner), transports...)

	return &Client{
		base: base,
		http: &http.Client{Transport: rt, Timeout: opts.Timeout},
	}, nil
}

type createSessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createSessionResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// CreateSession exchanges credentials for a user and bearer token.
func (c *Client) CreateSession(ctx context.Context, email, password string) (model.User, string, error) {
	var resp createSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "sessions", nil, createSessionRequest{Email: email, Password: password}, &resp); err != nil {
		return model.User{}, "", opError("create session", err)
	}
	if resp.Token == "" || resp.User.ID == "" {
		return model.User{}, "", opError("create session", errors.New("response is missing user or token"))
	}
	return resp.User, resp.Token, nil
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) CreateUser(ctx context.Context, req SignUpRequest) error {
	if err := c.doJSON(ctx, http.MethodPost, "users", nil, req, nil); err != nil {
		return opError("create user", err)
	}
	return nil
}

func (c *Client) ListProviders(ctx context.Context) ([]model.Provider, error) {
	var providers []model.Provider
	if err := c.doJSON(ctx, http.MethodGet, "providers", nil, nil, &providers); err != nil {
		return nil, opError("list providers", err)
	}
	return providers, nil
}

func (c *Client) DayAvailability(ctx context.Context, q model.DayAvailabilityQuery) ([]model.DayAvailability, error) {
	switch q.ProviderID {
	case "":
		return nil, opError("day availability", errors.New("provider id is required"))
	case ".", "..":
		return nil, opError("day availability", fmt.Errorf("invalid provider id %q", q.ProviderID))
	}
	params := url.Values{}
	params.Set("year", strconv.Itoa(q.Year))
	params.Set("month", strconv.Itoa(q.Month))
	params.Set("day", strconv.Itoa(q.Day))

	var records []model.DayAvailability
	path := "providers/" + url.PathEscape(q.ProviderID) + "/day-availability"
	if err := c.doJSON(ctx, http.MethodGet, path, params, nil, &records); err != nil {
		return nil, opError("day availability", err)
	}
	return records, nil
}

type createAppointmentRequest struct {
	ProviderID string    `json:"provider_id"`
	Date       time.Time `json:"date"`
}

func (c *Client) CreateAppointment(ctx context.Context, providerID string, date time.Time) error {
	if err := c.doJSON(ctx, http.MethodPost, "appointments", nil, createAppointmentRequest{ProviderID: providerID, Date: date}, nil); err != nil {
		return opError("create appointment", err)
	}
	return nil
}

// ProfileRequest carries the password pair only when OldPassword is set.
type ProfileRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, req ProfileRequest) (model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodPut, "profile", nil, req, &user); err != nil {
		return model.User{}, opError("update profile", err)
	}
	return user, nil
}

func (c *Client) UpdateAvatar(ctx context.Context, filename, contentType string, content []byte) (model.User, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return model.User{}, opError("update avatar", err)
	}
	if _, err := part.Write(content); err != nil {
		return model.User{}, opError("update avatar", err)
	}
	if err := mw.Close(); err != nil {
		return model.User{}, opError("update avatar", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, "users/avatar", nil, &body)
	if err != nil {
		return model.User{}, opError("update avatar", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var user model.User
	if err := c.do(req, &user); err != nil {
		return model.User{}, opError("update avatar", err)
	}
	return user, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// newRequest resolves path against the base url. path is already escaped.
func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	u := c.base.ResolveReference(ref)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:  req.Method,
			Path:    req.URL.Path,
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// errorMessage accepts {"message": "..."} or {"error": "..."} bodies and
// falls back to the trimmed text.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
