// Package handlers serves the booking API contract used by booking-client.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	OpenHour        = 8
	CloseHour       = 18
	maxAvatarBytes  = 5 << 20
	defaultTokenTTL = 24 * time.Hour
)

type Options struct {
	Secret    string
	TokenTTL  time.Duration
	PublicURL string
	Location  *time.Location
	Logger    *slog.Logger
	// SessionLimiter throttles POST /sessions when set.
	SessionLimiter *httpx.RateLimiter
}

type Handler struct {
	store     *storage.Memory
	secret    string
	tokenTTL  time.Duration
	publicURL string
	loc       *time.Location
	logger    *slog.Logger
	limiter   *httpx.RateLimiter
	now       func() time.Time
}

func New(store *storage.Memory, opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		store:     store,
		secret:    opts.Secret,
		tokenTTL:  opts.TokenTTL,
		publicURL: strings.TrimSuffix(opts.PublicURL, "/"),
		loc:       opts.Location,
		logger:    opts.Logger,
		limiter:   opts.SessionLimiter,
		now:       time.Now,
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	var createSession http.Handler = http.HandlerFunc(h.CreateSession)
	if h.limiter != nil {
		createSession = h.limiter.Middleware()(createSession)
	}
	mux.Handle("POST /sessions", createSession)
	mux.HandleFunc("POST /users", h.CreateUser)
	mux.Handle("GET /providers", h.requireAuth(h.ListProviders))
	mux.Handle("GET /providers/{id}/day-availability", h.requireAuth(h.DayAvailability))
	mux.Handle("POST /appointments", h.requireAuth(h.CreateAppointment))
	mux.Handle("PUT /profile", h.requireAuth(h.UpdateProfile))
	mux.Handle("PATCH /users/avatar", h.requireAuth(h.UpdateAvatar))
	mux.HandleFunc("GET /files/{name}", h.File)
}

type userResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (h *Handler) toResponse(u storage.User) userResponse {
	resp := userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.Avatar != "" {
		resp.AvatarURL = h.publicURL + "/files/" + u.Avatar
	}
	return resp
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	user, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil || verifyPassword(user.PasswordHash, req.Password) != nil {
		writeError(w, http.StatusUnauthorized, "Incorrect email/password combination.")
		return
	}
	token, err := h.issueToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	h.logger.Info("session created", "user_id", user.ID)
	writeJSON(w, http.StatusOK, sessionResponse{User: h.toResponse(user), Token: token})
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "name, email and a password of at least 6 characters are required")
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	user, err := h.store.CreateUser(r.Context(), storage.User{Name: req.Name, Email: req.Email, PasswordHash: hash})
	if errors.Is(err, storage.ErrEmailTaken) {
		writeError(w, http.StatusBadRequest, "Email address already used.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(user))
}

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	users := h.store.ListProviders(r.Context(), userID(r.Context()))
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, h.toResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DayAvailability(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if _, err := h.store.GetByID(r.Context(), providerID); err != nil {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}
	q := r.URL.Query()
	year, errY := strconv.Atoi(q.Get("year"))
	month, errM := strconv.Atoi(q.Get("month"))
	day, errD := strconv.Atoi(q.Get("day"))
	if errY != nil || errM != nil || errD != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		writeError(w, http.StatusBadRequest, "year, month (1-12) and day are required")
		return
	}
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, h.loc)
	if start.Day() != day {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	busy := h.store.BusyIntervals(r.Context(), providerID, start, start.AddDate(0, 0, 1))
	writeJSON(w, http.StatusOK, availability.DayHours(start, OpenHour, CloseHour, busy, h.now()))
}

type createAppointmentRequest struct {
	ProviderID string    `json:"provider_id"`
	Date       time.Time `json:"date"`
}

type appointmentResponse struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	UserID     string    `json:"user_id"`
	Date       time.Time `json:"date"`
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	uid := userID(r.Context())
	if req.ProviderID == "" || req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "provider_id and date are required")
		return
	}
	if req.ProviderID == uid {
		writeError(w, http.StatusBadRequest, "You can't create an appointment with yourself")
		return
	}
	if _, err := h.store.GetByID(r.Context(), req.ProviderID); err != nil {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}

	// Wall-clock hour in h.loc; Truncate would give :30 in half-hour zones.
	local := req.Date.In(h.loc)
	at := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, h.loc)
	if at.Before(h.now()) {
		writeError(w, http.StatusBadRequest, "You can't create an appointment on a past date")
		return
	}
	if at.Hour() < OpenHour || at.Hour() >= CloseHour {
		writeError(w, http.StatusBadRequest, "You can only create appointments between 8am and 5pm")
		return
	}

	appt, err := h.store.CreateAppointment(r.Context(), storage.Appointment{ProviderID: req.ProviderID, UserID: uid, Date: at})
	if errors.Is(err, storage.ErrSlotTaken) {
		writeError(w, http.StatusBadRequest, "This appointment is already booked")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}
	h.logger.Info("appointment created", "appointment_id", appt.ID, "provider_id", appt.ProviderID, "date", appt.Date.Format(time.RFC3339))
	writeJSON(w, http.StatusOK, appointmentResponse{ID: appt.ID, ProviderID: appt.ProviderID, UserID: appt.UserID, Date: appt.Date})
}

type profileRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	user, err := h.store.GetByID(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	req.Name, req.Email = strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	user.Name, user.Email = req.Name, req.Email

	if req.NewPassword != "" {
		if req.OldPassword == "" {
			writeError(w, http.StatusBadRequest, "You need to inform the old password to set a new password")
			return
		}
		if verifyPassword(user.PasswordHash, req.OldPassword) != nil {
			writeError(w, http.StatusBadRequest, "Old password does not match")
			return
		}
		hash, err := hashPassword(req.NewPassword)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "E-mail already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(user))
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+(64<<10))
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read avatar")
		return
	}

	user, err := h.store.GetByID(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Only authenticated users can change avatar")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	name := uuid.NewString() + "-" + path.Base(header.Filename)
	h.store.PutFile(r.Context(), name, storage.File{ContentType: contentType, Content: content})

	user.Avatar = name
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update avatar")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(user))
}

func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	f, err := h.store.GetFile(r.Context(), r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"status": "error", "message": msg})
}

func hashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash string, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
