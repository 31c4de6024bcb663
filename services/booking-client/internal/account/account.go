// Package account implements the sign-up, profile and avatar flows on top of
// the booking API and the signed-in session.
package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/api"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/session"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/validation"
)

// API is the part of api.Client the account flows need.
type API interface {
	CreateUser(ctx context.Context, req api.SignUpRequest) error
	UpdateProfile(ctx context.Context, req api.ProfileRequest) (model.User, error)
	UpdateAvatar(ctx context.Context, filename, contentType string, content []byte) (model.User, error)
}

// Sessions is the part of session.Manager the account flows need.
type Sessions interface {
	Current() (session.Session, bool)
	UpdateUser(ctx context.Context, user model.User) error
}

type Service struct {
	api      API
	sessions Sessions
	logger   *slog.Logger
}

func NewService(client API, sessions Sessions, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{api: client, sessions: sessions, logger: logger}
}

type SignUpForm struct {
	Name     string
	Email    string
	Password string
}

// SignUp validates the form and registers the user. It does not sign in.
func (s *Service) SignUp(ctx context.Context, form SignUpForm) error {
	if err := validation.SignUp.Validate(validation.Values{
		validation.FieldName:     form.Name,
		validation.FieldEmail:    form.Email,
		validation.FieldPassword: form.Password,
	}); err != nil {
		return err
	}
	if err := s.api.CreateUser(ctx, api.SignUpRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	}); err != nil {
		return err
	}
	s.logger.Info("user signed up", "email", form.Email)
	return nil
}

type ProfileForm struct {
	Name                 string
	Email                string
	OldPassword          string
	NewPassword          string
	PasswordConfirmation string
}

// UpdateProfile validates the form, sends it and stores the returned user in
// the session. The password pair is only sent when OldPassword is set.
func (s *Service) UpdateProfile(ctx context.Context, form ProfileForm) (model.User, error) {
	if _, ok := s.sessions.Current(); !ok {
		return model.User{}, session.ErrNotAuthenticated
	}
	if err := validation.Profile.Validate(validation.Values{
		validation.FieldName:                 form.Name,
		validation.FieldEmail:                form.Email,
		validation.FieldOldPassword:          form.OldPassword,
		validation.FieldNewPassword:          form.NewPassword,
		validation.FieldPasswordConfirmation: form.PasswordConfirmation,
	}); err != nil {
		return model.User{}, err
	}

	req := api.ProfileRequest{Name: form.Name, Email: form.Email}
	if form.OldPassword != "" {
		req.OldPassword = form.OldPassword
		req.NewPassword = form.NewPassword
	}
	user, err := s.api.UpdateProfile(ctx, req)
	if err != nil {
		return model.User{}, err
	}
	if err := s.sessions.UpdateUser(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("store updated user: %w", err)
	}
	return user, nil
}

// ChangeAvatar asks picker for an image and uploads it. A cancelled pick is
// not an error and leaves everything untouched; the returned bool reports
// whether an upload happened.
func (s *Service) ChangeAvatar(ctx context.Context, picker Picker) (model.User, bool, error) {
	current, ok := s.sessions.Current()
	if !ok {
		return model.User{}, false, session.ErrNotAuthenticated
	}

	picked, err := picker.Pick(ctx)
	if errors.Is(err, ErrPickCancelled) {
		s.logger.Debug("avatar pick cancelled")
		return current.User, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("%w: %w", ErrAvatarUpdateFailed, err)
	}

	contentType := picked.ContentType
	if contentType == "" {
		contentType = DefaultAvatarContentType
	}
	user, err := s.api.UpdateAvatar(ctx, current.User.ID+".jpg", contentType, picked.Content)
	if err != nil {
		return model.User{}, false, fmt.Errorf("%w: %w", ErrAvatarUpdateFailed, err)
	}
	if err := s.sessions.UpdateUser(ctx, user); err != nil {
		return model.User{}, false, fmt.Errorf("store updated user: %w", err)
	}
	return user, true, nil
}
