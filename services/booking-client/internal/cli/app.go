// Package cli wires the booking client into cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/md-rashed-zaman/barberbook/libs/kvstore"
	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/account"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/api"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/session"
)

const serviceName = "booking-client"

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg      Config
	logger   *slog.Logger
	store    kvstore.Store
	client   *api.Client
	sessions *session.Manager
	accounts *account.Service
	shutdown func(context.Context) error
	closed   bool
}

func newApp(ctx context.Context, cfg Config, errOut io.Writer) (*app, error) {
	logger := runtime.NewLoggerTo(errOut, serviceName, runtime.ParseLevel(cfg.LogLevel, slog.LevelWarn))

	otelCfg := otelx.ConfigFromEnv(serviceName, false)
	otelCfg.Enabled = cfg.OTelEnabled
	shutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}

	store, err := kvstore.Open(ctx, cfg.Store)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open session store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: store, shutdown: shutdown}
	// The client reads the bearer token from the manager on every request,
	// and the manager signs in through the client.
	var tokens tokenRef
	a.client, err = api.New(api.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Tokens:  &tokens,
		Logger:  logger,
	})
	if err != nil {
		_ = store.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	a.sessions = session.NewManager(store, a.client, logger)
	tokens.src = a.sessions
	a.accounts = account.NewService(a.client, a.sessions, logger)

	a.sessions.Restore(ctx)
	if err := a.sessions.WaitReady(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// Close releases the session store and flushes pending spans.
func (a *app) Close(ctx context.Context) error {
	if a.closed {
		return nil
	}
	a.closed = true
	return errors.Join(a.store.Close(), a.shutdown(ctx))
}

type tokenRef struct {
	src api.TokenSource
}

func (r *tokenRef) Token() string {
	if r.src == nil {
		return ""
	}
	return r.src.Token()
}
