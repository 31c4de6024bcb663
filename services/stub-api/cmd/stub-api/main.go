package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/handlers"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "stub-api")
	port, err := config.Port("PORT", "3333")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service, false))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc := time.Local
	if name := config.String("TZ_NAME", ""); name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		} else {
			logger.Warn("unknown TZ_NAME, using local time", "tz", name, "err", err)
		}
	}

	store := storage.NewMemory()
	if err := seedProviders(ctx, store); err != nil {
		logger.Error("seed failed", "err", err)
		return
	}

	mux := runtime.NewBaseMuxWithReady()
	h := handlers.New(store, handlers.Options{
		Secret:         config.String("JWT_SECRET", "dev-secret"),
		TokenTTL:       config.Seconds("TOKEN_TTL_SECONDS", 24*time.Hour),
		PublicURL:      config.String("PUBLIC_URL", "http://localhost:"+port),
		Location:       loc,
		Logger:         logger,
		SessionLimiter: httpx.NewRateLimiter(config.PositiveInt("SESSION_RATE_LIMIT_PER_MINUTE", 20), time.Minute),
	})
	h.Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.PositiveInt("REQUEST_BODY_LIMIT_BYTES", 6<<20))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 10*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
