// Command clinicbook-web runs the kiosk HTTP facade: a shared-terminal
// front end over the clinic booking backend, with one session per kiosk.
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicbook/clinicbook-go/internal/api"
	"github.com/clinicbook/clinicbook-go/internal/config"
	"github.com/clinicbook/clinicbook-go/internal/nav"
	"github.com/clinicbook/clinicbook-go/internal/observability/metrics"
	"github.com/clinicbook/clinicbook-go/internal/session"
	"github.com/clinicbook/clinicbook-go/internal/web"
	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinicbook kiosk",
		"env", cfg.Env,
		"port", cfg.WebPort,
		"backend", cfg.APIBaseURL,
		"session_backend", cfg.SessionBackend,
	)

	tokenStore, err := buildTokenStore(cfg)
	if err != nil {
		logger.Error("failed to build session backend", "error", err)
		os.Exit(1)
	}
	sessions, err := session.NewStore(tokenStore, logger)
	if err != nil {
		logger.Error("failed to load session", "error", err)
		os.Exit(1)
	}

	var (
		requestMetrics *metrics.RequestMetrics
		bookingMetrics *metrics.BookingMetrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		requestMetrics = metrics.NewRequestMetrics(reg)
		bookingMetrics = metrics.NewBookingMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	gateway := api.NewClient(cfg.APIBaseURL, sessions, logger, api.WithMetrics(requestMetrics))
	guard := nav.NewGuard(sessions)
	navigator := nav.NewNavigator(guard, logger, nav.DefaultRoutes()...)
	handler := web.NewHandler(sessions, gateway, navigator, cfg.BookingTimeout, bookingMetrics, logger)

	r := web.New(&web.Config{
		Handler:        handler,
		Guard:          guard,
		Logger:         logger,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.WebPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("kiosk listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down kiosk...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("kiosk stopped")
}

func buildTokenStore(cfg *config.Config) (session.TokenStore, error) {
	switch cfg.SessionBackend {
	case "redis":
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		return session.NewRedisStore(redis.NewClient(opts)), nil
	default:
		path := cfg.SessionFile
		if path == "" {
			path = filepath.Join(os.TempDir(), "clinicbook", "session.json")
		}
		return session.NewFileStore(path), nil
	}
}
