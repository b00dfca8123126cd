// Command server runs the batch classification inference gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/doublewordai/classify-gateway/internal/archive"
	"github.com/doublewordai/classify-gateway/internal/auth"
	"github.com/doublewordai/classify-gateway/internal/backend"
	"github.com/doublewordai/classify-gateway/internal/classify"
	"github.com/doublewordai/classify-gateway/internal/fanout"
	"github.com/doublewordai/classify-gateway/internal/httpapi"
	"github.com/doublewordai/classify-gateway/internal/observability"
	"github.com/doublewordai/classify-gateway/internal/scheduler"
	"github.com/doublewordai/classify-gateway/internal/streaming"
)

// Config holds all server configuration.
type Config struct {
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is the log format (json, text).
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Scheduler scheduler.Config `envPrefix:""`
	HTTP      httpapi.Config   `envPrefix:"HTTP_"`
	Backend   backend.Config   `envPrefix:"BACKEND_"`
	Auth      auth.Config      `envPrefix:"AUTH_"`
	Archive   archive.Config   `envPrefix:"ARCHIVE_"`
	Streaming streaming.Config `envPrefix:"NATS_"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting classify gateway",
		"log_level", cfg.LogLevel,
		"http_addr", cfg.HTTP.Addr,
		"batch_size", cfg.Scheduler.BatchSize,
		"tick_duration_ms", cfg.Scheduler.TickDurationMS,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	obs, err := observability.New("classify-gateway")
	if err != nil {
		return fmt.Errorf("create observability module: %w", err)
	}
	metrics, err := observability.NewMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// --- Backend + Scheduler ---
	be, err := backend.New(cfg.Backend)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	sched := scheduler.New(cfg.Scheduler, be, metrics, logger)
	schedErrCh := make(chan error, 1)
	go func() { schedErrCh <- sched.Run(ctx) }()

	healthCheckers := map[string]httpapi.HealthChecker{}

	// --- Optional archive side channel ---
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.New(ctx, cfg.Archive, logger)
		if err != nil {
			return fmt.Errorf("create archiver: %w", err)
		}
		archiver.Start(ctx)
		defer archiver.Stop()
		healthCheckers["archive"] = archiver
	}

	// --- Optional streaming side channel ---
	var publisher *streaming.Publisher
	if cfg.Streaming.Enabled {
		natsClient, err := streaming.NewClient(ctx, cfg.Streaming, logger)
		if err != nil {
			return fmt.Errorf("create streaming client: %w", err)
		}
		defer natsClient.Close()

		if err := natsClient.EnsureStream(ctx); err != nil {
			logger.Warn("ensure streaming stream failed, publishing may fail until it exists", "error", err)
		}
		publisher = streaming.NewPublisher(natsClient.JetStream(), cfg.Streaming.Subject, logger)
		healthCheckers["streaming"] = natsClient
	}

	var observer fanout.Observer
	if archiver != nil || publisher != nil {
		observer = &gatewayObserver{archiver: archiver, publisher: publisher, logger: logger}
	}

	edge := fanout.New(sched, observer, logger)

	// --- Optional API key auth ---
	var authMiddleware httpapi.Middleware
	if cfg.Auth.Enabled {
		store, err := auth.OpenStore(cfg.Auth.DBPath)
		if err != nil {
			return fmt.Errorf("open auth store: %w", err)
		}
		defer store.Close()

		authService := auth.NewService(store, logger)
		authMiddleware = auth.Middleware(authService, logger)
		healthCheckers["auth"] = store
	}

	// --- HTTP server ---
	server := httpapi.New(cfg.HTTP, edge, logger, httpapi.Opts{
		MetricsHandler: obs.MetricsHandler(),
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
		HealthCheckers: healthCheckers,
	})

	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- server.Start() }()

	logger.Info("classify gateway started",
		"addr", cfg.HTTP.Addr,
		"auth_enabled", cfg.Auth.Enabled,
		"archive_enabled", cfg.Archive.Enabled,
		"streaming_enabled", cfg.Streaming.Enabled,
	)

	schedAlreadyExited := false

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("http server error", "error", err)
		}
	case err := <-schedErrCh:
		schedAlreadyExited = true
		if err != nil {
			logger.Error("scheduler exited unexpectedly", "error", err)
		}
	}

	logger.Info("initiating graceful shutdown")

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	sched.Stop()
	if !schedAlreadyExited {
		// Run is expected to return promptly once Stop closes closedCh; the
		// timeout only guards against Stop's contract being violated, so
		// shutdown can never hang waiting on a channel nothing sends to again.
		select {
		case err := <-schedErrCh:
			if err != nil {
				logger.Warn("scheduler reported error on shutdown", "error", err)
			}
		case <-time.After(10 * time.Second):
			logger.Warn("timed out waiting for scheduler to stop")
		}
	}

	cancel()

	if err := obs.Shutdown(context.Background()); err != nil {
		logger.Error("observability shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// gatewayObserver adapts the archive and streaming side channels to
// fanout.Observer. Both branches are fire-and-forget: a side-channel
// failure is logged and never influences the caller's response.
type gatewayObserver struct {
	archiver  *archive.Archiver
	publisher *streaming.Publisher
	logger    *slog.Logger
}

func (o *gatewayObserver) ObserveSuccess(resp *classify.Response) {
	if o.archiver != nil {
		o.archiver.Record(resp)
	}
	if o.publisher != nil {
		if err := o.publisher.PublishResult(context.Background(), resp); err != nil {
			o.logger.Warn("failed to publish result", "response_id", resp.ID, "error", err)
		}
	}
}

func (o *gatewayObserver) ObserveFailure(model, input string, cause error) {
	if o.publisher == nil {
		return
	}
	rec := streaming.NewFailureRecord(model, input, cause)
	if err := o.publisher.PublishFailure(context.Background(), rec); err != nil {
		o.logger.Warn("failed to publish failure record", "model", model, "error", err)
	}
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
