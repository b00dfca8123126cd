package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/doublewordai/classify-gateway/internal/observability"
)

// Server is the gateway's HTTP server: POST /classify plus the operational
// routes every service in this family exposes.
type Server struct {
	cfg        Config
	classifier Classifier
	logger     *slog.Logger

	metricsHandler http.Handler
	healthCheckers map[string]HealthChecker

	httpServer *http.Server
}

// Opts configures optional Server dependencies.
type Opts struct {
	// MetricsHandler serves GET /metrics, typically promhttp.Handler()
	// from an *observability.Module. Nil disables the route.
	MetricsHandler http.Handler

	// Metrics, if non-nil, wraps every route with request
	// duration/count/error instrumentation.
	Metrics *observability.Metrics

	// AuthMiddleware, if non-nil, is applied to POST /classify ahead of
	// rate limiting, so per-key limits can key off the authenticated
	// caller.
	AuthMiddleware Middleware

	// HealthCheckers are polled by GET /healthz, keyed by component name
	// for log messages.
	HealthCheckers map[string]HealthChecker
}

// New constructs a Server. classifier handles POST /classify bodies.
func New(cfg Config, classifier Classifier, logger *slog.Logger, opts Opts) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:            cfg,
		classifier:     classifier,
		logger:         logger.With("component", "httpapi"),
		metricsHandler: opts.MetricsHandler,
		healthCheckers: opts.HealthCheckers,
	}

	mux := http.NewServeMux()

	classifyHandler := http.Handler(http.HandlerFunc(s.handleClassify))
	classifyMiddlewares := []Middleware{BodySizeLimit(cfg.MaxBodyBytes)}
	if opts.AuthMiddleware != nil {
		classifyMiddlewares = append(classifyMiddlewares, opts.AuthMiddleware)
	}
	classifyMiddlewares = append(classifyMiddlewares, PerKeyRateLimit(cfg.RateLimit))
	if opts.Metrics != nil {
		requestsTotal := opts.Metrics.ClassificationRequestsTotal
		classifyMiddlewares = append(classifyMiddlewares, func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requestsTotal.Add(r.Context(), 1)
				next.ServeHTTP(w, r)
			})
		})
	}
	mux.Handle("POST /classify", Chain(classifyHandler, classifyMiddlewares...))

	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	root := []Middleware{
		RequestID,
		Recovery(s.logger),
		ContentType,
		CORS(cfg.CORS),
		RateLimit(cfg.RateLimit),
	}
	if opts.Metrics != nil {
		root = append(root, observability.HTTPMetrics(opts.Metrics))
	}

	handler := Chain(mux, root...)

	s.httpServer = &http.Server{
		Addr:           cfg.Addr,
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	return s
}

// Start runs the server until it is shut down, matching http.Server's
// convention of returning http.ErrServerClosed on a clean Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests, bounded by
// cfg.ShutdownTimeout if ctx carries no earlier deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}
