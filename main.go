package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/s1natex/task-tracker/internal/config"
	"github.com/s1natex/task-tracker/internal/logging"
	"github.com/s1natex/task-tracker/internal/middleware"
	"github.com/s1natex/task-tracker/internal/tasks"
	"github.com/s1natex/task-tracker/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "task-tracker:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("task-tracker", flag.ContinueOnError)
	cfg, err := config.Load(fs, args, os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger) // for third-party packages that use slog

	tp, err := telemetry.Setup(ctx, cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing_shutdown_error", slog.String("error", err.Error()))
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeRepo()
	logger.Info("task_store_ready", slog.String("driver", cfg.Store.Driver))

	opts := routerOptions{
		requestTimeout: cfg.HTTP.RequestTimeout,
		corsOrigins:    cfg.HTTP.CORSOrigins,
		limiter:        middleware.NewClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		tracer:         tp,
		propagator:     tp.Propagator,
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			tasks.NewCollector(repo),
		)
		opts.metrics = middleware.NewMetrics(reg)
		opts.gatherer = reg
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(repo, logger, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("server_error", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRepository builds the store named by cfg and applies the schema.
func openRepository(ctx context.Context, cfg config.StoreConfig) (tasks.Repository, func(), error) {
	if cfg.Driver == "memory" {
		return tasks.NewInMemoryRepo(), func() {}, nil
	}

	dsn := cfg.DSN
	if cfg.Driver == "sqlite" && dsn != "" && !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:") {
		var err error
		if dsn, err = tasks.SQLiteFileDSN(dsn); err != nil {
			return nil, nil, fmt.Errorf("sqlite path: %w", err)
		}
	}

	repo, err := tasks.OpenSQL(tasks.Dialect(cfg.Driver), dsn)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := repo.PingContext(pingCtx); err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	if err := repo.ApplyMigrations(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	return repo, func() { _ = repo.Close() }, nil
}

type routerOptions struct {
	requestTimeout time.Duration
	corsOrigins    []string
	limiter        *middleware.ClientLimiter
	metrics        *middleware.Metrics
	gatherer       prometheus.Gatherer
	tracer         trace.TracerProvider
	propagator     propagation.TextMapPropagator
}

// newRouter wires the health endpoints, task routes, and middleware stack
func newRouter(repo tasks.Repository, logger *slog.Logger, opts routerOptions) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	if opts.requestTimeout > 0 {
		r.Use(chimw.Timeout(opts.requestTimeout))
	}

	origins := opts.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "traceparent"},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	if opts.tracer != nil {
		prop := opts.propagator
		if prop == nil {
			prop = propagation.TraceContext{}
		}
		r.Use(middleware.Tracing(opts.tracer, prop))
	}
	if opts.metrics != nil {
		r.Use(opts.metrics.Middleware)
	}

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimitMiddleware(opts.limiter))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyzHandler(repo))
	if opts.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler(opts.gatherer))
	}

	tasks.RegisterRoutes(r, repo, logger)

	return r
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func readyzHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
