package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"webhook-receiver/internal/config"
	"webhook-receiver/internal/database"
	"webhook-receiver/internal/health"
	"webhook-receiver/internal/logging"
	"webhook-receiver/internal/message" // The internal package for this service
	"webhook-receiver/internal/metrics"
)

// main is the entry point for the webhook service.
// It initializes dependencies and runs the HTTP server until SIGINT or SIGTERM.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, CONFIG_FILE also works)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "webhookservice: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.JSONLogs())
	log := logging.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer db.Close()

	if err := message.EnsureSchema(ctx, db, dialect); err != nil {
		return fmt.Errorf("could not prepare schema: %w", err)
	}
	log.Info("database connected", "dialect", dialect.Name())

	if !cfg.SecretConfigured() {
		log.Warn("WEBHOOK_SECRET not set, webhooks will be rejected with 503")
	}

	// Initialize the repository, service and handler.
	repo := message.NewSQLRepository(db, dialect)
	svc := message.NewService(repo)
	m := metrics.New()
	handler := message.NewHandler(svc, message.HandlerConfig{
		WebhookSecret: cfg.WebhookSecret,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	}, m, logging.Component("webhook"))

	r := newRouter(cfg, handler, m, logging.Component("http"))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("webhook service starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		return err
	}
	log.Info("server stopped")
	return nil
}

// newRouter builds the chi router. Recoverer must stay inside the request logger
// and the metrics middleware, a recovered panic is logged and counted as a 500.
func newRouter(cfg *config.Config, api *message.Handler, m *metrics.Metrics, httpLog *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logging.RequestID)
	r.Use(logging.RequestLogger(httpLog))
	r.Use(m.Middleware)
	r.Use(middleware.Recoverer) // Prevent panics from crashing the server.

	health.NewHandler(cfg.Ready).RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Register all the API routes from the handler.
	api.RegisterRoutes(r)

	return r
}
