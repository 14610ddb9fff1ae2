package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	"github.com/koshtony/beezy-beta/internal/domain/attendance"
	"github.com/koshtony/beezy-beta/internal/domain/audit"
	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/domain/directory"
	"github.com/koshtony/beezy-beta/internal/domain/leave"
	"github.com/koshtony/beezy-beta/internal/domain/notifications"
	"github.com/koshtony/beezy-beta/internal/domain/payroll"
	"github.com/koshtony/beezy-beta/internal/platform/config"
	"github.com/koshtony/beezy-beta/internal/platform/db"
	"github.com/koshtony/beezy-beta/internal/platform/email"
	"github.com/koshtony/beezy-beta/internal/platform/metrics"
	approvalshandler "github.com/koshtony/beezy-beta/internal/transport/http/handlers/approvals"
	attendancehandler "github.com/koshtony/beezy-beta/internal/transport/http/handlers/attendance"
	audithandler "github.com/koshtony/beezy-beta/internal/transport/http/handlers/audit"
	directoryhandler "github.com/koshtony/beezy-beta/internal/transport/http/handlers/directory"
	leavehandler "github.com/koshtony/beezy-beta/internal/transport/http/handlers/leave"
	notificationshandler "github.com/koshtony/beezy-beta/internal/transport/http/handlers/notifications"
	payrollhandler "github.com/koshtony/beezy-beta/internal/transport/http/handlers/payroll"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *db.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// New wires stores, services and handlers over an open pool.
func New(cfg config.Config, pool *db.Pool) (*App, error) {
	schedule, err := attendance.NewSchedule(cfg.Attendance)
	if err != nil {
		return nil, fmt.Errorf("attendance schedule: %w", err)
	}

	collector := metrics.New()
	perms := auth.StaticPermissions{}
	auditStore := audit.NewStore(pool)
	notifier := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	directorySvc := directory.NewService(directory.NewStore(pool))

	approvalStore := approvals.NewStore(pool)
	engine := approvals.NewEngine(approvalStore, directorySvc,
		approvals.WithPolicy(approvals.PolicyFromConfig(cfg.Approval)),
		approvals.WithDeliverer(notifier),
		approvals.WithRecorder(collector),
	)
	registry := approvals.NewRegistry(approvalStore)

	leaveSvc := leave.NewService(pool, engine)
	leaveSvc.Register(engine)
	payrollSvc := payroll.NewService(pool, engine, payroll.SettingsFromConfig(cfg.Payroll))
	payrollSvc.Register(engine)
	attendanceSvc := attendance.NewService(attendance.NewStore(pool), schedule)

	approvalsHandler := approvalshandler.NewHandler(engine, registry, perms)
	approvalsHandler.Idempotency = middleware.NewIdempotencyStore(pool)
	approvalsHandler.DecisionLimit = middleware.RateLimit(cfg.RateLimitPerMinute, cfg.DecisionRateBurst)
	approvalsHandler.MaxAttachmentBytes = cfg.MaxAttachmentBytes

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, "/attachments"))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		approvalsHandler.RegisterRoutes(r)
		notificationshandler.NewHandler(notifier).RegisterRoutes(r)
		directoryhandler.NewHandler(directorySvc, perms).RegisterRoutes(r)
		leavehandler.NewHandler(leaveSvc, perms).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollSvc, perms).RegisterRoutes(r)
		attendancehandler.NewHandler(attendanceSvc, perms).RegisterRoutes(r)
		audithandler.NewHandler(auditStore, perms).RegisterRoutes(r)
	})

	return &App{Config: cfg, DB: pool, Router: router, Metrics: collector}, nil
}

// Run connects, prepares the schema and serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(pool); err != nil {
			return err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	app, err := New(cfg, pool)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
