// Package main is the entrypoint for the shop-floor planning server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/shopplan/internal/analysis"
	"github.com/kiranshivaraju/shopplan/internal/api"
	"github.com/kiranshivaraju/shopplan/internal/api/handler"
	mw "github.com/kiranshivaraju/shopplan/internal/api/middleware"
	"github.com/kiranshivaraju/shopplan/internal/cache"
	"github.com/kiranshivaraju/shopplan/internal/calendar"
	"github.com/kiranshivaraju/shopplan/internal/config"
	"github.com/kiranshivaraju/shopplan/internal/holidays"
	"github.com/kiranshivaraju/shopplan/internal/planning"
	"github.com/kiranshivaraju/shopplan/internal/scheduler"
	"github.com/kiranshivaraju/shopplan/internal/store"
	"github.com/kiranshivaraju/shopplan/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	holidayCacheTTL = 24 * time.Hour
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.IsDevelopment() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "timezone", cfg.Calendar.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Load the working calendar
	cal, err := loadCalendar(ctx, cfg, redisCache, time.Now())
	if err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}
	slog.Info("calendar loaded", "holidays_file", cfg.Calendar.HolidaysFile)

	// 6. Create store, engine and planning service
	pgStore := store.NewPostgresStore(pool)

	opts := scheduler.DefaultOptions()
	opts.Rules = analysis.Rules{
		MaxBookingsPerDay: cfg.Planning.MaxBookingsPerDay,
		EarlyEndCutoff:    cfg.Planning.EarlyEndCutoff,
		Loc:               cfg.Calendar.Location,
	}
	opts.MaxWaitDays = cfg.Planning.MaxWaitDays
	engine := scheduler.New(cal, opts)

	queue, err := worker.NewClient(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create task client: %w", err)
	}
	defer queue.Close()

	svc := planning.NewService(pgStore, redisCache, engine, queue, cfg.Planning.LockTTL)

	// 7. Start the planning worker
	taskServer, err := worker.NewServer(cfg.Redis.URL, cfg.Worker.Concurrency)
	if err != nil {
		return fmt.Errorf("create task server: %w", err)
	}
	if err := taskServer.Start(worker.NewMux(worker.NewPlanWorker(svc))); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}
	defer taskServer.Shutdown()
	slog.Info("planning worker started", "concurrency", cfg.Worker.Concurrency)

	// 8. Build router with dependencies
	v := handler.NewValidator()
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.PerMinute),

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache),

		TriggerPlanHandler: handler.NewTriggerPlanHandler(svc),
		GetPlanHandler:     handler.NewGetPlanHandler(svc),

		ListAssignments:    handler.NewListAssignmentsHandler(svc),
		SetupComplete:      handler.NewSetupCompleteHandler(svc, v),
		EditAssignment:     handler.NewEditAssignmentHandler(svc, v),
		MachineLoadHandler: handler.NewMachineLoadHandler(svc),
		MachineDaysHandler: handler.NewMachineDaysHandler(svc),
		ListAlertsHandler:  handler.NewListAlertsHandler(svc),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore, v),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// holidaySource returns the plant's holiday source: Hebcal behind the cache,
// the built-in table when Hebcal is unreachable, plus the optional plant
// closures file.
func holidaySource(cfg *config.Config, c cache.Cache) holidays.Source {
	loc := cfg.Calendar.Location
	national := holidays.Chain{
		holidays.CachedSource{
			Source: holidays.NewHebcalClient(cfg.Hebcal.BaseURL, loc, cfg.Hebcal.Timeout),
			Cache:  c,
			TTL:    holidayCacheTTL,
		},
		holidays.FallbackSource{Loc: loc},
	}
	if cfg.Calendar.HolidaysFile == "" {
		return national
	}
	return holidays.Merge{national, holidays.FileSource{Path: cfg.Calendar.HolidaysFile, Loc: loc}}
}

// loadCalendar builds the working calendar for the current and next year.
func loadCalendar(ctx context.Context, cfg *config.Config, c cache.Cache, now time.Time) (*calendar.Calendar, error) {
	year := now.In(cfg.Calendar.Location).Year()
	return calendar.Load(ctx, holidaySource(cfg, c), cfg.Calendar.Location, cfg.Calendar.Week, year, year+1)
}
