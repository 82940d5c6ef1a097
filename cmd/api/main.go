package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/dianedanzo/bear-app/internal/auth"
	"github.com/dianedanzo/bear-app/internal/config"
	"github.com/dianedanzo/bear-app/internal/database"
	"github.com/dianedanzo/bear-app/internal/execution"
	"github.com/dianedanzo/bear-app/internal/handlers"
	"github.com/dianedanzo/bear-app/internal/ledger"
	"github.com/dianedanzo/bear-app/internal/metrics"
	"github.com/dianedanzo/bear-app/internal/middleware"
	"github.com/dianedanzo/bear-app/internal/repository"
	"github.com/dianedanzo/bear-app/internal/router"
	"github.com/dianedanzo/bear-app/internal/services"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.BotToken == "" {
		slog.Warn("BOT_TOKEN is not set; authenticated routes will answer server_misconfigured")
	}
	if cfg.DevOverrideEnabled() {
		slog.Warn("Developer identity override is ENABLED; never run this build in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and schema/001_init.sql is applied", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	runner := database.NewRunner(pool, cfg.StoreTimeout)

	// Store
	userRepo := repository.NewUserRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	withdrawalRepo := repository.NewWithdrawalRepo(pool)
	ledgerSvc := ledger.NewService(ledger.NewRepository(pool), runner, logger)

	coordinator := services.NewCoordinator(runner, userRepo, taskRepo, ledgerSvc, logger)
	withdrawals := services.NewWithdrawalService(runner, userRepo, withdrawalRepo, ledgerSvc, logger)
	catalog := services.NewCatalog(runner, taskRepo, userRepo)

	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	// Background user registration from bot /start updates
	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewRegisterUserWorker(userRepo))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	enqueue := func(ctx context.Context, args execution.RegisterUserArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}

	// Operators
	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, validator, logger)
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set; operator login is disabled")
	}

	adminHandler := &handlers.AdminHandler{Withdrawals: withdrawals, Validator: validator, Logger: logger}
	webhook := &handlers.WebhookHandler{Secret: cfg.WebhookSecret, Enqueue: enqueue, Logger: logger}

	mux := router.New(authHandler, authSvc, adminHandler, webhook)

	gate := &middleware.TelegramAuth{
		BotToken:    cfg.BotToken,
		MaxAge:      cfg.InitDataMaxAge,
		DevOverride: cfg.DevOverrideEnabled(),
		DevToken:    cfg.DevOverrideToken,
		Logger:      logger,
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	rewards := &handlers.RewardsHandler{
		Completions: coordinator,
		Withdrawals: withdrawals,
		Balances:    ledgerSvc,
		Catalog:     catalog,
		Validator:   validator,
		Logger:      logger,
	}
	RegisterRewardRoutes(mux, gate, limiter, rewards)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			middleware.InitDataHeader, middleware.AltInitDataHeader,
		},
		ExposedHeaders: []string{"Retry-After"},
	}).Handler(metrics.InstrumentHandler(middleware.AccessLog(logger)(mux)))

	// Start River client (processes jobs)
	riverCtx, stopRiver := context.WithCancel(context.Background())
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			slog.Error("HTTP server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River stop failed", "error", err)
	}
}
