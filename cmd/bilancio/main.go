package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/dashboard"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(log.New(log.DefaultConfig()), "Failed to load configuration", err)
	}

	logger, err := log.Setup(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)
	if err != nil {
		fatal(log.New(log.DefaultConfig()), "Invalid log configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		fatal(logger.With(log.FieldErrorType, log.ErrorTypeConfiguration), "Configuration validation failed", err)
	}

	verifier, err := auth.NewVerifier(cfg.AuthSecret, cfg.AuthIssuer)
	if err != nil {
		fatal(logger, "Failed to initialize token verifier", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fatal(logger, "Invalid backend configuration", err)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	svc := dashboard.NewService(store.Backend, dashboard.Options{
		IncomeWindow:  cfg.IncomeWindow(),
		ExpenseWindow: cfg.ExpenseWindow(),
		RecentLimit:   cfg.RecentLimit,
		Logger:        logger,
	})

	srv, err := apphttp.NewServer(svc, verifier, apphttp.Options{
		Addr:               ":" + cfg.Port,
		DashboardTimeout:   cfg.DashboardTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
		Ready:              store.Backend,
	})
	if err != nil {
		fatal(logger, "Failed to build HTTP server", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting bilancio server",
			log.FieldOperation, log.OpStartup, "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err.Error())
	}
	logger.Info("Server stopped gracefully")
}

func fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err.Error())
	os.Exit(1)
}
