package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(log.New(log.DefaultConfig()), "Failed to load configuration", err)
	}
	logger, err := log.Setup(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	if err != nil {
		fatal(log.New(log.DefaultConfig()), "Invalid log configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger.With(log.FieldErrorType, log.ErrorTypeConfiguration), "Configuration validation failed", err)
	}
	if err := cfg.RequireAMQP(); err != nil {
		fatal(logger, "Worker requires a broker", err)
	}
	if cfg.DataBackend != config.BackendSQLite {
		logger.Warn("Worker is writing to a non persistent backend", "backend", cfg.DataBackend)
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
	defer store.Close()

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewIngestWorker(store.Backend, logger)
	logger.Info("Starting bilancio-worker",
		log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue, "backend", cfg.DataBackend)

	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
	}

	st := w.Stats()
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown, "stored", st.Stored, "rejected", st.Rejected, "failed", st.Failed)
}

func fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err.Error())
	os.Exit(1)
}
