package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"txboard/internal/amqp"
	"txboard/internal/backend"
	"txboard/internal/config"
	apphttp "txboard/internal/http"
	applog "txboard/internal/log"
	"txboard/internal/reports"
	"txboard/internal/seed"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	result, err := backend.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to open data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	// Reseed events are optional; the dashboard works without a broker.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without reseed events", "error", err)
		} else {
			defer events.Close()
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	seeder := seed.NewSeeder(result.Store, cfg.SeedURL, events)
	svc := reports.NewService(result.Store)

	srv := apphttp.NewServer(":"+cfg.Port, svc, seeder, cfg.CacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reseed events from other instances invalidate the local report cache.
	if events != nil {
		go func() {
			err := events.ConsumeReseed(ctx, func(msg *amqp.ReseedMessage) error {
				logger.Info("Dataset reseeded by another instance, dropping report cache",
					applog.FieldRecords, msg.Records, applog.FieldSource, msg.Source)
				srv.PurgeReportCache()
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Reseed consumer stopped", applog.FieldError, err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Server starting", "addr", srv.Addr, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped")
}
