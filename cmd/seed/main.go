// Command seed runs the destructive full reseed against the configured
// store and exits. Useful for provisioning and cron-driven refreshes
// without going through the HTTP endpoint.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"txboard/internal/amqp"
	"txboard/internal/backend"
	"txboard/internal/config"
	applog "txboard/internal/log"
	"txboard/internal/seed"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentSeed})
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
		defer result.Cleanup()
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without reseed events", "error", err)
		} else {
			defer events.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := seed.NewSeeder(result.Store, cfg.SeedURL, events).Seed(ctx)
	if err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Seeding completed", "records", count)
}
