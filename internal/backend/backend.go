// Package backend selects and wires the configured store implementation.
package backend

import (
	"fmt"
	"log/slog"

	"txboard/internal/config"
	"txboard/internal/storage"
	"txboard/internal/store"
	"txboard/internal/store/memory"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result holds the store and its optional cleanup function.
type Result struct {
	Store   store.TransactionStore
	Cleanup CleanupFunc
}

// Open creates the TransactionStore named by the configuration.
func Open(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DataBackend {
	case config.SQLiteBackend:
		repo, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case config.MemoryBackend:
		logger.Info("Initialized memory backend")
		return &Result{Store: memory.New()}, nil

	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
