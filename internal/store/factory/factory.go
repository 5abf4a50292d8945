// Package factory opens the Store backend selected by configuration.
package factory

import (
	"fmt"
	"log/slog"

	"gastobot/internal/config"
	"gastobot/internal/store"
	"gastobot/internal/store/memory"
	"gastobot/internal/store/rest"
	"gastobot/internal/store/sqlite"
)

// Result pairs an opened backend with its cleanup, if any.
type Result struct {
	Store   store.Store
	Cleanup func() error
}

// Open creates the Store backend named by cfg.DataBackend.
func Open(cfg *config.Config, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DataBackend {
	case "rest":
		client := rest.New(cfg.RESTBaseURL, cfg.RESTAPIKey, cfg.RESTTimeout)
		logger.Info("Initialized REST backend", "base_url", cfg.RESTBaseURL)
		return Result{Store: client}, nil

	case "sqlite":
		repo, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return Result{}, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return Result{Store: repo, Cleanup: repo.Close}, nil

	case "memory":
		logger.Info("Initialized memory backend")
		return Result{Store: memory.New()}, nil

	default:
		return Result{}, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
