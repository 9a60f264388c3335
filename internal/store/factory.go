package store

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"basket/internal/config"
)

// New creates a Store backend based on configuration.
func New(cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case "drive":
		driveCfg := cfg.Store.Drive
		if driveCfg.CredentialsFile == "" && driveCfg.CredentialsJSON == "" {
			driveCfg.CredentialsFile = filepath.Join(config.GetBasketHome(), "service-account.json")
		}

		return NewDrive(driveCfg, cfg.Retry.MaxAttempts, log)
	case "sqlite":
		path := cfg.Store.SQLite.Path
		if path == "" {
			path = filepath.Join(config.GetBasketHome(), "basket.db")
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		return NewSQLite(path, log)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
