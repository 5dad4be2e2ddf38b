package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/adapters/store"
	"github.com/mikey/intake-guard/internal/config"
	"github.com/mikey/intake-guard/internal/ratelimit"
)

// StoreFactory creates rate limit stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a rate limit store based on the configuration
func (f *StoreFactory) CreateStore() (ratelimit.Store, error) {
	rlCfg, err := f.cfg.GetRateLimit()
	if err != nil {
		return nil, err
	}

	switch rlCfg.Store {
	case "memory":
		return store.NewMemoryStore(f.logger, rlCfg.MaxEntries)
	case "redis":
		return store.NewRedisStore(context.Background(), rlCfg.RedisURL, f.logger)
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(rlCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(rlCfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(context.Background(), rlCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", rlCfg.Store)
	}
}
