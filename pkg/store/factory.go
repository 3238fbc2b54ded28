package store

import (
	"fmt"

	"github.com/regnav/readiness-core/pkg/config"
)

// NewFromConfig selects a ResultStore backend from configuration.
func NewFromConfig(cfg *config.Config) (ResultStore, error) {
	switch cfg.StoreType {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.StoreType)
	}
}
