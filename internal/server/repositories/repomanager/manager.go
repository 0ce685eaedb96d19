// Package repomanager opens the configured credential store backend and
// hands out its repositories.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// RepositoryManager owns a storage connection and the repositories bound
// to it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Close() error
}

// New opens the backend named by cfg.Storage.
func New(cfg *config.Config) (RepositoryManager, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		return OpenPostgres(cfg.DatabaseDSN)
	case config.StorageRedis:
		return NewRedisRepositoryManager(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix), nil
	case config.StorageMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
