package repomanager

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

// RedisRepositoryManager vends Redis-backed repositories. Redis needs no
// schema, so RunMigrations only checks connectivity.
type RedisRepositoryManager struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisRepositoryManager(addr, password string, db int, prefix string) *RedisRepositoryManager {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRepositoryManager{rdb: rdb, prefix: prefix}
}

func (m *RedisRepositoryManager) Users() users.Repository {
	return users.NewRedisRepository(m.rdb, m.prefix)
}

func (m *RedisRepositoryManager) RunMigrations(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}

func (m *RedisRepositoryManager) Close() error {
	return m.rdb.Close()
}
