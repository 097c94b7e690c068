// Package store persists the test case and connection collections.
//
// Each collection lives under one key as a JSON array. A Backend supplies the
// key-value primitive; Store layers lazy loading, caching and whole-collection
// writes on top of it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tqp/internal/config"
)

// ErrNotFound is returned by Backend.Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a minimal key-value store. Implementations must be safe for
// concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.DriverRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
