// Package storage is the key-value persistence used for rule sets and the
// contacted-candidates history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store saves opaque blobs by key. Load returns nil, nil for unknown keys.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Type is one of "file", "memory", "sqlite" or "redis".
	Type string `mapstructure:"type"`

	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlite-path"`

	RedisAddr         string `mapstructure:"redis-addr"`
	RedisPassword     string `mapstructure:"redis-password"`
	RedisPasswordFile string `mapstructure:"redis-password-file"`
	RedisDB           int    `mapstructure:"redis-db"`
	RedisPrefix       string `mapstructure:"redis-prefix"`
}

var ErrEmptyKey = errors.New("storage key is required")

// New creates the configured store. An empty type means "file".
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func checkKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}
