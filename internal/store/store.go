// Package store persists serialized frame statistics snapshots under a
// caller supplied key.
package store

import (
	"context"
	"fmt"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/mitchellh/mapstructure"
)

type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Getter is implemented by stores that can read snapshots back.
type Getter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

func NewStore(cfg config.Store) (Store, error) {
	switch cfg.Adapter {
	case "file":
		c := config.FileStore{}
		if err := mapstructure.Decode(cfg.Adapters[cfg.Adapter], &c); err != nil {
			return nil, fmt.Errorf("failed to decode %s store configuration: %w", cfg.Adapter, err)
		}
		return NewFile(c)
	case "redis":
		c := config.RedisStore{}
		if err := mapstructure.Decode(cfg.Adapters[cfg.Adapter], &c); err != nil {
			return nil, fmt.Errorf("failed to decode %s store configuration: %w", cfg.Adapter, err)
		}
		return NewRedis(c)
	case "sqlite":
		c := config.SQLiteStore{}
		if err := mapstructure.Decode(cfg.Adapters[cfg.Adapter], &c); err != nil {
			return nil, fmt.Errorf("failed to decode %s store configuration: %w", cfg.Adapter, err)
		}
		return NewSQLite(c)
	default:
		return nil, fmt.Errorf("unknown store adapter '%s'", cfg.Adapter)
	}
}
