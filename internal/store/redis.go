package store

import (
	"context"
	"fmt"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/pubsub/redis"
)

var _ Store = (*Redis)(nil)

type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(cfg config.RedisStore) (*Redis, error) {
	c, err := redis.NewClient(cfg.Network, cfg.Address, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis store: %w", err)
	}
	return &Redis{client: c, prefix: cfg.Prefix}, nil
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.key(key), value)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	return r.client.Get(ctx, r.key(key))
}

func (r *Redis) Close() error {
	return r.client.Close()
}
