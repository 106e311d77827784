package pubsub

import (
	"context"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/pubsub/redis"
)

var _ PubSub = (*Redis)(nil)

type Redis struct {
	config config.Redis
	client *redis.Client
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRedis(cfg config.Redis) (*Redis, error) {
	c, err := redis.NewClient(cfg.Network, cfg.Address, cfg.Password)
	if err != nil {
		return nil, err
	}

	r := &Redis{config: cfg, client: c}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r, nil
}

// Subscribe blocks until Close is called or the connection fails.
func (r *Redis) Subscribe(channel string, handler PubSubHandler, onStart func() error) error {
	return r.client.ListenChannels(r.ctx, onStart,
		func(channel string, message []byte) error {
			handler(r.ctx, message)
			return nil
		},
		channel)
}

func (r *Redis) Publish(channel string, message []byte) error {
	return r.client.Publish(channel, message)
}

func (r *Redis) Check() error {
	return r.client.Check()
}

func (r *Redis) Close() error {
	r.cancel()
	return r.client.Close()
}
