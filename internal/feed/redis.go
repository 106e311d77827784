package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/pubsub/redis"
	log "github.com/sirupsen/logrus"
	"github.com/titanous/json5"
)

var subscribeTimeout = 5 * time.Second

var _ Feed = (*Redis)(nil)

// Redis receives frame timestamps published by a device side bridge on a
// redis channel. A message carries either a single decimal timestamp or a
// JSON array of timestamps in presentation order.
type Redis struct {
	cfg  config.RedisFeed
	subs *subscribers

	m      sync.Mutex
	client *redis.Client
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedis(cfg config.RedisFeed) *Redis {
	return &Redis{cfg: cfg, subs: newSubscribers()}
}

func (r *Redis) Subscribe(onFrame FrameHandler) (Handle, error) {
	h, first, err := r.subs.add(onFrame)
	if err != nil {
		return 0, err
	}
	if first {
		if err := r.listen(); err != nil {
			_, _ = r.subs.remove(h)
			return 0, err
		}
	}
	return h, nil
}

func (r *Redis) Unsubscribe(h Handle) error {
	last, err := r.subs.remove(h)
	if err != nil {
		return err
	}
	if last {
		r.halt()
	}
	return nil
}

func (r *Redis) Close() error {
	r.subs.close()
	r.halt()

	r.m.Lock()
	defer r.m.Unlock()

	if r.client != nil {
		err := r.client.Close()
		r.client = nil
		return err
	}
	return nil
}

// listen connects and subscribes to the frame channel. It returns once the
// server confirmed the subscription, or with the error that prevented it.
func (r *Redis) listen() error {
	r.m.Lock()

	if r.cancel != nil {
		r.m.Unlock()
		return nil
	}

	if r.client == nil {
		c, err := redis.NewClient(r.cfg.Network, r.cfg.Address, r.cfg.Password)
		if err != nil {
			r.m.Unlock()
			return fmt.Errorf("failed to connect to redis frame feed: %w", err)
		}
		r.client = c
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	started := make(chan error, 1)
	r.cancel, r.done = cancel, done
	client := r.client
	r.m.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		err := client.ListenChannels(ctx,
			func() error {
				log.WithField("feed", "redis").
					WithField("channel", r.cfg.Channel).
					Debug("Subscribed to frame channel")
				select {
				case started <- nil:
				default:
				}
				return nil
			},
			func(channel string, data []byte) error {
				timestamps, err := ParseTimestamps(data)
				if err != nil {
					log.WithField("feed", "redis").Warnf("Discarding malformed frame message: %v", err)
					return nil
				}
				for _, ts := range timestamps {
					r.subs.deliver(ts)
				}
				return nil
			},
			r.cfg.Channel)

		if err == nil {
			err = errors.New("frame channel listener stopped")
		}
		select {
		case started <- err:
		default:
		}

		if ctx.Err() == nil {
			log.WithField("feed", "redis").Errorf("Frame channel listener stopped: %v", err)
			r.forget(done)
		}
	}()

	select {
	case err := <-started:
		if err == nil {
			return nil
		}
		r.forget(done)
		return fmt.Errorf("failed to subscribe to redis frame channel %s: %w", r.cfg.Channel, err)
	case <-time.After(subscribeTimeout):
		cancel()
		r.forget(done)
		return fmt.Errorf("timed out subscribing to redis frame channel %s", r.cfg.Channel)
	}
}

// forget clears the listener state if it still belongs to the listener
// identified by done, so that the next subscriber starts a new one.
func (r *Redis) forget(done chan struct{}) {
	r.m.Lock()
	defer r.m.Unlock()

	if r.done == done {
		r.cancel, r.done = nil, nil
	}
}

func (r *Redis) halt() {
	r.m.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.m.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func ParseTimestamps(data []byte) ([]int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	if data[0] == '[' {
		var timestamps []int64
		if err := json5.Unmarshal(data, &timestamps); err != nil {
			return nil, err
		}
		return timestamps, nil
	}

	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil, err
	}
	return []int64{ts}, nil
}
