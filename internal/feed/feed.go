// Package feed delivers frame presentation timestamps to subscribers.
//
// Timestamps are int64 monotonic clock readings in nanoseconds and are
// delivered on the feed's own goroutine, one call per presented frame.
package feed

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/mitchellh/mapstructure"
)

var (
	ErrClosed        = errors.New("feed is closed")
	ErrUnknownHandle = errors.New("unknown subscription handle")
)

type FrameHandler func(timestamp int64)

type Handle uint64

type Feed interface {
	Subscribe(onFrame FrameHandler) (Handle, error)
	Unsubscribe(h Handle) error
	Close() error
}

func NewFeed(cfg config.Feed, refreshRate float64) (Feed, error) {
	switch cfg.Adapter {
	case "ticker":
		c := config.Ticker{}
		if err := mapstructure.Decode(cfg.Adapters[cfg.Adapter], &c); err != nil {
			return nil, fmt.Errorf("failed to decode %s feed configuration: %w", cfg.Adapter, err)
		}
		if c.RefreshRate <= 0 {
			c.RefreshRate = refreshRate
		}
		return NewTicker(c.RefreshRate), nil
	case "redis":
		c := config.RedisFeed{}
		if err := mapstructure.Decode(cfg.Adapters[cfg.Adapter], &c); err != nil {
			return nil, fmt.Errorf("failed to decode %s feed configuration: %w", cfg.Adapter, err)
		}
		return NewRedis(c), nil
	default:
		return nil, fmt.Errorf("unknown feed adapter '%s'", cfg.Adapter)
	}
}

// subscribers is the fan-out list shared by the feed implementations.
type subscribers struct {
	m        sync.Mutex
	next     Handle
	handlers map[Handle]FrameHandler
	closed   bool
}

func newSubscribers() *subscribers {
	return &subscribers{handlers: make(map[Handle]FrameHandler)}
}

// add returns the new handle and whether it is the first subscriber.
func (s *subscribers) add(fn FrameHandler) (Handle, bool, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		return 0, false, ErrClosed
	}
	if fn == nil {
		return 0, false, errors.New("nil frame handler")
	}

	s.next++
	s.handlers[s.next] = fn
	return s.next, len(s.handlers) == 1, nil
}

// remove returns whether the last subscriber was removed.
func (s *subscribers) remove(h Handle) (bool, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.handlers[h]; !ok {
		return false, ErrUnknownHandle
	}
	delete(s.handlers, h)
	return len(s.handlers) == 0, nil
}

func (s *subscribers) close() {
	s.m.Lock()
	defer s.m.Unlock()

	s.closed = true
	s.handlers = make(map[Handle]FrameHandler)
}

func (s *subscribers) deliver(ts int64) {
	s.m.Lock()
	handlers := make([]FrameHandler, 0, len(s.handlers))
	for _, fn := range s.handlers {
		handlers = append(handlers, fn)
	}
	s.m.Unlock()

	for _, fn := range handlers {
		fn(ts)
	}
}

func (s *subscribers) len() int {
	s.m.Lock()
	defer s.m.Unlock()

	return len(s.handlers)
}
