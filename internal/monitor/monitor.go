// Package monitor owns the frame monitoring lifecycle: it subscribes a fresh
// accumulator to the frame feed on start, and on stop finalizes it and
// persists a JSON snapshot keyed by the wall-clock time in milliseconds.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/appstats"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/feed"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/store"
	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
)

const defaultPersistTimeout = 2 * time.Second

// ErrSubscribe is returned by Start when the frame feed refused the
// subscription. Monitoring is not running in that case.
var ErrSubscribe = errors.New("failed to subscribe to frame feed")

type Options struct {
	ExpectedInterval time.Duration
	Tolerance        float64
	PersistTimeout   time.Duration
	// Now is used to derive snapshot keys, defaults to time.Now.
	Now func() time.Time
}

func OptionsFromConfig(cfg config.Monitor) Options {
	return Options{
		ExpectedInterval: framestats.IntervalForRate(cfg.RefreshRate),
		Tolerance:        cfg.Tolerance,
		PersistTimeout:   cfg.PersistTimeout,
	}
}

type Controller struct {
	m      sync.Mutex
	state  State
	feed   feed.Feed
	store  store.Store
	opts   Options
	acc    *framestats.Accumulator
	handle feed.Handle

	pending   sync.WaitGroup
	onStopped func(framestats.Stats)
	logger    *log.Entry
}

func NewController(f feed.Feed, s store.Store, opts Options) *Controller {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		feed:   f,
		store:  s,
		opts:   opts,
		logger: log.WithField("component", "monitor"),
	}
}

// SetStoppedCallback registers fn to receive the final stats of every
// monitoring window. It runs on the goroutine calling Stop.
func (c *Controller) SetStoppedCallback(fn func(stats framestats.Stats)) {
	c.m.Lock()
	defer c.m.Unlock()

	c.onStopped = fn
}

func (c *Controller) State() State {
	c.m.Lock()
	defer c.m.Unlock()

	return c.state
}

func (c *Controller) Start() error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.state == StateRunning {
		c.logger.Debug("Monitoring running already, cannot start twice")
		appstats.OnAnomaly("start_while_running")
		return nil
	}

	acc := framestats.NewAccumulator(framestats.Config{
		ExpectedInterval: c.opts.ExpectedInterval,
		Tolerance:        c.opts.Tolerance,
		OnAnomaly: func(kind framestats.Anomaly) {
			appstats.OnAnomaly(string(kind))
		},
		OnDrop: appstats.OnDropEvent,
	})

	h, err := c.feed.Subscribe(acc.Observe)
	if err != nil {
		c.logger.Errorf("Could not start monitoring: %v", err)
		return fmt.Errorf("%w: %v", ErrSubscribe, err)
	}

	c.acc = acc
	c.handle = h
	c.state = StateRunning
	appstats.OnMonitoringStarted()

	c.logger.WithField("expectedInterval", acc.ExpectedInterval()).
		Info("Started monitoring frame rate")

	return nil
}

// Stop ends the current monitoring window and returns its final stats. The
// snapshot is persisted in the background; Close waits for pending writes.
func (c *Controller) Stop() framestats.Stats {
	c.m.Lock()

	if c.state == StateIdle {
		c.m.Unlock()
		c.logger.Debug("Monitoring isn't running, cannot stop it")
		appstats.OnAnomaly("stop_while_idle")
		return c.GetStats()
	}

	if err := c.feed.Unsubscribe(c.handle); err != nil {
		c.logger.Warnf("Failed to unsubscribe from frame feed: %v", err)
	}

	c.acc.Finish()
	stats := c.acc.Snapshot()
	c.state = StateIdle
	onStopped := c.onStopped
	key := strconv.FormatInt(c.opts.Now().UnixMilli(), 10)
	c.persist(key, stats)
	c.m.Unlock()

	appstats.OnMonitoringStopped(stats)

	c.logger.WithField("totalFrames", stats.TotalFrames).
		WithField("droppedFrames", stats.DroppedFrames).
		WithField("dropEvents", len(stats.DropEvents)).
		Info("Stopped monitoring frame rate")
	c.logger.Trace(pretty.Sprint(stats))

	if onStopped != nil {
		onStopped(stats)
	}

	return stats
}

// persist must be called with c.m held so that Close observes the pending
// write.
func (c *Controller) persist(key string, stats framestats.Stats) {
	value, err := stats.Serialize()
	if err != nil {
		c.logger.Errorf("Failed to serialize frame stats: %v", err)
		appstats.OnSnapshotPersisted(err)
		return
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.PersistTimeout)
		defer cancel()

		err := c.store.Put(ctx, key, value)
		appstats.OnSnapshotPersisted(err)

		if err != nil {
			c.logger.WithField("key", key).Errorf("Failed to persist frame stats: %v", err)
			return
		}

		c.logger.WithField("key", key).Debug("Persisted frame stats snapshot")
	}()
}

// GetStats returns the stats of the current (or last) monitoring window, or
// zeroed stats when monitoring never started.
func (c *Controller) GetStats() framestats.Stats {
	c.m.Lock()
	acc := c.acc
	c.m.Unlock()

	if acc == nil {
		return framestats.Empty()
	}

	return acc.Snapshot()
}

// AddSlowPeriodEventListener is reserved for slow period notifications.
func (c *Controller) AddSlowPeriodEventListener() {
	c.logger.Trace("addSlowPeriodEventListener is not implemented")
}

// RemoveSlowPeriodEventListener is reserved for slow period notifications.
func (c *Controller) RemoveSlowPeriodEventListener() {
	c.logger.Trace("removeSlowPeriodEventListener is not implemented")
}

// ResetStats is reserved for resetting stats independently of start/stop.
func (c *Controller) ResetStats() {
	c.logger.Trace("resetStats is not implemented")
}

// Close stops monitoring if needed and waits for pending snapshot writes.
func (c *Controller) Close() error {
	if c.State() == StateRunning {
		c.Stop()
	}
	c.pending.Wait()
	return nil
}
