package feed

import (
	"sync"
	"time"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
	log "github.com/sirupsen/logrus"
)

var _ Feed = (*Ticker)(nil)

// Ticker emulates a vsync signal with a local ticker. A frame is reported on
// every tick, so drops only show up when the delivering goroutine falls
// behind (the ticker then skips ticks).
type Ticker struct {
	interval time.Duration
	base     time.Time
	subs     *subscribers

	m    sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewTicker(refreshRate float64) *Ticker {
	return &Ticker{
		interval: framestats.IntervalForRate(refreshRate),
		base:     time.Now(),
		subs:     newSubscribers(),
	}
}

func (t *Ticker) Interval() time.Duration {
	return t.interval
}

func (t *Ticker) Subscribe(onFrame FrameHandler) (Handle, error) {
	h, first, err := t.subs.add(onFrame)
	if err != nil {
		return 0, err
	}
	if first {
		t.start()
	}
	return h, nil
}

func (t *Ticker) Unsubscribe(h Handle) error {
	last, err := t.subs.remove(h)
	if err != nil {
		return err
	}
	if last {
		t.halt()
	}
	return nil
}

func (t *Ticker) Close() error {
	t.subs.close()
	t.halt()
	return nil
}

func (t *Ticker) start() {
	t.m.Lock()
	defer t.m.Unlock()

	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go t.run(t.stop, t.done)

	log.WithField("feed", "ticker").
		WithField("interval", t.interval).
		Debug("Frame ticker started")
}

func (t *Ticker) halt() {
	t.m.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.m.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	log.WithField("feed", "ticker").Debug("Frame ticker stopped")
}

func (t *Ticker) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			t.subs.deliver(int64(now.Sub(t.base)))
		}
	}
}
