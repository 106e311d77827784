package framestats

import (
	"math"
	"sync"
	"time"

	"github.com/AlekSi/pointer"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRefreshRate = 60
	DefaultTolerance   = 0.5
)

type Anomaly string

const (
	AnomalyOutOfOrder    Anomaly = "out_of_order"
	AnomalyDuplicate     Anomaly = "duplicate"
	AnomalyAfterFinish   Anomaly = "observe_after_finish"
	AnomalyInvalidConfig Anomaly = "invalid_config"
)

type Config struct {
	// ExpectedInterval is the nominal time between two frames, expressed in
	// the same units as the observed timestamps.
	ExpectedInterval time.Duration
	// Tolerance is the fraction of ExpectedInterval a gap may exceed before
	// it counts as dropped frames.
	Tolerance float64

	OnAnomaly func(Anomaly)
	OnDrop    func(DropEvent)
}

// IntervalForRate returns the frame interval of a display refreshing at hz.
func IntervalForRate(hz float64) time.Duration {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return time.Duration(float64(time.Second) / hz)
}

// Accumulator folds a stream of frame presentation timestamps into Stats.
// Observe and Finish are meant to be called from the feed goroutine while
// Snapshot may be called from anywhere.
type Accumulator struct {
	m         sync.Mutex
	expected  int64
	tolerance float64
	onAnomaly func(Anomaly)
	onDrop    func(DropEvent)

	started  bool
	finished bool
	first    int64
	previous int64
	total    int
	dropped  int
	events   []DropEvent
}

func NewAccumulator(cfg Config) *Accumulator {
	a := &Accumulator{
		expected:  int64(cfg.ExpectedInterval),
		tolerance: cfg.Tolerance,
		onAnomaly: cfg.OnAnomaly,
		onDrop:    cfg.OnDrop,
		events:    make([]DropEvent, 0),
	}

	if a.expected <= 0 {
		log.WithField("expectedInterval", cfg.ExpectedInterval).
			Warnf("Invalid expected frame interval, using %d Hz", DefaultRefreshRate)
		a.expected = int64(IntervalForRate(DefaultRefreshRate))
		a.anomaly(AnomalyInvalidConfig)
	}

	if a.tolerance < 0 || math.IsNaN(a.tolerance) {
		log.WithField("tolerance", cfg.Tolerance).
			Warnf("Invalid drop tolerance, using %.2f", DefaultTolerance)
		a.tolerance = DefaultTolerance
		a.anomaly(AnomalyInvalidConfig)
	}

	return a
}

func (a *Accumulator) ExpectedInterval() time.Duration {
	return time.Duration(a.expected)
}

func (a *Accumulator) Tolerance() float64 {
	return a.tolerance
}

func (a *Accumulator) Observe(ts int64) {
	a.m.Lock()

	if a.finished {
		a.m.Unlock()
		log.WithField("timestamp", ts).Debug("Frame observed after monitoring finished, ignoring")
		a.anomaly(AnomalyAfterFinish)
		return
	}

	if !a.started {
		a.started = true
		a.first = ts
		a.previous = ts
		a.total = 1
		a.m.Unlock()
		return
	}

	if ts <= a.previous {
		previous := a.previous
		a.m.Unlock()

		kind := AnomalyOutOfOrder
		if ts == previous {
			kind = AnomalyDuplicate
		}
		log.WithField("timestamp", ts).
			WithField("previous", previous).
			Debugf("Ignoring non-increasing frame timestamp (%s)", kind)
		a.anomaly(kind)
		return
	}

	gap := ts - a.previous
	var drop *DropEvent

	if float64(gap) > float64(a.expected)*(1+a.tolerance) {
		count := dropCount(gap, a.expected)
		if count > 0 {
			drop = &DropEvent{Start: a.previous, End: ts, Count: count}
			a.events = append(a.events, *drop)
			a.dropped += count
		}
	}

	a.previous = ts
	a.total++
	a.m.Unlock()

	if drop != nil {
		log.WithField("gap", gap).Tracef("Detected %d dropped frames", drop.Count)
		if a.onDrop != nil {
			a.onDrop(*drop)
		}
	}
}

// Finish closes the window. Further observations are ignored.
func (a *Accumulator) Finish() {
	a.m.Lock()
	defer a.m.Unlock()

	if a.finished {
		return
	}
	a.finished = true
}

func (a *Accumulator) Finished() bool {
	a.m.Lock()
	defer a.m.Unlock()

	return a.finished
}

func (a *Accumulator) Snapshot() Stats {
	a.m.Lock()
	defer a.m.Unlock()

	s := Stats{
		TotalFrames:   a.total,
		DroppedFrames: a.dropped,
		DropEvents:    slicesClone(a.events),
	}

	if a.started {
		s.WindowStart = pointer.ToInt64(a.first)
		if a.finished {
			// previous equals first when a single frame was observed
			s.WindowEnd = pointer.ToInt64(a.previous)
		}
	}

	return s
}

func (a *Accumulator) anomaly(kind Anomaly) {
	if a.onAnomaly != nil {
		a.onAnomaly(kind)
	}
}

func slicesClone(events []DropEvent) []DropEvent {
	out := make([]DropEvent, len(events))
	copy(out, events)
	return out
}

// maxDropCount bounds a single drop event so that clock jumps near the int64
// range cannot overflow the conversion.
const maxDropCount = math.MaxInt32

func dropCount(gap, expected int64) int {
	frames := math.Round(float64(gap) / float64(expected))
	if frames > maxDropCount+1 {
		return maxDropCount
	}
	return int(frames) - 1
}
