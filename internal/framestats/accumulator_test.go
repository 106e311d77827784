package framestats

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccumulator(anomalies *[]Anomaly) *Accumulator {
	cfg := Config{ExpectedInterval: 16, Tolerance: 0.5}
	if anomalies != nil {
		cfg.OnAnomaly = func(a Anomaly) { *anomalies = append(*anomalies, a) }
	}
	return NewAccumulator(cfg)
}

func observeAll(a *Accumulator, timestamps ...int64) {
	for _, ts := range timestamps {
		a.Observe(ts)
	}
}

func TestAccumulator_ConstantSpacingHasNoDrops(t *testing.T) {
	a := newTestAccumulator(nil)

	for i := int64(0); i < 600; i++ {
		a.Observe(i * 16)
	}
	a.Finish()

	s := a.Snapshot()
	assert.Equal(t, 600, s.TotalFrames)
	assert.Equal(t, 0, s.DroppedFrames)
	assert.Empty(t, s.DropEvents)
	require.NotNil(t, s.WindowStart)
	require.NotNil(t, s.WindowEnd)
	assert.Equal(t, int64(0), *s.WindowStart)
	assert.Equal(t, int64(599*16), *s.WindowEnd)
}

func TestAccumulator_SingleTripleGap(t *testing.T) {
	a := newTestAccumulator(nil)

	observeAll(a, 0, 16, 32, 48, 96, 112, 128)
	a.Finish()

	s := a.Snapshot()
	require.Len(t, s.DropEvents, 1)
	assert.Equal(t, DropEvent{Start: 48, End: 96, Count: 2}, s.DropEvents[0])
	assert.Equal(t, 2, s.DroppedFrames)
}

func TestAccumulator_ClockJumpIsBounded(t *testing.T) {
	a := newTestAccumulator(nil)

	observeAll(a, 0, math.MaxInt64)

	s := a.Snapshot()
	require.Len(t, s.DropEvents, 1)
	assert.Equal(t, math.MaxInt32, s.DropEvents[0].Count)
	assert.Equal(t, math.MaxInt32, s.DroppedFrames)
	assert.Equal(t, 2, s.TotalFrames)
}

func TestDropCount(t *testing.T) {
	assert.Equal(t, 2, dropCount(48, 16))
	assert.Equal(t, 1, dropCount(36, 16))
	assert.Equal(t, math.MaxInt32, dropCount(math.MaxInt64, 1))
	assert.Equal(t, math.MaxInt32-1, dropCount(math.MaxInt32, 1))
}

func TestAccumulator_Scenario(t *testing.T) {
	a := newTestAccumulator(nil)

	observeAll(a, 0, 16, 32, 80, 96)
	a.Finish()

	s := a.Snapshot()
	assert.Equal(t, 5, s.TotalFrames)
	assert.Equal(t, 2, s.DroppedFrames)
	require.Len(t, s.DropEvents, 1)
	assert.Equal(t, DropEvent{Start: 32, End: 80, Count: 2}, s.DropEvents[0])
	assert.Equal(t, int64(96), s.Duration())
}

func TestAccumulator_Classification(t *testing.T) {
	tests := []struct {
		name    string
		gap     int64
		dropped int
	}{
		{"nominal", 16, 0},
		{"jitter below tolerance", 23, 0},
		{"exactly at tolerance", 24, 0},
		{"just above tolerance", 25, 1},
		{"double interval", 32, 1},
		{"triple interval", 48, 2},
		{"long stall", 160, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAccumulator(nil)
			observeAll(a, 0, tt.gap)

			s := a.Snapshot()
			assert.Equal(t, tt.dropped, s.DroppedFrames)
			assert.Equal(t, 2, s.TotalFrames)
			if tt.dropped == 0 {
				assert.Empty(t, s.DropEvents)
			} else {
				require.Len(t, s.DropEvents, 1)
				assert.Equal(t, tt.dropped, s.DropEvents[0].Count)
			}
		})
	}
}

func TestAccumulator_EmptySnapshot(t *testing.T) {
	a := newTestAccumulator(nil)

	s := a.Snapshot()
	assert.Equal(t, 0, s.TotalFrames)
	assert.Equal(t, 0, s.DroppedFrames)
	assert.NotNil(t, s.DropEvents)
	assert.Empty(t, s.DropEvents)
	assert.Nil(t, s.WindowStart)
	assert.Nil(t, s.WindowEnd)
}

func TestAccumulator_SingleSampleWindow(t *testing.T) {
	a := newTestAccumulator(nil)

	a.Observe(42)
	s := a.Snapshot()
	require.NotNil(t, s.WindowStart)
	assert.Nil(t, s.WindowEnd, "window end is undefined before finish")

	a.Finish()
	s = a.Snapshot()
	require.NotNil(t, s.WindowEnd)
	assert.Equal(t, *s.WindowStart, *s.WindowEnd)
}

func TestAccumulator_IgnoresNonIncreasing(t *testing.T) {
	var anomalies []Anomaly
	a := newTestAccumulator(&anomalies)

	observeAll(a, 0, 16, 8, 16, 32)

	s := a.Snapshot()
	assert.Equal(t, 3, s.TotalFrames)
	assert.Equal(t, 0, s.DroppedFrames)
	assert.Equal(t, []Anomaly{AnomalyOutOfOrder, AnomalyDuplicate}, anomalies)
}

func TestAccumulator_ObserveAfterFinish(t *testing.T) {
	var anomalies []Anomaly
	a := newTestAccumulator(&anomalies)

	observeAll(a, 0, 16)
	a.Finish()
	before := a.Snapshot()

	a.Observe(1000)
	a.Finish()

	after := a.Snapshot()
	assert.True(t, before.Equal(after))
	assert.Equal(t, []Anomaly{AnomalyAfterFinish}, anomalies)
	assert.True(t, a.Finished())
}

func TestAccumulator_InvalidConfigFallsBack(t *testing.T) {
	var anomalies []Anomaly
	a := NewAccumulator(Config{
		ExpectedInterval: 0,
		Tolerance:        -1,
		OnAnomaly:        func(k Anomaly) { anomalies = append(anomalies, k) },
	})

	assert.Equal(t, IntervalForRate(DefaultRefreshRate), a.ExpectedInterval())
	assert.Equal(t, DefaultTolerance, a.Tolerance())
	assert.Len(t, anomalies, 2)
}

func TestAccumulator_OnDrop(t *testing.T) {
	var drops []DropEvent
	a := NewAccumulator(Config{
		ExpectedInterval: 16,
		Tolerance:        0.5,
		OnDrop:           func(e DropEvent) { drops = append(drops, e) },
	})

	observeAll(a, 0, 16, 64, 80, 112)

	assert.Equal(t, []DropEvent{
		{Start: 16, End: 64, Count: 2},
		{Start: 80, End: 112, Count: 1},
	}, drops)
}

func TestAccumulator_SnapshotIsCopy(t *testing.T) {
	a := newTestAccumulator(nil)
	observeAll(a, 0, 48)

	s := a.Snapshot()
	s.DropEvents[0].Count = 100

	assert.Equal(t, 2, a.Snapshot().DropEvents[0].Count)
}

func TestAccumulator_ConcurrentSnapshot(t *testing.T) {
	a := NewAccumulator(Config{ExpectedInterval: time.Millisecond, Tolerance: 0.5})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ts := int64(0)
		for i := 0; i < 5000; i++ {
			ts += int64(time.Millisecond)
			if i%100 == 0 {
				ts += int64(3 * time.Millisecond)
			}
			a.Observe(ts)
		}
		a.Finish()
	}()

	for !a.Finished() {
		s := a.Snapshot()
		sum := 0
		for _, e := range s.DropEvents {
			sum += e.Count
		}
		assert.Equal(t, sum, s.DroppedFrames)
	}
	wg.Wait()

	s := a.Snapshot()
	assert.Equal(t, 5000, s.TotalFrames)
	assert.Equal(t, 49*3, s.DroppedFrames)
}

func TestIntervalForRate(t *testing.T) {
	assert.Equal(t, 16666666*time.Nanosecond, IntervalForRate(60))
	assert.Equal(t, 8333333*time.Nanosecond, IntervalForRate(120))
	assert.Equal(t, IntervalForRate(60), IntervalForRate(0))
}
