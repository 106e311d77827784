package framestats

import (
	"encoding/json"
	"fmt"
	"slices"
)

// DropEvent covers an inter-frame interval in which one or more refresh
// intervals passed without a new frame being presented.
type DropEvent struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
	Count int   `json:"count"`
}

// Stats is a point-in-time view of an accumulator. WindowStart is nil until
// the first frame was accepted and WindowEnd is nil until the window is
// finished.
type Stats struct {
	TotalFrames   int         `json:"totalFrames"`
	DroppedFrames int         `json:"droppedFrames"`
	DropEvents    []DropEvent `json:"dropEvents"`
	WindowStart   *int64      `json:"windowStart,omitempty"`
	WindowEnd     *int64      `json:"windowEnd,omitempty"`
}

// Empty returns zeroed stats with a non-nil event list, so that it
// serializes as "dropEvents": [].
func Empty() Stats {
	return Stats{DropEvents: []DropEvent{}}
}

func (s Stats) Finished() bool {
	return s.WindowEnd != nil
}

// Duration is the window length in feed units, zero while unfinished.
func (s Stats) Duration() int64 {
	if s.WindowStart == nil || s.WindowEnd == nil {
		return 0
	}
	return *s.WindowEnd - *s.WindowStart
}

func (s Stats) Equal(o Stats) bool {
	return s.TotalFrames == o.TotalFrames &&
		s.DroppedFrames == o.DroppedFrames &&
		slices.Equal(s.DropEvents, o.DropEvents) &&
		equalBound(s.WindowStart, o.WindowStart) &&
		equalBound(s.WindowEnd, o.WindowEnd)
}

func (s Stats) Serialize() ([]byte, error) {
	if s.DropEvents == nil {
		s.DropEvents = []DropEvent{}
	}

	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling failed: %w", err)
	}

	return b, nil
}

func Deserialize(b []byte) (Stats, error) {
	s := Empty()

	if err := json.Unmarshal(b, &s); err != nil {
		return Stats{}, fmt.Errorf("JSON unmarshalling failed: %w", err)
	}

	if s.DropEvents == nil {
		s.DropEvents = []DropEvent{}
	}

	return s, nil
}

func equalBound(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
