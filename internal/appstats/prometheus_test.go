package appstats

import (
	"errors"
	"testing"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOnMonitoringStopped(t *testing.T) {
	frames := testutil.ToFloat64(FramesObserved)
	dropped := testutil.ToFloat64(DroppedFrames)

	OnMonitoringStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(Running))

	OnMonitoringStopped(framestats.Stats{TotalFrames: 5, DroppedFrames: 2})
	assert.Equal(t, 0.0, testutil.ToFloat64(Running))
	assert.Equal(t, frames+5, testutil.ToFloat64(FramesObserved))
	assert.Equal(t, dropped+2, testutil.ToFloat64(DroppedFrames))
}

func TestOnSnapshotPersisted(t *testing.T) {
	ok := testutil.ToFloat64(Snapshots.WithLabelValues("ok"))
	failed := testutil.ToFloat64(Snapshots.WithLabelValues("error"))

	OnSnapshotPersisted(nil)
	OnSnapshotPersisted(errors.New("disk full"))
	OnSnapshotPersisted(errors.New("disk full"))

	assert.Equal(t, ok+1, testutil.ToFloat64(Snapshots.WithLabelValues("ok")))
	assert.Equal(t, failed+2, testutil.ToFloat64(Snapshots.WithLabelValues("error")))
}

func TestOnServerRequest(t *testing.T) {
	invalid := testutil.ToFloat64(InvalidRequests)

	OnServerRequest("getStats", true)
	OnServerRequest("", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(Requests.WithLabelValues("getStats")))
	assert.Equal(t, invalid+1, testutil.ToFloat64(InvalidRequests))
}
