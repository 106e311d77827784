package lifecycle

import (
	"errors"
	"testing"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock Monitor
type mockMonitor struct {
	state    monitor.State
	starts   int
	stops    int
	startErr error
}

func (m *mockMonitor) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	m.state = monitor.StateRunning
	return nil
}

func (m *mockMonitor) Stop() framestats.Stats {
	m.stops++
	m.state = monitor.StateIdle
	return framestats.Empty()
}

func (m *mockMonitor) State() monitor.State { return m.state }

var _ Monitor = (*mockMonitor)(nil)

func TestKillListener_Kill(t *testing.T) {
	k := NewKillListener()

	calls := 0
	k.Register(func() { calls++ })
	k.Kill()
	k.Kill()
	assert.Equal(t, 1, calls, "stop handle runs once per registration")

	k.Register(func() { calls++ })
	k.Unregister()
	k.Kill()
	assert.Equal(t, 1, calls)
}

func TestKillListener_ListenClose(t *testing.T) {
	k := NewKillListener()
	k.Listen(nil)
	k.Listen(nil)
	k.Close()
	k.Close()
}

func TestAppStateWatcher(t *testing.T) {
	tests := []struct {
		name       string
		running    bool
		transition []AppState
		wantStarts int
		wantStops  int
	}{
		{"background stops running monitor", true, []AppState{AppStateActive, AppStateBackground}, 0, 1},
		{"background while idle is ignored", false, []AppState{AppStateBackground}, 0, 0},
		{"foreground resumes", false, []AppState{AppStateBackground, AppStateActive}, 1, 0},
		{"inactive to active does not start", false, []AppState{AppStateInactive, AppStateActive}, 0, 0},
		{"round trip", true, []AppState{AppStateActive, AppStateBackground, AppStateActive}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockMonitor{}
			if tt.running {
				m.state = monitor.StateRunning
			}
			w := NewAppStateWatcher(m)

			for _, s := range tt.transition {
				require.NoError(t, w.OnAppStateChange(s))
			}

			assert.Equal(t, tt.wantStarts, m.starts)
			assert.Equal(t, tt.wantStops, m.stops)
			assert.Equal(t, tt.transition[len(tt.transition)-1], w.Previous())
		})
	}
}

func TestAppStateWatcher_StartError(t *testing.T) {
	m := &mockMonitor{startErr: errors.New("no feed")}
	w := NewAppStateWatcher(m)

	require.NoError(t, w.OnAppStateChange(AppStateBackground))
	assert.Error(t, w.OnAppStateChange(AppStateActive))
}

func TestParseAppState(t *testing.T) {
	s, err := ParseAppState("background")
	require.NoError(t, err)
	assert.Equal(t, AppStateBackground, s)

	_, err = ParseAppState("suspended")
	assert.Error(t, err)
}
