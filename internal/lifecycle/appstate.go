package lifecycle

import (
	"fmt"
	"sync"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/monitor"
	log "github.com/sirupsen/logrus"
)

type AppState string

const (
	AppStateActive     AppState = "active"
	AppStateBackground AppState = "background"
	AppStateInactive   AppState = "inactive"
)

func ParseAppState(s string) (AppState, error) {
	switch st := AppState(s); st {
	case AppStateActive, AppStateBackground, AppStateInactive:
		return st, nil
	default:
		return "", fmt.Errorf("unknown app state '%s'", s)
	}
}

type Monitor interface {
	Start() error
	Stop() framestats.Stats
	State() monitor.State
}

// AppStateWatcher stops monitoring when the host app goes to the background
// and resumes it when the app comes back to the foreground.
type AppStateWatcher struct {
	m        sync.Mutex
	monitor  Monitor
	previous AppState
}

func NewAppStateWatcher(m Monitor) *AppStateWatcher {
	return &AppStateWatcher{monitor: m}
}

func (w *AppStateWatcher) OnAppStateChange(state AppState) error {
	w.m.Lock()
	defer w.m.Unlock()

	previous := w.previous
	w.previous = state

	logger := log.WithField("component", "appstate").
		WithField("from", previous).
		WithField("to", state)

	running := w.monitor.State() == monitor.StateRunning

	switch {
	case previous == AppStateBackground && state == AppStateActive && !running:
		logger.Debug("App returned to foreground, resuming frame monitoring")
		return w.monitor.Start()
	case state == AppStateBackground && running:
		logger.Debug("App moved to background, stopping frame monitoring")
		w.monitor.Stop()
	}

	return nil
}

func (w *AppStateWatcher) Previous() AppState {
	w.m.Lock()
	defer w.m.Unlock()

	return w.previous
}
