package server

import (
	"context"
	"encoding/json"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/appstats"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/lifecycle"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/monitor"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/pubsub"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/pubsub/events"
	log "github.com/sirupsen/logrus"
)

// Controller is the monitor surface exposed to the host.
type Controller interface {
	Start() error
	Stop() framestats.Stats
	GetStats() framestats.Stats
	State() monitor.State
	AddSlowPeriodEventListener()
	RemoveSlowPeriodEventListener()
	ResetStats()
}

var _ Controller = (*monitor.Controller)(nil)

type Server struct {
	cfg      *config.Config
	pubsub   pubsub.PubSub
	monitor  Controller
	appState *lifecycle.AppStateWatcher
}

// NewServer builds the control surface. ps may be nil when only the HTTP
// surface is enabled.
func NewServer(cfg *config.Config, ps pubsub.PubSub, m Controller) *Server {
	return &Server{
		cfg:      cfg,
		pubsub:   ps,
		monitor:  m,
		appState: lifecycle.NewAppStateWatcher(m),
	}
}

func (s *Server) HandlePubSub(ctx context.Context, msg []byte) {
	log.Trace(string(msg))
	req, err := events.Decode(msg)
	appstats.OnServerRequest(req.Id, err == nil)

	if err != nil {
		log.WithField("request", req.Id).Warnf("Invalid request: %v", err)
		return
	}

	if res := s.Handle(req); res != nil {
		s.PublishPubSub(req.Id, res)
	}
}

// Handle runs a decoded request against the monitor and returns the
// response to publish, if the request has one.
func (s *Server) Handle(req *events.Request) interface{} {
	switch req.Id {
	case events.StartMonitoringKey:
		if err := s.monitor.Start(); err != nil {
			return req.StartFail(err)
		}
		return req.StartSuccess()

	case events.StopMonitoringKey:
		return req.Stopped(s.monitor.Stop())

	case events.GetStatsKey:
		return req.Stats(s.monitor.GetStats())

	case events.ResetStatsKey:
		s.monitor.ResetStats()

	case events.AddSlowPeriodEventListenerKey:
		s.monitor.AddSlowPeriodEventListener()

	case events.RemoveSlowPeriodEventListenerKey:
		s.monitor.RemoveSlowPeriodEventListener()

	case events.AppStateChangedKey:
		state, err := lifecycle.ParseAppState(req.State)
		if err != nil {
			log.Warn(err)
			return nil
		}
		if err := s.appState.OnAppStateChange(state); err != nil {
			return req.StartFail(err)
		}

	case events.GetMonitorStatusKey:
		return s.status()
	}

	return nil
}

func (s *Server) status() *events.MonitorStatus {
	return events.NewMonitorStatus(s.cfg.App.Version, s.cfg.App.InstanceId, s.monitor.State().String())
}

func (s *Server) PublishPubSub(method string, msg interface{}) {
	if s.pubsub == nil {
		return
	}

	j, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("failed to marshal %s response: %v", method, err)
		return
	}

	if err := s.pubsub.Publish(s.cfg.PubSub.Channels.Publish, j); err != nil {
		log.Errorf("failed to publish %s response: %v", method, err)
		return
	}

	appstats.OnServerResponse(method)
}

// OnStopped publishes the tracked stats event for a finished monitoring
// window.
func (s *Server) OnStopped(stats framestats.Stats) {
	if !s.cfg.Monitor.TrackStats {
		return
	}
	s.PublishPubSub(events.FrameRateStatsTrackedKey, events.NewFrameRateStatsTracked(stats))
}

func (s *Server) OnStart() error {
	log.Info("Application started. Version=", s.cfg.App.Version, " InstanceId=", s.cfg.App.InstanceId)
	s.PublishPubSub(events.GetMonitorStatusKey, s.status())
	return nil
}
