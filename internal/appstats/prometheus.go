package appstats

import (
	"net/http"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "frame_monitor",
		Name:      "in_requests",
		Help:      "Number of control requests received by the monitor",
	},
		[]string{
			"method",
		})

	InvalidRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "frame_monitor",
		Name:      "invalid_requests",
		Help:      "Number of invalid requests",
	})

	Responses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "frame_monitor",
		Name:      "out_responses",
		Help:      "Number of responses from the monitor",
	},
		[]string{
			"method",
		})

	Running = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: "frame_monitor",
		Name:      "running",
		Help:      "1 while frame monitoring is running",
	})

	FramesObserved = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "frame_monitor",
		Name:      "frames_total",
		Help:      "Total number of frames counted by finished monitoring windows",
	})

	DroppedFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "frame_monitor",
		Name:      "dropped_frames_total",
		Help:      "Total number of dropped frames",
	})

	DropEventSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: "frame_monitor",
		Name:      "drop_event_frames",
		Help:      "Number of frames skipped by a single drop event",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 60, 120},
	})

	Anomalies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "frame_monitor",
		Name:      "anomalies_total",
		Help:      "Total number of ignored frame timestamps and sequencing errors",
	},
		[]string{
			"kind",
		})

	Snapshots = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "frame_monitor",
		Name:      "snapshots_total",
		Help:      "Total number of persisted stats snapshots by outcome",
	},
		[]string{
			"status", // ok, error
		})
)

func Init() {
	prometheus.MustRegister(Requests)
	prometheus.MustRegister(InvalidRequests)
	prometheus.MustRegister(Responses)
	prometheus.MustRegister(Running)
	prometheus.MustRegister(FramesObserved)
	prometheus.MustRegister(DroppedFrames)
	prometheus.MustRegister(DropEventSize)
	prometheus.MustRegister(Anomalies)
	prometheus.MustRegister(Snapshots)
}

func ServePromMetrics(cfg config.Prometheus) {
	if !cfg.Enable {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(cfg.ListenAddress, mux); err != nil {
			log.Errorf("failed to start metrics server: %s", err)
		}
	}()

	log.Infof("Prometheus metrics exported on %s", cfg.ListenAddress)
}

func OnMonitoringStarted() {
	Running.Set(1)
}

func OnMonitoringStopped(stats framestats.Stats) {
	Running.Set(0)
	FramesObserved.Add(float64(stats.TotalFrames))
	DroppedFrames.Add(float64(stats.DroppedFrames))
}

func OnDropEvent(e framestats.DropEvent) {
	DropEventSize.Observe(float64(e.Count))
}

func OnAnomaly(kind string) {
	Anomalies.WithLabelValues(kind).Inc()
}

func OnSnapshotPersisted(err error) {
	if err != nil {
		Snapshots.WithLabelValues("error").Inc()
		return
	}
	Snapshots.WithLabelValues("ok").Inc()
}

func OnServerRequest(method string, valid bool) {
	if valid {
		Requests.WithLabelValues(method).Inc()
	} else {
		InvalidRequests.Inc()
	}
}

func OnServerResponse(method string) {
	Responses.WithLabelValues(method).Inc()
}
