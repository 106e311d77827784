package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/pubsub/events"
	log "github.com/sirupsen/logrus"
)

type HTTPServer struct {
	port   int
	server *Server
}

func NewHTTPServer(port int, s *Server) *HTTPServer {
	return &HTTPServer{port: port, server: s}
}

// Handler routes host calls to the same request handling as the pubsub
// surface:
//
//	POST /monitor/start
//	POST /monitor/stop
//	GET  /monitor/stats
//	POST /monitor/reset
//	POST /monitor/slow-period-listener
//	DELETE /monitor/slow-period-listener
//	POST /monitor/app-state?state=<active|background|inactive>
//	GET  /monitor/status
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, method, id string) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.Header().Set("Allow", method)
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.handle(w, &events.Request{
				Id:        id,
				RequestId: r.URL.Query().Get("requestId"),
				State:     r.URL.Query().Get("state"),
			})
		})
	}

	route("/monitor/start", http.MethodPost, events.StartMonitoringKey)
	route("/monitor/stop", http.MethodPost, events.StopMonitoringKey)
	route("/monitor/stats", http.MethodGet, events.GetStatsKey)
	route("/monitor/reset", http.MethodPost, events.ResetStatsKey)
	route("/monitor/app-state", http.MethodPost, events.AppStateChangedKey)
	route("/monitor/status", http.MethodGet, events.GetMonitorStatusKey)

	mux.HandleFunc("/monitor/slow-period-listener", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.handle(w, &events.Request{Id: events.AddSlowPeriodEventListenerKey})
		case http.MethodDelete:
			h.handle(w, &events.Request{Id: events.RemoveSlowPeriodEventListenerKey})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}

func (h *HTTPServer) handle(w http.ResponseWriter, req *events.Request) {
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	res := h.server.Handle(req)
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	status := http.StatusOK
	if start, ok := res.(*events.StartMonitoringResponse); ok && start.Status == events.StatusFailed {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Errorf("failed to write %s response: %v", req.Id, err)
	}
}

func (h *HTTPServer) Serve() {
	addr := ":" + strconv.Itoa(h.port)
	go func() {
		log.Printf("starting http server on %s", addr)
		if err := http.ListenAndServe(addr, h.Handler()); err != nil {
			log.Error(fmt.Errorf("http server stopped: %w", err))
		}
	}()
}
