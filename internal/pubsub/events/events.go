package events

import (
	"github.com/AlekSi/pointer"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/framestats"
)

const (
	StartMonitoringKey               = "startMonitoring"
	StopMonitoringKey                = "stopMonitoring"
	GetStatsKey                      = "getStats"
	ResetStatsKey                    = "resetStats"
	AddSlowPeriodEventListenerKey    = "addSlowPeriodEventListener"
	RemoveSlowPeriodEventListenerKey = "removeSlowPeriodEventListener"
	AppStateChangedKey               = "appStateChanged"
	GetMonitorStatusKey              = "getMonitorStatus"

	StartMonitoringResponseKey = "startMonitoringResponse"
	StopMonitoringResponseKey  = "stopMonitoringResponse"
	GetStatsResponseKey        = "getStatsResponse"
	FrameRateStatsTrackedKey   = "frameRateStatsTracked"
	MonitorStatusKey           = "monitorStatus"

	StatusOK     = "ok"
	StatusFailed = "failed"

	// TrackedStatsEventName is the analytics event name carried by
	// frameRateStatsTracked.
	TrackedStatsEventName = "Performance Tracked Base Frame Rate Stats"
)

var RequestKeys = []string{
	StartMonitoringKey,
	StopMonitoringKey,
	GetStatsKey,
	ResetStatsKey,
	AddSlowPeriodEventListenerKey,
	RemoveSlowPeriodEventListenerKey,
	AppStateChangedKey,
	GetMonitorStatusKey,
}

/*
Requests (host -> monitor)
```JSON5
{
	id: 'startMonitoring' | 'stopMonitoring' | 'getStats' | 'resetStats' |
		'addSlowPeriodEventListener' | 'removeSlowPeriodEventListener' |
		'getMonitorStatus',
	requestId: <String | undefined>, // echoed back in the response
}
```

appStateChanged (host -> monitor)
```JSON5
{
	id: 'appStateChanged',
	state: 'active' | 'background' | 'inactive',
}
```
*/

type Request struct {
	Id        string `json:"id,omitempty"`
	RequestId string `json:"requestId,omitempty"`
	State     string `json:"state,omitempty"`
}

/*
startMonitoringResponse (monitor -> host)
```JSON5
{
	id: 'startMonitoringResponse',
	requestId: <String | undefined>,
	status: 'ok' | 'failed',
	error: undefined | <String>,
}
```
*/

type StartMonitoringResponse struct {
	Id        string  `json:"id,omitempty"`
	RequestId string  `json:"requestId,omitempty"`
	Status    string  `json:"status,omitempty"`
	Error     *string `json:"error,omitempty"`
}

func (r *Request) StartSuccess() *StartMonitoringResponse {
	return &StartMonitoringResponse{
		Id:        StartMonitoringResponseKey,
		RequestId: r.RequestId,
		Status:    StatusOK,
	}
}

func (r *Request) StartFail(err error) *StartMonitoringResponse {
	return &StartMonitoringResponse{
		Id:        StartMonitoringResponseKey,
		RequestId: r.RequestId,
		Status:    StatusFailed,
		Error:     pointer.ToString(err.Error()),
	}
}

/*
stopMonitoringResponse / getStatsResponse (monitor -> host)
```JSON5
{
	id: 'stopMonitoringResponse' | 'getStatsResponse',
	requestId: <String | undefined>,
	stats: {
		totalFrames: <Number>,
		droppedFrames: <Number>,
		dropEvents: [{ start: <Number>, end: <Number>, count: <Number> }],
		windowStart: <Number | undefined>,
		windowEnd: <Number | undefined>,
	},
}
```
*/

type StatsResponse struct {
	Id        string           `json:"id,omitempty"`
	RequestId string           `json:"requestId,omitempty"`
	Stats     framestats.Stats `json:"stats"`
}

func (r *Request) Stopped(stats framestats.Stats) *StatsResponse {
	return &StatsResponse{Id: StopMonitoringResponseKey, RequestId: r.RequestId, Stats: stats}
}

func (r *Request) Stats(stats framestats.Stats) *StatsResponse {
	return &StatsResponse{Id: GetStatsResponseKey, RequestId: r.RequestId, Stats: stats}
}

/*
frameRateStatsTracked (monitor -> host), after every stop
```JSON5
{
	id: 'frameRateStatsTracked',
	event: 'Performance Tracked Base Frame Rate Stats',
	frameRateStats: <Stats>,
}
```
*/

type FrameRateStatsTracked struct {
	Id             string           `json:"id,omitempty"`
	Event          string           `json:"event,omitempty"`
	FrameRateStats framestats.Stats `json:"frameRateStats"`
}

func NewFrameRateStatsTracked(stats framestats.Stats) *FrameRateStatsTracked {
	return &FrameRateStatsTracked{
		Id:             FrameRateStatsTrackedKey,
		Event:          TrackedStatsEventName,
		FrameRateStats: stats,
	}
}

/*
monitorStatus (monitor -> host)
```JSON5
{
	id: 'monitorStatus',
	appVersion: <String>,
	instanceId: <String>,
	state: 'idle' | 'running',
}
```
*/

type MonitorStatus struct {
	Id         string `json:"id,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
	InstanceId string `json:"instanceId,omitempty"`
	State      string `json:"state,omitempty"`
}

func NewMonitorStatus(version, instanceId, state string) *MonitorStatus {
	return &MonitorStatus{
		Id:         MonitorStatusKey,
		AppVersion: version,
		InstanceId: instanceId,
		State:      state,
	}
}
