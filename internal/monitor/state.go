package monitor

// State is the monitoring lifecycle state. Only two transitions change it:
//
//	Idle    --Start--> Running
//	Running --Stop-->  Idle
//
// Start while Running and Stop while Idle are logged no-ops.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}
