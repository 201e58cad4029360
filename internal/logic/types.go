// Package logic contains the burst-fire control engine.
// This package has NO external dependencies (no GPIO, serial, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

const (
	// NumChannels is the number of heating elements driven by the engine.
	NumChannels = 6

	// MaxSemicycles is the control frame length in half-cycles and the
	// largest valid threshold.
	MaxSemicycles = 120

	// StartMarker begins a new transaction on the command link.
	StartMarker byte = 255

	// FailsafeTimeout is how long the link may stay silent before every
	// output is forced off.
	FailsafeTimeout = 5000 * time.Millisecond

	// HeartbeatPeriod is the status LED toggle period.
	HeartbeatPeriod = 1000 * time.Millisecond

	// WatchdogTimeout is the hardware watchdog period.
	WatchdogTimeout = 2000 * time.Millisecond
)

// State is the transaction state of the engine.
type State uint32

const (
	StateIdle State = iota
	StateReceiving
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReceiving:
		return "RECEIVING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Thresholds holds one semicycle count per channel, each in [0, MaxSemicycles].
type Thresholds [NumChannels]uint8

// EventType represents an engine state change.
type EventType string

const (
	EventCommitted EventType = "COMMITTED"
	EventResumed   EventType = "RESUMED"
	EventStopped   EventType = "STOPPED"
)

// Event represents an engine state change to be published.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	State      State
	Thresholds Thresholds
}

// Counts tracks engine activity since startup.
type Counts struct {
	Edges        uint64 // zero-cross edges handled while running
	Frames       uint64 // counter wraps
	Transactions uint64 // committed transactions
	Aborted      uint64 // START received mid-transaction
	Clamped      uint64 // payload values above MaxSemicycles stored as 0
	Ignored      uint64 // bytes received while idle
	Stops        uint64 // failsafe trips
	Resumes      uint64 // commits that left the stopped state
	OutputErrors uint64 // failed output writes
}

// Snapshot is a point-in-time view of the engine.
// Fields are loaded one at a time; each is individually consistent.
type Snapshot struct {
	State       State
	Counter     uint8
	Cursor      uint8
	Thresholds  Thresholds
	LastContact time.Time
	Counts      Counts
}

// Driver actuates heater outputs by channel index.
type Driver interface {
	Set(channel int, on bool) error
}

// DutyPercent is the share of a frame a channel with threshold th is energized.
func DutyPercent(th uint8) float64 {
	return float64(th) * 100 / MaxSemicycles
}
