// Package status provides a thread-safe status view of the burst-fire daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/burst-fire/internal/logic"
)

// EngineSource provides engine snapshots. *logic.Engine satisfies it.
type EngineSource interface {
	Snapshot() logic.Snapshot
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	HeartbeatMs   int64
	LinkPort      string
	BaudRate      int
	Broker        string
	HTTPAddr      string
	WatchdogDev   string
	WatchdogMs    int64
	ZeroCrossEdge string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Engine        logic.Snapshot
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	DroppedEdges  uint64
	MQTTDropped   uint64 // messages refused by a full publish queue
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// ContactAge returns how long ago the last command-link byte arrived.
func (s Snapshot) ContactAge() time.Duration {
	return s.Now.Sub(s.Engine.LastContact)
}

// Tracker combines live engine state with daemon state kept behind an RWMutex.
// The engine is read on every Snapshot; it needs no lock of its own.
type Tracker struct {
	engine EngineSource

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, config and engine.
func NewTracker(startTime time.Time, cfg Config, engine EngineSource) *Tracker {
	return &Tracker{
		engine: engine,
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetDroppedEdges records how many zero-cross edges the GPIO layer discarded.
func (t *Tracker) SetDroppedEdges(n uint64) {
	t.mu.Lock()
	t.snap.DroppedEdges = n
	t.mu.Unlock()
}

// SetMQTTDropped records how many telemetry messages were refused because
// the publish queue was full.
func (t *Tracker) SetMQTTDropped(n uint64) {
	t.mu.Lock()
	t.snap.MQTTDropped = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if t.engine != nil {
		s.Engine = t.engine.Snapshot()
	}
	s.Now = time.Now()
	return s
}
