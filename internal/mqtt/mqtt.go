// Package mqtt publishes engine telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/burst-fire/internal/logic"
)

// DefaultTopicPrefix is the topic root when none is configured.
const DefaultTopicPrefix = "energy/heaters/burstfire"

// EventsTopic is the topic for engine events under prefix.
func EventsTopic(prefix string) string { return prefix + "/events" }

// SystemTopic is the topic for system lifecycle events under prefix.
func SystemTopic(prefix string) string { return prefix + "/system" }

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an engine event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Heaters HeatersPayload `json:"heaters"`
}

// HeatersPayload contains the engine event details.
type HeatersPayload struct {
	Timestamp  string    `json:"timestamp"`
	Event      string    `json:"event"`
	State      string    `json:"state"`
	Thresholds []int     `json:"thresholds"`
	Duty       []float64 `json:"duty_percent"`
}

// FormatPayload creates the JSON payload for an engine event.
func FormatPayload(event logic.Event) ([]byte, error) {
	th := make([]int, len(event.Thresholds))
	duty := make([]float64, len(event.Thresholds))
	for i, v := range event.Thresholds {
		th[i] = int(v)
		duty[i] = logic.DutyPercent(v)
	}
	payload := Payload{
		Heaters: HeatersPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			State:      event.State.String(),
			Thresholds: th,
			Duty:       duty,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (last will, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// Nop is a Publisher that discards everything, used when no broker is configured.
type Nop struct{}

func (Nop) Publish(logic.Event) error        { return nil }
func (Nop) PublishSystem(SystemEvent) error { return nil }
func (Nop) Close() error                    { return nil }
func (Nop) IsConnected() bool               { return false }
