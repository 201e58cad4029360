package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/burst-fire/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	State         string        `json:"state"`
	Counter       int           `json:"semicycle_counter"`
	Cursor        int           `json:"receive_cursor"`
	Channels      []ChannelJSON `json:"channels"`
	LastContact   string        `json:"last_contact"`
	ContactAgeMs  int64         `json:"contact_age_ms"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	DroppedEdges  uint64        `json:"dropped_edges"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"counts"`
	Config        ConfigJSON    `json:"config"`
}

// ChannelJSON is one heater channel.
type ChannelJSON struct {
	Channel     int     `json:"channel"`
	Threshold   int     `json:"threshold"`
	DutyPercent float64 `json:"duty_percent"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Dropped   uint64 `json:"dropped"`
}

// CountsJSON is the JSON representation of engine counters.
type CountsJSON struct {
	Edges        uint64 `json:"edges"`
	Frames       uint64 `json:"frames"`
	Transactions uint64 `json:"transactions"`
	Aborted      uint64 `json:"aborted"`
	Clamped      uint64 `json:"clamped"`
	Ignored      uint64 `json:"ignored"`
	Stops        uint64 `json:"failsafe_stops"`
	Resumes      uint64 `json:"resumes"`
	OutputErrors uint64 `json:"output_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	LinkPort      string `json:"link_port"`
	BaudRate      int    `json:"baud_rate"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	WatchdogDev   string `json:"watchdog_device,omitempty"`
	WatchdogMs    int64  `json:"watchdog_ms"`
	ZeroCrossEdge string `json:"zero_cross_edge"`
}

// Channels returns the per-channel view of the engine thresholds.
func Channels(th logic.Thresholds) []ChannelJSON {
	out := make([]ChannelJSON, len(th))
	for i, v := range th {
		out[i] = ChannelJSON{Channel: i, Threshold: int(v), DutyPercent: logic.DutyPercent(v)}
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	e := snap.Engine
	c := e.Counts
	return StatusInner{
		State:         e.State.String(),
		Counter:       int(e.Counter),
		Cursor:        int(e.Cursor),
		Channels:      Channels(e.Thresholds),
		LastContact:   e.LastContact.UTC().Format(time.RFC3339Nano),
		ContactAgeMs:  snap.ContactAge().Milliseconds(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		DroppedEdges:  snap.DroppedEdges,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Dropped: snap.MQTTDropped},
		Counts: CountsJSON{
			Edges:        c.Edges,
			Frames:       c.Frames,
			Transactions: c.Transactions,
			Aborted:      c.Aborted,
			Clamped:      c.Clamped,
			Ignored:      c.Ignored,
			Stops:        c.Stops,
			Resumes:      c.Resumes,
			OutputErrors: c.OutputErrors,
		},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			LinkPort:      snap.Config.LinkPort,
			BaudRate:      snap.Config.BaudRate,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			WatchdogDev:   snap.Config.WatchdogDev,
			WatchdogMs:    snap.Config.WatchdogMs,
			ZeroCrossEdge: snap.Config.ZeroCrossEdge,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
