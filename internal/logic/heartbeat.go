package logic

import "time"

// Heartbeat toggles a status indicator on a fixed cadence.
type Heartbeat struct {
	period time.Duration
	next   time.Time
	on     bool
}

// NewHeartbeat creates a heartbeat whose first toggle is due one period after start.
// The indicator starts on.
func NewHeartbeat(period time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{period: period, next: start.Add(period), on: true}
}

// Check returns the new indicator level and true when a toggle is due.
// Returns false if the period has not elapsed or is <= 0 (disabled).
func (h *Heartbeat) Check(now time.Time) (on bool, toggled bool) {
	if h.period <= 0 || now.Before(h.next) {
		return h.on, false
	}
	h.on = !h.on
	h.next = now.Add(h.period)
	return h.on, true
}

// On returns the current indicator level.
func (h *Heartbeat) On() bool {
	return h.on
}
