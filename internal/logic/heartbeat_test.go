package logic

import (
	"testing"
	"time"
)

func TestHeartbeatToggles(t *testing.T) {
	h := NewHeartbeat(time.Second, t0)
	if !h.On() {
		t.Fatal("heartbeat should start on")
	}

	if _, toggled := h.Check(t0.Add(999 * time.Millisecond)); toggled {
		t.Error("should not toggle before period")
	}

	on, toggled := h.Check(t0.Add(time.Second))
	if !toggled || on {
		t.Errorf("at 1s: expected toggle to off, got on=%v toggled=%v", on, toggled)
	}

	// Next toggle is due one period after the last one.
	if _, toggled := h.Check(t0.Add(1500 * time.Millisecond)); toggled {
		t.Error("should not toggle at 1.5s")
	}
	on, toggled = h.Check(t0.Add(2 * time.Second))
	if !toggled || !on {
		t.Errorf("at 2s: expected toggle to on, got on=%v toggled=%v", on, toggled)
	}
}

func TestHeartbeatLateCheckSchedulesFromNow(t *testing.T) {
	h := NewHeartbeat(time.Second, t0)

	// A late check toggles once, not once per missed period.
	if _, toggled := h.Check(t0.Add(5 * time.Second)); !toggled {
		t.Fatal("expected toggle")
	}
	if _, toggled := h.Check(t0.Add(5500 * time.Millisecond)); toggled {
		t.Error("should not toggle again before a full period")
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	h := NewHeartbeat(0, t0)
	for i := 0; i < 5; i++ {
		if _, toggled := h.Check(t0.Add(time.Duration(i) * time.Hour)); toggled {
			t.Fatal("disabled heartbeat should never toggle")
		}
	}
}
