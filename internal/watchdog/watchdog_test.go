package watchdog

import (
	"errors"
	"testing"
	"time"
)

var (
	_ Watchdog = Nop{}
	_ Watchdog = (*Fake)(nil)
	_ Watchdog = (*Device)(nil)
)

func TestNop(t *testing.T) {
	var w Watchdog = Nop{}
	if err := w.Kick(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFake(t *testing.T) {
	f := &Fake{}
	f.Kick()
	f.Kick()
	if f.Kicks != 2 {
		t.Errorf("expected 2 kicks, got %d", f.Kicks)
	}

	f.KickError = errors.New("simulated error")
	if err := f.Kick(); err == nil {
		t.Error("expected error to be returned")
	}

	f.Close()
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open("/nonexistent/watchdog", 2*time.Second); err == nil {
		t.Error("expected error opening a missing device")
	}
}
