// Package watchdog strokes the hardware watchdog. If the main loop stops
// kicking it, the watchdog resets the machine.
package watchdog

// Watchdog is a hardware watchdog timer.
type Watchdog interface {
	// Kick restarts the watchdog countdown.
	Kick() error

	// Close disarms the watchdog on an orderly shutdown.
	Close() error
}

// Nop is a Watchdog that does nothing, used when no device is configured.
type Nop struct{}

// Kick does nothing.
func (Nop) Kick() error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
