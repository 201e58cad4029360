//go:build linux

package watchdog

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// magicClose disarms drivers that support it; others keep counting down.
const magicClose = "V"

// Device is a Linux watchdog character device such as /dev/watchdog.
type Device struct {
	f *os.File
}

// Open arms the watchdog at path with the given timeout (whole seconds, at least 1).
// The countdown starts as soon as the device is opened.
func Open(path string, timeout time.Duration) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", path, err)
	}

	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		d := &Device{f: f}
		d.Close()
		return nil, fmt.Errorf("set watchdog timeout %ds: %w", secs, err)
	}

	return &Device{f: f}, nil
}

// Kick restarts the watchdog countdown.
func (d *Device) Kick() error {
	if err := unix.IoctlWatchdogKeepalive(int(d.f.Fd())); err != nil {
		return fmt.Errorf("watchdog keepalive: %w", err)
	}
	return nil
}

// Close writes the magic close character and releases the device.
func (d *Device) Close() error {
	_, werr := d.f.WriteString(magicClose)
	cerr := d.f.Close()
	if werr != nil {
		return fmt.Errorf("watchdog magic close: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("close watchdog: %w", cerr)
	}
	return nil
}
