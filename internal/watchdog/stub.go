//go:build !linux

package watchdog

import (
	"errors"
	"time"
)

// Device is not available on non-Linux platforms.
type Device struct{}

// Open returns an error on non-Linux platforms.
func Open(path string, timeout time.Duration) (*Device, error) {
	return nil, errors.New("watchdog: not supported on this platform (requires Linux)")
}

// Kick is not implemented on non-Linux platforms.
func (d *Device) Kick() error {
	return errors.New("watchdog: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *Device) Close() error {
	return nil
}
