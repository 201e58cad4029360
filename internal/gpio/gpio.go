// Package gpio provides heater relay outputs, the status LED and zero-crossing
// edge detection with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Board drives heater relays and the status LED and reports zero-crossing edges.
type Board interface {
	// Set drives the heater relay for the given channel.
	Set(channel int, on bool) error

	// SetIndicator drives the status LED.
	SetIndicator(on bool) error

	// Edges returns the channel of detected zero-crossing edges.
	// Edges are dropped, not queued, if the consumer falls behind.
	Edges() <-chan Edge

	// Close forces every relay off and releases GPIO resources.
	Close() error
}

// Edge is a single zero-crossing event.
type Edge struct {
	// Timestamp is the kernel event time (monotonic, arbitrary origin).
	Timestamp time.Duration
}

// Pin definitions (BCM numbering)
const (
	DefaultZeroCrossPin = 17
	DefaultLEDPin       = 27
)

// DefaultHeaterPins are the relay lines for channels 0-5.
var DefaultHeaterPins = []int{5, 6, 13, 19, 26, 21}

// Edge polarities accepted by the real board.
const (
	EdgeFalling = "falling"
	EdgeRising  = "rising"
	EdgeBoth    = "both"
)

// edgeBuffer bounds how many undelivered edges are kept.
const edgeBuffer = 16
