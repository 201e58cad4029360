//go:build !linux

package gpio

import "errors"

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// BoardConfig selects the chip and lines used by the board.
type BoardConfig struct {
	Chip         string
	ZeroCrossPin int
	HeaterPins   []int
	LEDPin       int
	Edge         string
	PullUp       bool
}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(cfg BoardConfig) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (b *RealBoard) Set(channel int, on bool) error {
	return errors.New("gpio: not supported")
}

// SetIndicator is not implemented on non-Linux platforms.
func (b *RealBoard) SetIndicator(on bool) error {
	return errors.New("gpio: not supported")
}

// Edges returns nil on non-Linux platforms.
func (b *RealBoard) Edges() <-chan Edge {
	return nil
}

// Dropped always returns 0 on non-Linux platforms.
func (b *RealBoard) Dropped() uint64 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
