//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// RealBoard drives actual hardware using Linux GPIO character device.
type RealBoard struct {
	chip    *gpiocdev.Chip
	zc      *gpiocdev.Line
	heaters []*gpiocdev.Line
	led     *gpiocdev.Line

	edges   chan Edge
	dropped atomic.Uint64
}

// BoardConfig selects the chip and lines used by the board.
type BoardConfig struct {
	Chip         string
	ZeroCrossPin int
	HeaterPins   []int
	LEDPin       int  // negative disables the LED
	Edge         string
	PullUp       bool // bias the zero-cross input high (open-collector optocouplers)
}

// NewRealBoard requests every line of the board. Heater relays are requested
// as outputs driven low before any edge is delivered.
func NewRealBoard(cfg BoardConfig) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer("burst-fire"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealBoard{
		chip:  chip,
		edges: make(chan Edge, edgeBuffer),
	}

	for i, pin := range cfg.HeaterPins {
		l, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request heater %d pin %d: %w", i, pin, err)
		}
		b.heaters = append(b.heaters, l)
	}

	if cfg.LEDPin >= 0 {
		b.led, err = chip.RequestLine(cfg.LEDPin, gpiocdev.AsOutput(1))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request LED pin %d: %w", cfg.LEDPin, err)
		}
	}

	edge, err := edgeOption(cfg.Edge)
	if err != nil {
		b.Close()
		return nil, err
	}
	bias := gpiocdev.WithPullDown
	if cfg.PullUp {
		bias = gpiocdev.WithPullUp
	}
	b.zc, err = chip.RequestLine(cfg.ZeroCrossPin, gpiocdev.AsInput, bias, edge, gpiocdev.WithEventHandler(b.handleEvent))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request zero-cross pin %d: %w", cfg.ZeroCrossPin, err)
	}

	return b, nil
}

func edgeOption(name string) (gpiocdev.LineReqOption, error) {
	switch name {
	case EdgeFalling, "":
		return gpiocdev.WithFallingEdge, nil
	case EdgeRising:
		return gpiocdev.WithRisingEdge, nil
	case EdgeBoth:
		return gpiocdev.WithBothEdges, nil
	default:
		return nil, fmt.Errorf("unknown edge polarity %q", name)
	}
}

// handleEvent runs on the gpiocdev watcher goroutine and must not block.
func (b *RealBoard) handleEvent(evt gpiocdev.LineEvent) {
	select {
	case b.edges <- Edge{Timestamp: evt.Timestamp}:
	default:
		b.dropped.Add(1)
	}
}

// Set drives the heater relay for the given channel.
func (b *RealBoard) Set(channel int, on bool) error {
	if channel < 0 || channel >= len(b.heaters) {
		return fmt.Errorf("channel %d out of range", channel)
	}
	v := 0
	if on {
		v = 1
	}
	if err := b.heaters[channel].SetValue(v); err != nil {
		return fmt.Errorf("set heater %d: %w", channel, err)
	}
	return nil
}

// SetIndicator drives the status LED. A board without LED ignores it.
func (b *RealBoard) SetIndicator(on bool) error {
	if b.led == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := b.led.SetValue(v); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}
	return nil
}

// Edges returns the channel of detected zero-crossing edges.
func (b *RealBoard) Edges() <-chan Edge {
	return b.edges
}

// Dropped returns how many edges were discarded because the consumer fell behind.
func (b *RealBoard) Dropped() uint64 {
	return b.dropped.Load()
}

// Close releases GPIO resources.
// Heater lines are driven low and then reconfigured to input with pull-down so
// the relays stay de-energized after the process exits.
func (b *RealBoard) Close() error {
	var errs []error

	if b.zc != nil {
		if err := b.zc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close zero-cross pin: %w", err))
		}
	}
	for i, l := range b.heaters {
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive heater %d low: %w", i, err))
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure heater %d: %w", i, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close heater %d: %w", i, err))
		}
	}
	if b.led != nil {
		if err := b.led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
