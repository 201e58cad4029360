package gpio

import (
	"fmt"
	"sync"
)

// FakeBoard is a test double that records output levels and lets tests
// inject zero-crossing edges.
type FakeBoard struct {
	mu sync.Mutex

	// Levels holds the last level written to each heater channel.
	Levels []bool

	// Indicator holds the last level written to the status LED.
	Indicator bool

	// Writes counts calls to Set.
	Writes int

	// Toggles counts calls to SetIndicator.
	Toggles int

	// SetError, if set, will be returned by Set for every channel.
	SetError error

	// Closed tracks if Close was called.
	Closed bool

	edges chan Edge
}

// NewFakeBoard creates a FakeBoard with the given number of heater channels.
func NewFakeBoard(channels int) *FakeBoard {
	return &FakeBoard{
		Levels: make([]bool, channels),
		edges:  make(chan Edge, edgeBuffer),
	}
}

// Set records the level for the channel.
func (f *FakeBoard) Set(channel int, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Writes++
	if f.SetError != nil {
		return f.SetError
	}
	if channel < 0 || channel >= len(f.Levels) {
		return fmt.Errorf("channel %d out of range", channel)
	}
	f.Levels[channel] = on
	return nil
}

// SetIndicator records the LED level.
func (f *FakeBoard) SetIndicator(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Indicator = on
	f.Toggles++
	return nil
}

// SetFailure makes every following Set return err; nil clears it.
func (f *FakeBoard) SetFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetError = err
}

// Edges returns the injected edge channel.
func (f *FakeBoard) Edges() <-chan Edge {
	return f.edges
}

// Pulse injects a zero-crossing edge. It blocks if the buffer is full.
func (f *FakeBoard) Pulse() {
	f.edges <- Edge{}
}

// Snapshot returns a copy of the heater levels.
func (f *FakeBoard) Snapshot() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.Levels))
	copy(out, f.Levels)
	return out
}

// AnyOn reports whether any heater is energized.
func (f *FakeBoard) AnyOn() bool {
	for _, on := range f.Snapshot() {
		if on {
			return true
		}
	}
	return false
}

// Close forces every heater off and marks the board as closed.
func (f *FakeBoard) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Levels {
		f.Levels[i] = false
	}
	f.Closed = true
	return nil
}
