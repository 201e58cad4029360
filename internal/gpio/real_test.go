//go:build linux

package gpio

import (
	"testing"

	"github.com/warthog618/go-gpiocdev"
)

func TestEdgeOption(t *testing.T) {
	for _, name := range []string{"", EdgeFalling, EdgeRising, EdgeBoth} {
		got, err := edgeOption(name)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", name, err)
			continue
		}
		if got == nil {
			t.Errorf("%q: expected an option", name)
		}
	}

	if _, err := edgeOption("sideways"); err == nil {
		t.Error("expected error for unknown polarity")
	}
}

func TestHandleEventDropsWhenFull(t *testing.T) {
	b := &RealBoard{edges: make(chan Edge, edgeBuffer)}

	for i := 0; i < edgeBuffer+3; i++ {
		b.handleEvent(gpiocdev.LineEvent{})
	}

	if got := len(b.Edges()); got != edgeBuffer {
		t.Errorf("expected %d queued edges, got %d", edgeBuffer, got)
	}
	if got := b.Dropped(); got != 3 {
		t.Errorf("expected 3 dropped edges, got %d", got)
	}
}
