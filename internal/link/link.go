// Package link carries the command link: a raw byte stream from the remote
// controller in which StartMarker begins a transaction and the next
// NumChannels bytes are per-channel thresholds.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sweeney/burst-fire/internal/logic"
)

// ErrInvalidThreshold is returned when a transaction cannot be encoded.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Pump reads r until ctx is cancelled or r fails, delivering every byte to out
// in order. Bytes are never dropped: framing depends on each one.
// A zero-length read with no error (a read timeout) just re-checks ctx.
func Pump(ctx context.Context, r io.Reader, out chan<- byte) error {
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case out <- b:
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read command link: %w", err)
		}
	}
}

// Encode builds the wire form of a transaction: StartMarker followed by one
// byte per channel.
func Encode(values []int) ([]byte, error) {
	if len(values) != logic.NumChannels {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInvalidThreshold, len(values), logic.NumChannels)
	}
	frame := make([]byte, 0, logic.NumChannels+1)
	frame = append(frame, logic.StartMarker)
	for i, v := range values {
		if v < 0 || v > logic.MaxSemicycles {
			return nil, fmt.Errorf("%w: channel %d value %d outside 0-%d", ErrInvalidThreshold, i, v, logic.MaxSemicycles)
		}
		frame = append(frame, byte(v))
	}
	return frame, nil
}

// ParseValues parses a comma-separated list of thresholds such as "10,0,120,0,50,60".
func ParseValues(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidThreshold, p)
		}
		values = append(values, v)
	}
	return values, nil
}

// Send encodes a transaction and writes it to w in a single write.
func Send(w io.Writer, values []int) error {
	frame, err := Encode(values)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	return nil
}
