package logic

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Engine runs burst-fire control for NumChannels heaters.
//
// OnZeroCross, OnByte and Tick may be called from different goroutines. Every
// shared field is independently atomic and no handler takes a lock. OnByte
// must not be called concurrently with itself, since it is the only owner of
// the receive buffer.
type Engine struct {
	driver Driver
	epoch  time.Time

	thresholds atomic.Pointer[Thresholds]
	counter    atomic.Uint32
	rxState    atomic.Uint32 // StateIdle or StateReceiving
	stopped    atomic.Bool
	cursor     atomic.Uint32
	contact    atomic.Int64 // nanoseconds since epoch

	buf Thresholds

	edges        atomic.Uint64
	frames       atomic.Uint64
	transactions atomic.Uint64
	aborted      atomic.Uint64
	clamped      atomic.Uint64
	ignored      atomic.Uint64
	stops        atomic.Uint64
	resumes      atomic.Uint64
	outputErrors atomic.Uint64
}

// NewEngine creates an engine driving outputs through d.
// The epoch is the boot time: it is the initial contact timestamp, so the
// failsafe trips FailsafeTimeout after boot if the controller never speaks.
func NewEngine(d Driver, epoch time.Time) *Engine {
	e := &Engine{driver: d, epoch: epoch}
	e.thresholds.Store(&Thresholds{})
	return e
}

// OnZeroCross advances the semicycle counter and drives every output.
// Call once per detected zero-crossing edge.
func (e *Engine) OnZeroCross() error {
	if e.stopped.Load() {
		return nil
	}
	e.edges.Add(1)

	k := e.counter.Load() + 1
	th := e.thresholds.Load()

	errs := e.drive(nil, func(ch int) bool { return k <= uint32(th[ch]) })

	if k > MaxSemicycles {
		k = 0
		e.frames.Add(1)
	}
	e.counter.Store(k)

	// The failsafe may have tripped while outputs were being driven.
	if e.stopped.Load() {
		errs = e.drive(errs, off)
	}
	return e.joinErrs(errs)
}

// OnByte feeds one byte received on the command link into the reception
// state machine. It returns a non-nil event when a transaction commits.
func (e *Engine) OnByte(b byte, now time.Time) *Event {
	e.contact.Store(int64(now.Sub(e.epoch)))

	if b == StartMarker {
		if State(e.rxState.Swap(uint32(StateReceiving))) == StateReceiving && e.cursor.Load() > 0 {
			e.aborted.Add(1)
		}
		e.cursor.Store(0)
		return nil
	}

	if State(e.rxState.Load()) != StateReceiving {
		e.ignored.Add(1)
		return nil
	}

	if b > MaxSemicycles {
		b = 0
		e.clamped.Add(1)
	}
	i := e.cursor.Load()
	e.buf[i] = b
	i++
	if i < NumChannels {
		e.cursor.Store(i)
		return nil
	}

	committed := e.buf
	e.thresholds.Store(&committed)
	e.cursor.Store(0)
	e.rxState.Store(uint32(StateIdle))
	e.transactions.Add(1)

	ev := &Event{Timestamp: now, Type: EventCommitted, State: StateIdle, Thresholds: committed}
	if e.stopped.Swap(false) {
		e.resumes.Add(1)
		ev.Type = EventResumed
	}
	return ev
}

// Tick runs the failsafe check. When the link has been silent for at least
// FailsafeTimeout it forces every output off, discards any transaction in
// progress and enters the stopped state.
// The returned event is non-nil only on the tick that trips the failsafe.
func (e *Engine) Tick(now time.Time) (*Event, error) {
	if now.Sub(e.epoch)-time.Duration(e.contact.Load()) < FailsafeTimeout {
		return nil, nil
	}
	if !e.stopped.CompareAndSwap(false, true) {
		return nil, nil
	}
	e.stops.Add(1)
	e.endTransaction()
	err := e.allOff()
	return &Event{Timestamp: now, Type: EventStopped, State: StateStopped, Thresholds: *e.thresholds.Load()}, err
}

// Halt enters the stopped state and forces every output off, regardless of
// link contact. Used on shutdown.
func (e *Engine) Halt() error {
	e.stopped.Store(true)
	e.endTransaction()
	return e.allOff()
}

// endTransaction discards any partial transaction. Once stopped, only a
// fresh START followed by NumChannels bytes can commit.
func (e *Engine) endTransaction() {
	e.rxState.Store(uint32(StateIdle))
	e.cursor.Store(0)
}

// State returns the current transaction state.
func (e *Engine) State() State {
	if e.stopped.Load() {
		return StateStopped
	}
	return State(e.rxState.Load())
}

// Thresholds returns the committed threshold set.
func (e *Engine) Thresholds() Thresholds {
	return *e.thresholds.Load()
}

// Snapshot returns a point-in-time copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		State:       e.State(),
		Counter:     uint8(e.counter.Load()),
		Cursor:      uint8(e.cursor.Load()),
		Thresholds:  e.Thresholds(),
		LastContact: e.epoch.Add(time.Duration(e.contact.Load())),
		Counts: Counts{
			Edges:        e.edges.Load(),
			Frames:       e.frames.Load(),
			Transactions: e.transactions.Load(),
			Aborted:      e.aborted.Load(),
			Clamped:      e.clamped.Load(),
			Ignored:      e.ignored.Load(),
			Stops:        e.stops.Load(),
			Resumes:      e.resumes.Load(),
			OutputErrors: e.outputErrors.Load(),
		},
	}
}

// allOff drives every channel off. A failing channel does not prevent the
// others from being driven.
func (e *Engine) allOff() error {
	return e.joinErrs(e.drive(nil, off))
}

func off(int) bool { return false }

// drive sets every channel to on(ch) and appends any failures to errs.
func (e *Engine) drive(errs []error, on func(ch int) bool) []error {
	for ch := 0; ch < NumChannels; ch++ {
		if err := e.driver.Set(ch, on(ch)); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", ch, err))
		}
	}
	return errs
}

func (e *Engine) joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	e.outputErrors.Add(uint64(len(errs)))
	return errors.Join(errs...)
}
