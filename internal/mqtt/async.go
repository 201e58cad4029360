package mqtt

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sweeney/burst-fire/internal/logger"
	"github.com/sweeney/burst-fire/internal/logic"
)

// ErrQueueFull is returned when the async queue has no room for a message.
var ErrQueueFull = errors.New("publish queue full")

// Async forwards to another Publisher on its own goroutine, in order.
// Publish and PublishSystem never wait on the broker, so the control loop
// is not held up by a slow or unreachable connection.
type Async struct {
	next Publisher
	log  *logger.Log

	mu     sync.RWMutex
	closed bool
	queue  chan func() error
	done   chan struct{}

	dropped atomic.Uint64
}

// NewAsync starts forwarding to next with room for size pending messages.
func NewAsync(next Publisher, log *logger.Log, size int) *Async {
	a := &Async{
		next:  next,
		log:   log,
		queue: make(chan func() error, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for f := range a.queue {
		if err := f(); err != nil {
			a.log.WithError(err).Warn("publish failed")
		}
	}
}

func (a *Async) enqueue(f func() error) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return errors.New("publisher closed")
	}
	select {
	case a.queue <- f:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Publish queues an engine event.
func (a *Async) Publish(event logic.Event) error {
	return a.enqueue(func() error { return a.next.Publish(event) })
}

// PublishSystem queues a system event.
func (a *Async) PublishSystem(event SystemEvent) error {
	return a.enqueue(func() error { return a.next.PublishSystem(event) })
}

// IsConnected reports the wrapped publisher's connection state, or false if
// it does not track one.
func (a *Async) IsConnected() bool {
	if cs, ok := a.next.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Dropped returns how many messages were refused because the queue was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close flushes queued messages, then closes the wrapped publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
