// Package sim provides a simulated board implementing the hal capabilities
// on the host.
package sim

import (
	"context"
	"sync"
	"sync/atomic"
)

// IRQ serializes simulated interrupt handlers.
// At most one handler runs at a time, events raised on the same vector
// while it is pending coalesce, and masked sources are skipped until
// they are unmasked.
type IRQ struct {
	exec    sync.Mutex
	lock    sync.Mutex
	vectors []*Vector
	pending atomic.Int32
	wake    chan struct{}
}

// Source groups vectors masked together. It implements hal.InterruptSource.
type Source struct {
	irq    *IRQ
	masked bool
}

// Vector is a single interrupt line.
type Vector struct {
	Name string

	source  *Source
	handler func()
	pending bool
	raised  uint64
}

// NewIRQ creates an IRQ dispatcher.
func NewIRQ() *IRQ {
	return &IRQ{wake: make(chan struct{}, 1)}
}

// NewSource creates an interrupt source.
func (q *IRQ) NewSource() *Source {
	return &Source{irq: q}
}

// Vector registers a new vector under the source.
func (s *Source) Vector(name string) *Vector {
	v := &Vector{Name: name, source: s}
	s.irq.lock.Lock()
	s.irq.vectors = append(s.irq.vectors, v)
	s.irq.lock.Unlock()
	return v
}

// MaskInterrupts implements hal.InterruptSource.
// It must not be called from a handler.
func (s *Source) MaskInterrupts() {
	s.irq.exec.Lock()
	s.irq.lock.Lock()
	s.masked = true
	s.irq.lock.Unlock()
	s.irq.exec.Unlock()
}

// UnmaskInterrupts implements hal.InterruptSource.
func (s *Source) UnmaskInterrupts() {
	s.irq.lock.Lock()
	s.masked = false
	s.irq.lock.Unlock()
	s.irq.notify()
}

// SetHandler installs the handler. A nil handler disables the vector and
// drops a pending event.
func (v *Vector) SetHandler(fn func()) {
	q := v.source.irq
	q.lock.Lock()
	v.handler = fn
	if fn == nil && v.pending {
		v.pending = false
		q.pending.Add(-1)
	}
	q.lock.Unlock()
}

// Raise marks the vector pending. Raising a disabled vector is a no-op.
func (v *Vector) Raise() {
	q := v.source.irq
	q.lock.Lock()
	if v.handler == nil {
		q.lock.Unlock()
		return
	}
	v.raised++
	if !v.pending {
		v.pending = true
		q.pending.Add(1)
	}
	q.lock.Unlock()
	q.notify()
}

// Raised returns how many times the vector was raised.
func (v *Vector) Raised() uint64 {
	q := v.source.irq
	q.lock.Lock()
	defer q.lock.Unlock()
	return v.raised
}

func (q *IRQ) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *IRQ) next() func() {
	q.lock.Lock()
	defer q.lock.Unlock()
	for _, v := range q.vectors {
		if v.pending && !v.source.masked {
			v.pending = false
			q.pending.Add(-1)
			return v.handler
		}
	}
	return nil
}

// Poll runs pending handlers in the calling goroutine until none are left
// and returns the number of handlers run.
func (q *IRQ) Poll() (n int) {
	for q.pending.Load() > 0 {
		q.exec.Lock()
		fn := q.next()
		if fn == nil {
			q.exec.Unlock()
			return
		}
		fn()
		q.exec.Unlock()
		n++
	}
	return
}

// Run dispatches handlers as they are raised until ctx is done.
func (q *IRQ) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
			q.Poll()
		}
	}
}
