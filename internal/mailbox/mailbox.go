// Package mailbox generalizes the teacher's user-cell actor
// (internal/domain/registry: Hub/Cell/Connector) into a generic,
// key-agnostic building block: a bounded per-key queue. Only one caller
// gets the teacher's drop-oldest shock absorber: LogStream's
// per-subscriber fan-out (spec §4.5 item 5, the one place spec §9
// actually chooses drop-oldest, to avoid blocking drivers on a slow log
// consumer). The stream multiplexer's per-direction copy queues (spec
// §4.4) require lossless, in-order delivery from a concurrently-drained
// reader, so they use SendBlocking instead, which backpressures the
// producer rather than shedding data. The session's resource registry
// (spec §4.6) has a third, harder requirement — a producer that
// legitimately finishes uploading before anything ever reads — so it
// does not build on this package at all; see internal/resource's own
// unbounded chunkQueue.
package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by SendBlocking once the mailbox has been closed.
var ErrClosed = errors.New("mailbox: closed")

// Mailbox is a single bounded, drop-oldest queue, the same shape as the
// teacher's connect.sendCh plus handleBackpressure, generalized over the
// item type and stripped of the teacher's priority-aware eviction (none of
// this fabric's backpressure policies are priority-aware — see spec §9).
type Mailbox[T any] struct {
	ch chan T

	closeOnce sync.Once
	closed    chan struct{}

	dropped          atomic.Uint64
	lastActivityUnix atomic.Int64
}

// New creates a mailbox with the given bounded capacity.
func New[T any](capacity int) *Mailbox[T] {
	m := &Mailbox[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
	m.touch()
	return m
}

func (m *Mailbox[T]) touch() {
	m.lastActivityUnix.Store(time.Now().Unix())
}

// Send enqueues v. If the mailbox is full, the oldest queued item is
// dropped to make room and Dropped() is incremented — the same
// shock-absorber policy as the teacher's Cell.Push, generalized to any
// item type rather than just events. Returns false if the mailbox has
// already been closed.
func (m *Mailbox[T]) Send(v T) bool {
	select {
	case <-m.closed:
		return false
	default:
	}

	m.touch()
	for {
		select {
		case m.ch <- v:
			return true
		default:
		}

		select {
		case <-m.ch:
			m.dropped.Add(1)
		default:
			// Another goroutine already drained it; loop and retry the send.
		}
	}
}

// SendBlocking enqueues v, blocking until room is available rather than
// dropping the oldest entry — for the callers spec §9's drop-oldest
// decision does not cover (stream-copy frames, §4.4), where every byte
// must arrive. Returns ctx.Err() if ctx is
// cancelled first, or ErrClosed if the mailbox is closed first.
func (m *Mailbox[T]) SendBlocking(ctx context.Context, v T) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	m.touch()
	select {
	case m.ch <- v:
		return nil
	case <-m.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv exposes the receive side for a consumer loop to range over. Recv
// itself is never closed by Close (a concurrent Send could otherwise
// panic writing to a closed channel); consumers that need to know when
// no more items will ever arrive should also select on Closed.
func (m *Mailbox[T]) Recv() <-chan T { return m.ch }

// Closed reports, via channel closure, that Close has been called. A
// consumer still sees any items already queued on Recv before Closed
// fires — Closed alone does not mean the mailbox is drained.
func (m *Mailbox[T]) Closed() <-chan struct{} { return m.closed }

// Dropped reports how many items this mailbox has shed to backpressure.
func (m *Mailbox[T]) Dropped() uint64 { return m.dropped.Load() }

// IdleFor reports whether no item has been sent for at least d.
func (m *Mailbox[T]) IdleFor(d time.Duration) bool {
	last := time.Unix(m.lastActivityUnix.Load(), 0)
	return time.Since(last) > d
}

// Close marks the mailbox closed; subsequent Send calls are no-ops. Safe
// to call more than once or concurrently, matching the teacher's
// closeOnce-guarded Connector.Close.
func (m *Mailbox[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
	})
}
