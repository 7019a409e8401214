// Package logfanout implements LogStream's fan-out of exporter-side log
// records to connected clients (spec §4.5 item 5): each subscriber gets
// its own bounded queue, and a slow subscriber has its oldest entries
// dropped with a gap marker rather than stalling the exporter (spec §9
// open question 3).
package logfanout

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/mailbox"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// queueDepth bounds each subscriber's pending-record queue.
const queueDepth = 256

// Fanout distributes LogRecords to every active LogStream subscriber. It
// also implements slog.Handler, so it can be installed as a logger sink
// and every log line written through it is replayed to subscribers.
type Fanout struct {
	subs   *mailbox.Registry[uint64, *wire.LogRecord]
	nextID atomic.Uint64

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// New builds an empty fan-out.
func New() *Fanout {
	return &Fanout{
		subs:    mailbox.NewRegistry[uint64, *wire.LogRecord](queueDepth),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Subscription is one LogStream client's queue. Recv's channel is closed
// once Unsubscribe has been called and every already-queued record has
// been forwarded, so a consumer can select on it directly alongside a
// context's Done channel without separately watching the mailbox's
// Closed signal.
type Subscription struct {
	id uint64
	mb *mailbox.Mailbox[*wire.LogRecord]
	ch chan *wire.LogRecord
}

// Subscribe registers a new subscriber and returns its queue handle.
func (f *Fanout) Subscribe() *Subscription {
	id := f.nextID.Add(1)
	mb := f.subs.Open(id)
	s := &Subscription{id: id, mb: mb, ch: make(chan *wire.LogRecord)}
	go s.forward()
	return s
}

// forward relays records from the mailbox to the subscription's own
// channel, so Recv can be closed on Unsubscribe without risking a send on
// an already-closed mailbox channel (mailbox.Close never closes Recv's
// channel itself, for that reason).
func (s *Subscription) forward() {
	defer close(s.ch)
	for {
		select {
		case rec := <-s.mb.Recv():
			s.ch <- rec
		case <-s.mb.Closed():
			for {
				select {
				case rec := <-s.mb.Recv():
					s.ch <- rec
				default:
					return
				}
			}
		}
	}
}

// Recv exposes the subscription's record channel for LogStream's send loop.
func (s *Subscription) Recv() <-chan *wire.LogRecord { return s.ch }

// Unsubscribe removes and closes the subscription's queue.
func (f *Fanout) Unsubscribe(s *Subscription) {
	f.subs.Close(s.id)
}

// publish delivers rec to every active subscriber. A subscriber whose
// queue is full has its oldest record dropped (the mailbox's built-in
// drop-oldest policy); publish then appends a gap marker carrying the
// number of records that this one Send displaced, using a ulid so gap
// markers sort monotonically alongside the records they replace (spec
// §4.5 item 5, §9). The marker itself takes a queue slot, so on a full
// queue it displaces one more record, which no marker counts.
func (f *Fanout) publish(rec *wire.LogRecord) {
	f.subs.Range(func(_ uint64, mb *mailbox.Mailbox[*wire.LogRecord]) {
		before := mb.Dropped()
		mb.Send(rec)
		if after := mb.Dropped(); after > before {
			mb.Send(&wire.LogRecord{
				Gap: &wire.LogGapMarker{
					ID:      f.nextULID(),
					Dropped: int(after - before),
				},
			})
		}
	})
}

func (f *Fanout) nextULID() string {
	f.entropyMu.Lock()
	defer f.entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), f.entropy).String()
}

// Enabled implements slog.Handler; the fan-out accepts every level and
// lets LogStream subscribers filter client-side.
func (f *Fanout) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler, publishing every log record written
// through this handler to LogStream subscribers.
func (f *Fanout) Handle(_ context.Context, r slog.Record) error {
	rec := &wire.LogRecord{
		Ts:      r.Time.UnixMilli(),
		Level:   r.Level.String(),
		Logger:  "exporter",
		Message: r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "source" {
			rec.Source = a.Value.String()
		}
		return true
	})
	f.publish(rec)
	return nil
}

// WithAttrs/WithGroup implement slog.Handler by returning f unchanged: the
// fan-out has no per-attribute formatting of its own.
func (f *Fanout) WithAttrs([]slog.Attr) slog.Handler { return f }
func (f *Fanout) WithGroup(string) slog.Handler      { return f }

// Shutdown closes every subscriber's queue.
func (f *Fanout) Shutdown() {
	f.subs.Shutdown()
}
