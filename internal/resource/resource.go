// Package resource implements the session's resource registry (spec §3,
// §4.6): a map from resource uuid to the send-half of a byte stream the
// client has opened, consumed exactly once by the driver method the
// client names it to.
package resource

import (
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// chunk is one payload frame read off a client_stream resource.
type chunk struct {
	data []byte
	err  error // non-nil on the final chunk if the client-side stream failed
}

// stream is the server-side handle for one open client_stream resource: an
// unbounded queue of chunks plus a single-consume guard (spec §4.6's "the
// driver consumes the stream exactly once"). The queue is deliberately
// unbounded rather than the bounded, backpressured mailbox.Mailbox the
// rest of this fabric uses: spec §8 scenario (d) uploads an entire
// resource before any driver method ever calls Take, so nothing drains
// the queue concurrently with Push, and blocking Push on a full bounded
// queue would simply wedge the upload forever instead of ever making
// room.
type stream struct {
	q     *chunkQueue
	taken bool
}

// Registry is the session's resource registry (spec §3).
type Registry struct {
	mu      sync.Mutex
	streams map[uuid.UUID]*stream
	cap     int
}

// New builds an empty registry. cap is a preallocation hint for each
// opened resource's queue, not a hard bound — spec §4.6's exact,
// lossless byte-delivery requirement rules out ever dropping or blocking
// a full queue (see stream's doc comment).
func New(cap int) *Registry {
	return &Registry{streams: make(map[uuid.UUID]*stream), cap: cap}
}

// Open registers id as an open client_stream resource, called when the
// client's Stream(resource{uuid}) RPC begins (spec §4.6.1).
func (r *Registry) Open(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[id]; ok {
		return
	}
	r.streams[id] = &stream{q: newChunkQueue(r.cap)}
}

// Push delivers one payload chunk from the client into the resource's
// queue. It never blocks and never drops a chunk: the queue grows to fit
// whatever arrives, so every byte the client sends reaches the driver
// regardless of how far the upload gets ahead of the eventual Take/read.
func (r *Registry) Push(id uuid.UUID, data []byte) error {
	r.mu.Lock()
	s, ok := r.streams[id]
	r.mu.Unlock()
	if !ok {
		return jerrors.Newf(jerrors.NotFound, "no resource opened with uuid %s", id)
	}
	s.q.push(chunk{data: data})
	return nil
}

// Fail marks the resource as failed, propagated to the reader as an
// error on its next Read, and closes the queue.
func (r *Registry) Fail(id uuid.UUID, err error) {
	r.mu.Lock()
	s, ok := r.streams[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	s.q.push(chunk{err: err})
	s.q.close()
}

// Close marks the resource's stream complete (normal EOF) and closes the
// queue; called when the client half-closes its Stream RPC.
func (r *Registry) Close(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.streams[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	s.q.close()
}

// Forget removes id from the registry entirely, so a subsequent Take or
// Push for the same uuid behaves as if it had never been opened (spec
// §8 scenario (d): a second write against an already-consumed handle
// fails with NotFound, not "already consumed"). Callers invoke this once
// a consumer has fully drained the resource.
func (r *Registry) Forget(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
}

// Take claims the resource for single-consume reading (spec §4.6.1's
// invariant that the driver consumes the stream exactly once). The
// second call for the same id fails with Internal. The check-and-set of
// s.taken happens under r.mu, not just the map lookup, so two concurrent
// Take calls against the same uuid can never both win.
func (r *Registry) Take(id uuid.UUID) (io.Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, jerrors.Newf(jerrors.NotFound, "no resource opened with uuid %s", id)
	}
	if s.taken {
		return nil, jerrors.Newf(jerrors.Internal, "resource %s already consumed", id)
	}
	s.taken = true
	return &reader{q: s.q}, nil
}

// reader adapts a chunk queue into an io.Reader, draining chunks as Read
// is called and surfacing EOF once the queue closes with no more chunks
// pending.
type reader struct {
	q   *chunkQueue
	buf []byte
}

func (r *reader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		c, ok := r.q.next()
		if !ok {
			return 0, io.EOF
		}
		if c.err != nil {
			return 0, jerrors.Wrap(jerrors.Internal, "resource stream failed", c.err)
		}
		r.buf = c.data
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// chunkQueue is an unbounded, FIFO, condition-variable-guarded queue of
// chunks. Unlike mailbox.Mailbox, push never blocks and never discards:
// this is the one queue in the fabric where the producer (the client's
// upload) is expected to legitimately run far ahead of the consumer (the
// driver's eventual Take), so neither drop-oldest nor bounded
// backpressure is an option.
type chunkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []chunk
	closed bool
}

func newChunkQueue(capacityHint int) *chunkQueue {
	q := &chunkQueue{}
	if capacityHint > 0 {
		q.items = make([]chunk, 0, capacityHint)
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *chunkQueue) push(c chunk) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *chunkQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// next blocks until a chunk is queued or the queue is closed with
// nothing left to deliver, in which case it returns ok == false.
func (q *chunkQueue) next() (chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return chunk{}, false
	}
	c := q.items[0]
	q.items = q.items[1:]
	return c, true
}
