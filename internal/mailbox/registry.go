package mailbox

import (
	"sync"
	"time"
)

// Registry is the generalized form of the teacher's Hub: a sync.Map of
// keyed mailboxes plus a janitor goroutine that reclaims idle entries.
// LogStream subscriber sets are an instance of this shape, keyed by
// subscriber ID; the session resource registry (internal/resource) keeps
// its own unbounded queues instead.
type Registry[K comparable, T any] struct {
	entries sync.Map // K -> *Mailbox[T]

	capacity         int
	evictionInterval time.Duration
	idleTimeout      time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// RegistryOption configures a Registry at construction time.
type RegistryOption[K comparable, T any] func(*Registry[K, T])

// WithEvictionInterval sets how often the janitor sweeps for idle entries.
func WithEvictionInterval[K comparable, T any](d time.Duration) RegistryOption[K, T] {
	return func(r *Registry[K, T]) { r.evictionInterval = d }
}

// WithIdleTimeout sets how long an entry may sit unused before eviction.
func WithIdleTimeout[K comparable, T any](d time.Duration) RegistryOption[K, T] {
	return func(r *Registry[K, T]) { r.idleTimeout = d }
}

// NewRegistry builds a registry whose mailboxes are created with the given
// capacity, mirroring the teacher's NewHub(opts ...Option) defaults.
func NewRegistry[K comparable, T any](capacity int, opts ...RegistryOption[K, T]) *Registry[K, T] {
	r := &Registry[K, T]{
		capacity:         capacity,
		evictionInterval: time.Minute,
		idleTimeout:      5 * time.Minute,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.runEvictor()
	return r
}

// Open creates (or returns the existing) mailbox for key, the same
// load-or-store idiom as the teacher's Hub.Register.
func (r *Registry[K, T]) Open(key K) *Mailbox[T] {
	val, _ := r.entries.LoadOrStore(key, New[T](r.capacity))
	return val.(*Mailbox[T])
}

// Lookup returns the mailbox for key without creating one.
func (r *Registry[K, T]) Lookup(key K) (*Mailbox[T], bool) {
	val, ok := r.entries.Load(key)
	if !ok {
		return nil, false
	}
	return val.(*Mailbox[T]), true
}

// Close closes and removes the mailbox for key, if present.
func (r *Registry[K, T]) Close(key K) {
	if val, ok := r.entries.LoadAndDelete(key); ok {
		val.(*Mailbox[T]).Close()
	}
}

func (r *Registry[K, T]) runEvictor() {
	ticker := time.NewTicker(r.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.entries.Range(func(key, value any) bool {
				mb := value.(*Mailbox[T])
				if mb.IdleFor(r.idleTimeout) {
					mb.Close()
					r.entries.Delete(key)
				}
				return true
			})
		}
	}
}

// Range calls fn for every currently open mailbox, in no particular
// order. fn must not block for long: it runs inline on the caller's
// goroutine, the same contract as sync.Map.Range.
func (r *Registry[K, T]) Range(fn func(key K, mb *Mailbox[T])) {
	r.entries.Range(func(key, value any) bool {
		fn(key.(K), value.(*Mailbox[T]))
		return true
	})
}

// Shutdown stops the janitor and closes every open mailbox, matching the
// teacher's Hub.Shutdown.
func (r *Registry[K, T]) Shutdown() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.entries.Range(func(key, value any) bool {
		value.(*Mailbox[T]).Close()
		r.entries.Delete(key)
		return true
	})
}
