package mailbox

import (
	"testing"
	"time"
)

func TestRegistryOpenIsIdempotent(t *testing.T) {
	r := NewRegistry[string, int](4)
	t.Cleanup(r.Shutdown)

	a := r.Open("k")
	b := r.Open("k")
	if a != b {
		t.Fatal("Open for the same key should return the same mailbox")
	}
}

func TestRegistryLookupMissing(t *testing.T) {
	r := NewRegistry[string, int](4)
	t.Cleanup(r.Shutdown)

	if _, ok := r.Lookup("absent"); ok {
		t.Fatal("Lookup for a key never Open'd should report not found")
	}
}

func TestRegistryCloseRemovesEntry(t *testing.T) {
	r := NewRegistry[string, int](4)
	t.Cleanup(r.Shutdown)

	mb := r.Open("k")
	r.Close("k")

	if mb.Send(1) {
		t.Fatal("mailbox should be closed once its registry entry is closed")
	}
	if _, ok := r.Lookup("k"); ok {
		t.Fatal("Lookup should miss once the entry has been closed")
	}
}

func TestRegistryEvictsIdleEntries(t *testing.T) {
	r := NewRegistry[string, int](4,
		WithEvictionInterval[string, int](5*time.Millisecond),
		WithIdleTimeout[string, int](0),
	)
	t.Cleanup(r.Shutdown)

	r.Open("k")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Lookup("k"); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("janitor never evicted an idle entry")
}

func TestRegistryShutdownClosesAllMailboxes(t *testing.T) {
	r := NewRegistry[string, int](4)

	a := r.Open("a")
	b := r.Open("b")
	r.Shutdown()

	if a.Send(1) || b.Send(1) {
		t.Fatal("all mailboxes should be closed after Shutdown")
	}
}
