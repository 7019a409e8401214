package tree

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
)

type closeRecorder struct {
	*Base
	name  string
	order *[]string
}

func (c *closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func newRecorder(name string, order *[]string, children ...domain.Node) *closeRecorder {
	return &closeRecorder{Base: NewBase(name, "test.Leaf", nil).SetChildren(children...), name: name, order: order}
}

func TestEnumeratePreOrderAndParentLinks(t *testing.T) {
	order := []string{}
	leafA := newRecorder("a", &order)
	leafB := newRecorder("b", &order)
	root := newRecorder("root", &order, leafA, leafB)

	tr := New(root)
	report, err := tr.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(report.Entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(report.Entries))
	}
	if report.Entries[0].UUID != root.UUID() {
		t.Fatal("first report entry should be the root, pre-order")
	}
	if report.Entries[0].ParentUUID != uuid.Nil {
		t.Fatal("the root entry should carry the zero-value parent uuid")
	}
	if report.Entries[1].ParentUUID != root.UUID() || report.Entries[2].ParentUUID != root.UUID() {
		t.Fatal("children should carry the root's uuid as parent_uuid")
	}
}

func TestEnumerateIsIdempotent(t *testing.T) {
	order := []string{}
	root := newRecorder("root", &order, newRecorder("a", &order))
	tr := New(root)

	r1, err := tr.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	r2, err := tr.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(r1.Entries) != len(r2.Entries) {
		t.Fatal("two Enumerate calls returned differently shaped reports")
	}
	for i := range r1.Entries {
		if r1.Entries[i].UUID != r2.Entries[i].UUID {
			t.Fatal("Enumerate is not idempotent: uuids differ across calls")
		}
	}
}

func TestProxyResolvesAgainstRoot(t *testing.T) {
	order := []string{}
	target := newRecorder("target", &order)
	proxy := NewProxy("alias", []string{"target"})
	root := newRecorder("root", &order, target, proxy)

	tr := New(root)
	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	report, err := tr.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	count := 0
	for _, e := range report.Entries {
		if e.UUID == target.UUID() {
			count++
		}
	}
	if count == 0 {
		t.Fatal("expected the proxy's target to appear in the report")
	}
}

func TestProxyUnresolvablePathFailsValidation(t *testing.T) {
	order := []string{}
	leaf := newRecorder("leaf", &order)
	proxy := NewProxy("dangling", []string{"nonexistent"})
	root := newRecorder("root", &order, leaf, proxy)

	tr := New(root)
	if err := tr.Validate(); err == nil {
		t.Fatal("expected Validate to fail for an unresolvable proxy path")
	}
}

func TestFindResolvesProxiedNode(t *testing.T) {
	order := []string{}
	target := newRecorder("target", &order)
	proxy := NewProxy("alias", []string{"target"})
	root := newRecorder("root", &order, target, proxy)

	tr := New(root)
	found, err := tr.Find(target.UUID())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.UUID() != target.UUID() {
		t.Fatal("Find returned the wrong node")
	}
}

func TestFindUnknownUUIDIsNotFound(t *testing.T) {
	order := []string{}
	root := newRecorder("root", &order)
	tr := New(root)

	if _, err := tr.Find(uuid.New()); err == nil {
		t.Fatal("expected NotFound for an unknown uuid")
	}
}

func TestCloseTearsDownInReverseEnumerationOrder(t *testing.T) {
	order := []string{}
	leafA := newRecorder("a", &order)
	leafB := newRecorder("b", &order)
	root := newRecorder("root", &order, leafA, leafB)

	tr := New(root)
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"b", "a", "root"}
	if len(order) != len(want) {
		t.Fatalf("close order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("close order = %v, want %v", order, want)
		}
	}
}
