// Package tree implements the driver tree and its enumeration (spec §3,
// §4.2): pre-order traversal (each node before its children) into a flat
// DriverReport, with Proxy nodes
// resolved by path against the tree root rather than emitted as their own
// report entries.
package tree

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// Tree owns a session's root driver node. Nodes are created at
// construction and never mutated after Enumerate returns (spec §3).
type Tree struct {
	Root domain.Node
}

// New wraps root. Callers must call Validate once before serving any
// gRPC calls, to fail fast on an unresolvable Proxy path (spec §3's
// Proxy invariant).
func New(root domain.Node) *Tree {
	return &Tree{Root: root}
}

// Enumerate produces the driver report by pre-order traversal of the
// root (each node before its children, so every entry's parent appears
// earlier in the list), per spec §4.2. It is idempotent and side-effect-free: calling it
// twice returns byte-identical (deep-equal) results, since the tree is
// immutable after construction.
func (t *Tree) Enumerate() (domain.Report, error) {
	var entries []domain.ReportEntry
	if err := t.walk(t.Root, uuid.Nil, &entries); err != nil {
		return domain.Report{}, err
	}
	return domain.Report{Entries: entries}, nil
}

func (t *Tree) walk(n domain.Node, parent uuid.UUID, entries *[]domain.ReportEntry) error {
	if p, ok := n.(*Proxy); ok {
		target, err := p.resolve(t.Root)
		if err != nil {
			return err
		}
		return t.walk(target, parent, entries)
	}

	*entries = append(*entries, domain.ReportEntry{
		UUID:        n.UUID(),
		ParentUUID:  parent,
		Labels:      n.Labels(),
		ClientClass: n.ClientClass(),
	})

	for _, child := range n.Children() {
		if err := t.walk(child, n.UUID(), entries); err != nil {
			return err
		}
	}
	return nil
}

// Validate walks the whole tree resolving every Proxy's path against
// root, so an unresolvable Proxy fails session construction immediately
// (spec §3's Proxy invariant) rather than on first use.
func (t *Tree) Validate() error {
	var walkValidate func(n domain.Node) error
	walkValidate = func(n domain.Node) error {
		if p, ok := n.(*Proxy); ok {
			return p.Validate(t.Root)
		}
		for _, child := range n.Children() {
			if err := walkValidate(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walkValidate(t.Root)
}

// Find resolves uuid against the tree, the lookup DriverCall/
// StreamingDriverCall need before invoking a method (spec §4.3).
// Proxies are transparent: finding a uuid that belongs to a node reached
// only through a Proxy still succeeds, since Find walks the same
// Proxy-resolving traversal as Enumerate.
func (t *Tree) Find(target uuid.UUID) (domain.Node, error) {
	var found domain.Node
	var walkFind func(n domain.Node) error
	walkFind = func(n domain.Node) error {
		if found != nil {
			return nil
		}
		if p, ok := n.(*Proxy); ok {
			resolved, err := p.resolve(t.Root)
			if err != nil {
				return err
			}
			return walkFind(resolved)
		}
		if n.UUID() == target {
			found = n
			return nil
		}
		for _, child := range n.Children() {
			if err := walkFind(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walkFind(t.Root); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, jerrors.Newf(jerrors.NotFound, "no driver node with uuid %s", target)
	}
	return found, nil
}

// Close tears down every node in reverse enumeration order (spec §4.5).
func (t *Tree) Close() error {
	report, err := t.Enumerate()
	if err != nil {
		return err
	}
	byUUID := make(map[uuid.UUID]domain.Node, len(report.Entries))
	t.index(t.Root, byUUID)

	var firstErr error
	for i := len(report.Entries) - 1; i >= 0; i-- {
		n, ok := byUUID[report.Entries[i].UUID]
		if !ok {
			continue
		}
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close node %s: %w", report.Entries[i].UUID, err)
		}
	}
	return firstErr
}

func (t *Tree) index(n domain.Node, out map[uuid.UUID]domain.Node) {
	if p, ok := n.(*Proxy); ok {
		target, err := p.resolve(t.Root)
		if err != nil {
			return
		}
		t.index(target, out)
		return
	}
	out[n.UUID()] = n
	for _, c := range n.Children() {
		t.index(c, out)
	}
}
