package tree

import (
	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// Proxy is a driver node resolved by path rather than uuid (spec §3): it
// references another node in the same tree and forwards every operation
// to it. Modeled directly on the original implementation's
// jumpstarter_driver_composite.driver.Proxy, which holds path: list[str]
// and walks root.children[path[0]].children[path[1]]... on every call
// instead of a direct parent pointer, to avoid cyclic references between
// parent and child nodes.
type Proxy struct {
	name string
	path []string
}

// NewProxy creates a Proxy named name that forwards to the node reached
// by following path from the tree root, resolved lazily at Enumerate/Find
// time rather than at construction.
func NewProxy(name string, path []string) *Proxy {
	return &Proxy{name: name, path: append([]string(nil), path...)}
}

func (p *Proxy) resolve(root domain.Node) (domain.Node, error) {
	cur := root
	for _, segment := range p.path {
		var next domain.Node
		for _, child := range cur.Children() {
			if child.Labels()["name"] == segment {
				next = child
				break
			}
		}
		if next == nil {
			return nil, jerrors.Newf(jerrors.InvalidArgument,
				"proxy driver %s references nonexistent driver %s", p.name, joinPath(p.path))
		}
		cur = next
	}
	return cur, nil
}

func joinPath(path []string) string {
	out := ""
	for i, s := range path {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}

// The Proxy type itself never satisfies domain.Node's data methods
// directly — tree.walk/Find type-switch on *Proxy and resolve it against
// root before calling UUID/Labels/etc, exactly as the original's
// Proxy.report/enumerate delegate to __target(root, name).report(...).
// These stubs exist only so a Proxy can be placed in a parent's Children
// slice as a domain.Node.

func (p *Proxy) UUID() uuid.UUID           { return uuid.Nil }
func (p *Proxy) Labels() map[string]string { return map[string]string{"name": p.name} }
func (p *Proxy) ClientClass() string       { return "" }
func (p *Proxy) Children() []domain.Node   { return nil }
func (p *Proxy) Methods() []domain.Method  { return nil }

func (p *Proxy) Call(ctx domain.CallContext, method string, args domain.Value) (domain.Value, error) {
	return domain.Value{}, jerrors.New(jerrors.Internal, "proxy node called directly instead of being resolved against root")
}

func (p *Proxy) CallStreaming(ctx domain.CallContext, method string, args domain.Value, emit func(domain.Value) error) error {
	return jerrors.New(jerrors.Internal, "proxy node called directly instead of being resolved against root")
}

func (p *Proxy) Close() error { return nil }

// Validate resolves the proxy's path against root once, so session
// construction can fail fast per spec §3's Proxy invariant ("the target
// path must resolve at enumerate() time; otherwise session construction
// fails") instead of only failing on first use.
func (p *Proxy) Validate(root domain.Node) error {
	_, err := p.resolve(root)
	return err
}
