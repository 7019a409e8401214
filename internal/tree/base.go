package tree

import (
	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// Base implements the bookkeeping common to every concrete driver node —
// stable uuid, labels, client-class, children, methods table — so a
// driver only has to supply Call/CallStreaming/Close. Embedding mirrors
// the original implementation's Driver base dataclass, which every
// concrete driver (Composite, Proxy, and real hardware drivers) derives
// from for its report()/enumerate() plumbing.
type Base struct {
	id          uuid.UUID
	labels      map[string]string
	clientClass string
	children    []domain.Node
	methods     []domain.Method
}

// NewBase constructs a Base with a freshly generated stable uuid. name is
// stored as the mandatory "name" label (spec §3).
func NewBase(name, clientClass string, methods []domain.Method) *Base {
	return &Base{
		id:          uuid.New(),
		labels:      map[string]string{"name": name},
		clientClass: clientClass,
		methods:     methods,
	}
}

// WithLabel adds an additional label beyond the mandatory "name".
func (b *Base) WithLabel(key, value string) *Base {
	b.labels[key] = value
	return b
}

// SetChildren installs b's ordered child list. Children are spec-ordered:
// iteration order is the order Children() returns, unchanged thereafter.
func (b *Base) SetChildren(children ...domain.Node) *Base {
	b.children = children
	return b
}

func (b *Base) UUID() uuid.UUID           { return b.id }
func (b *Base) Labels() map[string]string { return b.labels }
func (b *Base) ClientClass() string       { return b.clientClass }
func (b *Base) Children() []domain.Node   { return b.children }
func (b *Base) Methods() []domain.Method  { return b.methods }

// Composite is the built-in client-class for a node that exists purely to
// group children (spec §4.2's tree-shape example), with no methods of its
// own. It mirrors the original CompositeInterface/Composite driver, whose
// client resolves to jumpstarter_driver_composite.client.CompositeClient.
const CompositeClientClass = "jumpstarter_driver_composite.client.CompositeClient"

// NewComposite builds a Base configured as a composite grouping node.
func NewComposite(name string, children ...domain.Node) *Base {
	return NewBase(name, CompositeClientClass, nil).SetChildren(children...)
}

func (b *Base) Call(ctx domain.CallContext, method string, args domain.Value) (domain.Value, error) {
	return domain.Value{}, jerrors.Newf(jerrors.NotFound, "node %s has no method %s", b.labels["name"], method)
}

func (b *Base) CallStreaming(ctx domain.CallContext, method string, args domain.Value, emit func(domain.Value) error) error {
	return jerrors.Newf(jerrors.NotFound, "node %s has no streaming method %s", b.labels["name"], method)
}

func (b *Base) Close() error { return nil }
