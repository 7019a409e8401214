// Package dispatch implements the driver dispatcher of spec §4.3:
// resolving a uuid+method pair against the driver tree and invoking it,
// either unary or server-streaming.
package dispatch

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/codec"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

// Dispatcher resolves DriverCall/StreamingDriverCall requests against a
// Tree. Multiple calls against the same driver may execute concurrently;
// drivers that require serialisation implement it internally (spec
// §4.3's concurrency note) — the dispatcher itself holds no per-node lock.
type Dispatcher struct {
	tree     *tree.Tree
	schemas  *codec.Registry
	lastCall atomic.Uint64
}

// New builds a dispatcher over t, validating schemas against schemas
// (pass nil to skip schema validation entirely, per spec §4.1's "where
// available" clause).
func New(t *tree.Tree, schemas *codec.Registry) *Dispatcher {
	return &Dispatcher{tree: t, schemas: schemas}
}

// callContext is the minimal domain.CallContext the dispatcher hands to
// driver implementations; it carries the session-wide monotonic call-id
// used only for log correlation (spec §3).
type callContext struct {
	done   <-chan struct{}
	err    func() error
	callID uint64
}

func (c callContext) Done() <-chan struct{} { return c.done }
func (c callContext) Err() error            { return c.err() }
func (c callContext) CallID() uint64        { return c.callID }

// Ctx adapts a standard context.Context into the domain.CallContext the
// dispatcher passes to driver methods, stamping it with the dispatcher's
// next call-id.
func (d *Dispatcher) Ctx(done <-chan struct{}, errFn func() error) domain.CallContext {
	return callContext{done: done, err: errFn, callID: d.lastCall.Add(1)}
}

func (d *Dispatcher) resolve(id uuid.UUID, method string, wantKind domain.MethodKind) (domain.Node, error) {
	node, err := d.tree.Find(id)
	if err != nil {
		return nil, err
	}
	for _, m := range node.Methods() {
		if m.Name != method {
			continue
		}
		if m.Kind != wantKind {
			return nil, jerrors.Newf(jerrors.InvalidArgument,
				"method %s on node %s is %s, not %s", method, id, m.Kind, wantKind)
		}
		return node, nil
	}
	return nil, jerrors.Newf(jerrors.NotFound, "node %s has no method %s", id, method)
}

// Call performs a unary DriverCall (spec §4.3). A failure raised by the
// driver method surfaces as Internal with the raised message, unless the
// driver itself returns a *jerrors.Error carrying a richer kind.
func (d *Dispatcher) Call(ctx domain.CallContext, id uuid.UUID, method string, args domain.Value) (domain.Value, error) {
	node, err := d.resolve(id, method, domain.MethodUnary)
	if err != nil {
		return domain.Value{}, err
	}
	if d.schemas != nil {
		if err := d.schemas.Validate(node.ClientClass(), method, args); err != nil {
			return domain.Value{}, err
		}
	}
	v, err := node.Call(ctx, method, args)
	if err != nil {
		return domain.Value{}, wrapDriverError(err)
	}
	return v, nil
}

// StreamingCall performs a StreamingDriverCall (spec §4.3), forwarding
// each value the driver's method yields to emit in production order.
func (d *Dispatcher) StreamingCall(ctx domain.CallContext, id uuid.UUID, method string, args domain.Value, emit func(domain.Value) error) error {
	node, err := d.resolve(id, method, domain.MethodStreaming)
	if err != nil {
		return err
	}
	if d.schemas != nil {
		if err := d.schemas.Validate(node.ClientClass(), method, args); err != nil {
			return err
		}
	}
	if err := node.CallStreaming(ctx, method, args, emit); err != nil {
		return wrapDriverError(err)
	}
	return nil
}

// wrapDriverError preserves an already-tagged *jerrors.Error from a
// driver (methods "MAY opt into richer error kinds", spec §4.3) and
// otherwise defaults to Internal.
func wrapDriverError(err error) error {
	if jerrors.KindOf(err) != jerrors.Internal && jerrors.KindOf(err) != jerrors.Unknown {
		return err
	}
	return jerrors.Wrap(jerrors.Internal, "driver call failed", err)
}
