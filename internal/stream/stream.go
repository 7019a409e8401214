// Package stream implements the stream multiplexer of spec §4.4: a
// bidirectional gRPC stream whose leading metadata tags it as either a
// driver-method stream open or a resource-stream attach, running two
// concurrent bounded-queue copy loops until either side closes.
package stream

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/mailbox"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

// maxFrameBytes bounds a single queued frame to spec §4.4's "≥16 KiB /
// ≤64 KiB pieces per message" range.
const maxFrameBytes = 64 * 1024

// queueDepth sizes each direction's bounded queue to roughly one network
// MTU's worth of frames.
const queueDepth = 16

// Endpoint is the minimal transport-agnostic interface a gRPC bidi stream
// (server or client side) must satisfy for Multiplexer to drive it; both
// wire.Exporter_StreamServer and wire.Exporter_StreamClient already
// satisfy it with their Send/Recv(*wire.StreamFrame) methods, via the
// adapters in internal/session and internal/client.
type Endpoint interface {
	Send(payload []byte) error
	Recv() ([]byte, error)
}

// DriverEndpoint is what a driver's exportstream method hands back while
// its scoped acquisition block runs: the byte-stream side the
// multiplexer copies to/from the client.
type DriverEndpoint interface {
	Send(payload []byte) error
	Recv() ([]byte, error)
	Close() error
}

// Multiplexer runs one stream open's copy loops.
type Multiplexer struct {
	tree      *tree.Tree
	resources *resource.Registry
}

// New builds a multiplexer over tree (for driver-variant opens) and
// resources (for resource-variant attaches).
func New(t *tree.Tree, resources *resource.Registry) *Multiplexer {
	return &Multiplexer{tree: t, resources: resources}
}

// ServeDriver runs the driver variant of a stream open (spec §4.4): it
// resolves uuid+method to an exportstream-tagged method, asks the driver
// to acquire a DriverEndpoint via acquire (the driver's scoped
// acquisition block), then copies bytes between client and driver until
// either side closes or fails. The acquired endpoint's Close is always
// called, on every exit path including cancellation, so the driver is
// guaranteed to release its resources.
func (m *Multiplexer) ServeDriver(ctx context.Context, id uuid.UUID, method string, client Endpoint, acquire func(ctx context.Context, id uuid.UUID, method string) (DriverEndpoint, error)) error {
	node, err := m.tree.Find(id)
	if err != nil {
		return err
	}
	if !hasExportStreamMethod(node, method) {
		return jerrors.Newf(jerrors.NotFound, "node %s has no exportstream method %s", id, method)
	}

	driverEnd, err := acquire(ctx, id, method)
	if err != nil {
		return err
	}
	defer driverEnd.Close()

	return copyBothWays(ctx, client, driverEnd)
}

// ServeResource runs the resource variant: it attaches the client end of
// an already-open resource stream, copying bytes from the client into
// the session's resource registry (spec §4.6.1).
func (m *Multiplexer) ServeResource(ctx context.Context, id uuid.UUID, client Endpoint) error {
	m.resources.Open(id)
	defer m.resources.Close(id)

	for {
		payload, err := client.Recv()
		if err != nil {
			m.resources.Fail(id, err)
			return err
		}
		if payload == nil {
			return nil
		}
		if err := m.resources.Push(id, payload); err != nil {
			return err
		}
	}
}

func hasExportStreamMethod(n domain.Node, method string) bool {
	for _, mtd := range n.Methods() {
		if mtd.Name == method && mtd.Kind == domain.MethodExportStream {
			return true
		}
	}
	return false
}

// copyBothWays runs the two concurrent copy loops of spec §4.4: a
// failure or half-close on one direction ends the other. Each direction
// is buffered through a bounded mailbox that blocks its reader goroutine
// once full rather than dropping frames — spec testable property 5
// requires the echo driver to yield back the identical byte sequence in
// order, which a drop-oldest queue cannot guarantee.
func copyBothWays(ctx context.Context, client Endpoint, driver DriverEndpoint) error {
	g, gCtx := errgroup.WithContext(ctx)
	pumpCtx, halfClose := context.WithCancel(gCtx)
	defer halfClose()
	direction := func(recv func() ([]byte, error), send func([]byte) error) func() error {
		return func() error {
			err := pump(pumpCtx, recv, send)
			if err == nil || (gCtx.Err() == nil && errors.Is(err, context.Canceled)) {
				halfClose()
				return nil
			}
			return err
		}
	}
	g.Go(direction(client.Recv, driver.Send))
	g.Go(direction(driver.Recv, client.Send))
	return g.Wait()
}

func pump(ctx context.Context, recv func() ([]byte, error), send func([]byte) error) error {
	mb := mailbox.New[[]byte](queueDepth)
	defer mb.Close()

	readErrCh := make(chan error, 1)
	go func() {
		defer close(readErrCh)
		for {
			payload, err := recv()
			if err != nil {
				readErrCh <- err
				return
			}
			if payload == nil {
				return
			}
			if len(payload) > maxFrameBytes {
				for len(payload) > 0 {
					n := min(len(payload), maxFrameBytes)
					if err := mb.SendBlocking(ctx, append([]byte(nil), payload[:n]...)); err != nil {
						return
					}
					payload = payload[n:]
				}
				continue
			}
			if err := mb.SendBlocking(ctx, payload); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-mb.Recv():
			if err := send(payload); err != nil {
				return err
			}
		case err, ok := <-readErrCh:
			if !ok {
				return drainAndSend(mb, send)
			}
			return err
		}
	}
}

// drainAndSend flushes any frames still queued after the reader side has
// finished cleanly, so a graceful half-close never silently drops the
// last buffered frames.
func drainAndSend(mb *mailbox.Mailbox[[]byte], send func([]byte) error) error {
	for {
		select {
		case payload := <-mb.Recv():
			if err := send(payload); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
