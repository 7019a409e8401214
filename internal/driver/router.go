package driver

import (
	"context"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/lithammer/shortuuid/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// FakeRouter is a minimal stand-in for the external router of spec §4.8:
// it accepts RouterService.Stream opens bearing a bearer token, and pairs
// up the two sides of a tunnel that present the same token, relaying
// RouterFrame payloads between them until either side closes. A real
// router pairs streams through the controller's provisioning records;
// this fixture uses the token itself as the pairing key, since nothing
// in this fabric's wire surface needs it to do more than that.
type FakeRouter struct {
	mu      sync.Mutex
	pending map[string]*waitSlot

	server   *grpc.Server
	listener net.Listener
}

type waitSlot struct {
	stream wire.Router_StreamServer
	done   chan error
}

// NewFakeRouter builds an unstarted FakeRouter.
func NewFakeRouter() *FakeRouter {
	return &FakeRouter{pending: make(map[string]*waitSlot)}
}

// NewStreamToken mints a per-stream token the way a real router's
// controller-issued credentials would shape one: opaque, short, and
// unique per stream (spec §4.8).
func NewStreamToken() string {
	return shortuuid.New()
}

// Serve starts the fake router listening on endpoint ("unix://" or
// "tcp://", the same scheme convention as internal/session.listen) and
// blocks until the listener closes or Stop is called.
func (r *FakeRouter) Serve(endpoint string) error {
	listener, err := fakeRouterListen(endpoint)
	if err != nil {
		return err
	}
	r.listener = listener

	r.server = grpc.NewServer()
	wire.RegisterRouterServer(r.server, r)
	return r.server.Serve(listener)
}

// Stop tears down the fake router's listener and aborts any in-flight
// tunnels.
func (r *FakeRouter) Stop() {
	if r.server != nil {
		r.server.Stop()
	}
}

// Stream implements wire.RouterServer: the first stream to present a
// given token waits for a peer bearing the same token, then the second
// arrival relays frames both ways until either side half-closes or
// fails.
func (r *FakeRouter) Stream(srv wire.Router_StreamServer) error {
	token := tokenFromContext(srv.Context())
	if token == "" {
		return jerrors.New(jerrors.InvalidArgument, "router stream missing bearer token")
	}

	r.mu.Lock()
	slot, ok := r.pending[token]
	if !ok {
		slot = &waitSlot{stream: srv, done: make(chan error, 1)}
		r.pending[token] = slot
		r.mu.Unlock()

		select {
		case err := <-slot.done:
			return err
		case <-srv.Context().Done():
			return srv.Context().Err()
		}
	}
	delete(r.pending, token)
	r.mu.Unlock()

	err := relayFrames(slot.stream, srv)
	slot.done <- err
	return err
}

func tokenFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return ""
}

// relayFrames copies RouterFrame payloads between a and b in both
// directions, the same half-close-ends-the-other contract as
// internal/router's bridge.
func relayFrames(a, b wire.Router_StreamServer) error {
	errCh := make(chan error, 2)
	go func() { errCh <- pumpFrames(a, b) }()
	go func() { errCh <- pumpFrames(b, a) }()

	var firstErr error
	for range 2 {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func pumpFrames(from, to wire.Router_StreamServer) error {
	for {
		frame, err := from.Recv()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := to.Send(frame); err != nil {
			return err
		}
	}
}

func fakeRouterListen(endpoint string) (net.Listener, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "parse endpoint "+endpoint, err)
	}
	switch u.Scheme {
	case "unix":
		return net.Listen("unix", u.Path)
	case "tcp":
		return net.Listen("tcp", u.Host)
	default:
		return nil, jerrors.Newf(jerrors.InvalidArgument, "unsupported endpoint scheme %q", u.Scheme)
	}
}
