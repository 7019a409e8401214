// Package router implements the router tunnel of spec §4.8: when a client
// cannot reach an exporter directly, the controller provisions a router
// endpoint and short-lived tokens for both sides, and the router itself
// relays full-duplex byte streams between them. This package is the two
// halves of that relationship this fabric owns: the exporter-side
// Listener that services router-assigned streams against its local
// session, and the client-side Dial that turns a lease's router endpoint
// into a session-equivalent gRPC channel.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/stream"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/transport"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// DialClient opens the client side of the tunnel (spec §4.8: "client side:
// dials the router-as-service, receives a session-like channel, uses it
// as the session transport"). The router proxies the exporter's Exporter
// service transparently, so the returned connection is used exactly like
// a direct dial to the exporter: wire.NewExporterClient(conn).
func DialClient(ctx context.Context, endpoint, token string) (*grpc.ClientConn, error) {
	return transport.Dial(ctx, endpoint, transport.WithToken(token))
}

// Listener is the exporter-side half (spec §4.8): for each router-assigned
// stream it dials the per-stream endpoint with the per-stream token, opens
// RouterService.Stream, and bridges bytes between that tunnel and the
// exporter's own local session over localDial.
type Listener struct {
	logger    *slog.Logger
	localDial func(ctx context.Context) (stream.Endpoint, error)
}

// NewListener builds a Listener that services router-assigned streams by
// dialing localDial for each one — typically a loopback connection into
// the exporter's own Session.Stream RPC.
func NewListener(localDial func(ctx context.Context) (stream.Endpoint, error), logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{logger: logger, localDial: localDial}
}

// ServeOne dials the router at endpoint with token, opens one tunnel, and
// bridges it to a freshly dialed local session stream until either side
// closes or fails. It is the unit of work the controller's per-lease
// ObtainRouterEndpoint response describes: one router-assigned stream,
// serviced once.
func (l *Listener) ServeOne(ctx context.Context, endpoint, token string) error {
	conn, err := transport.Dial(ctx, endpoint, transport.WithToken(token))
	if err != nil {
		return fmt.Errorf("dial router endpoint %s: %w", endpoint, err)
	}
	defer conn.Close()

	routerClient := wire.NewRouterClient(conn)
	tunnel, err := routerClient.Stream(ctx)
	if err != nil {
		return fmt.Errorf("open router stream: %w", err)
	}

	local, err := l.localDial(ctx)
	if err != nil {
		return fmt.Errorf("dial local session: %w", err)
	}

	l.logger.Debug("router tunnel established", "endpoint", endpoint)
	err = bridge(ctx, routerEndpoint{tunnel}, local)
	if err != nil {
		l.logger.Warn("router tunnel ended", "endpoint", endpoint, "error", err)
	}
	return err
}

// routerEndpoint adapts a wire.Router_StreamClient into stream.Endpoint so
// bridge can drive it with the same copy-loop shape as the session's
// stream multiplexer.
type routerEndpoint struct {
	stream wire.Router_StreamClient
}

func (e routerEndpoint) Send(payload []byte) error {
	return e.stream.Send(&wire.RouterFrame{Payload: payload})
}

func (e routerEndpoint) Recv() ([]byte, error) {
	frame, err := e.stream.Recv()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return frame.Payload, nil
}

// bridge copies bytes between the router tunnel and the local session
// endpoint in both directions, ending when either side half-closes or
// fails — the same ordering/backpressure contract spec §4.8 requires of
// whatever lies on the other side of the router.
func bridge(ctx context.Context, router, local stream.Endpoint) error {
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
	g.Go(direction(router.Recv, local.Send))
	g.Go(direction(local.Recv, router.Send))
	return g.Wait()
}

func pump(ctx context.Context, recv func() ([]byte, error), send func([]byte) error) error {
	for {
		var payload []byte
		var err error
		received := make(chan struct{})
		go func() { payload, err = recv(); close(received) }()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-received:
		}
		if err != nil {
			return err
		}
		if payload == nil {
			return nil
		}
		if err := send(payload); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
