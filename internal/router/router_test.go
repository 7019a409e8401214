package router

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/driver"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/stream"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/transport"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// chanEndpoint is a fake stream.Endpoint backed by Go channels, playing
// the role of either side of the tunnel for bridge's copy loops.
type chanEndpoint struct {
	in  chan []byte
	out chan []byte
	mu  sync.Mutex
	err error
}

func newChanEndpoint() *chanEndpoint {
	return &chanEndpoint{in: make(chan []byte, 16), out: make(chan []byte, 16)}
}

func (c *chanEndpoint) Send(payload []byte) error {
	c.out <- payload
	return nil
}

func (c *chanEndpoint) Recv() ([]byte, error) {
	c.mu.Lock()
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p, ok := <-c.in
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (c *chanEndpoint) failRecv(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func TestBridgeForwardsBothDirections(t *testing.T) {
	router := newChanEndpoint()
	local := newChanEndpoint()

	done := make(chan error, 1)
	go func() { done <- bridge(context.Background(), router, local) }()

	router.in <- []byte("to-local")
	if got := <-local.out; string(got) != "to-local" {
		t.Fatalf("local got %q", got)
	}

	local.in <- []byte("to-router")
	if got := <-router.out; string(got) != "to-router" {
		t.Fatalf("router got %q", got)
	}

	close(router.in)
	close(local.in)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not return after both sides half-closed")
	}
}

func TestBridgeFailureOnOneSideEndsTheOther(t *testing.T) {
	router := newChanEndpoint()
	local := newChanEndpoint()
	router.failRecv(errors.New("router tunnel read failed"))

	done := make(chan error, 1)
	go func() { done <- bridge(context.Background(), router, local) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected bridge to surface the router-side error")
		}
	case <-time.After(time.Second):
		t.Fatal("bridge did not return after one side failed")
	}
}

// echoEndpoint is a stream.Endpoint that hands back whatever it is sent,
// standing in for ServeOne's local session dial in the tunnel test below.
type echoEndpoint struct {
	queue chan []byte
}

func newEchoEndpoint() *echoEndpoint {
	return &echoEndpoint{queue: make(chan []byte, 16)}
}

func (e *echoEndpoint) Send(payload []byte) error {
	e.queue <- append([]byte(nil), payload...)
	return nil
}

func (e *echoEndpoint) Recv() ([]byte, error) {
	return <-e.queue, nil
}

// TestListenerServeOneRelaysThroughFakeRouter runs a real gRPC server for
// the fake router (spec §4.8) and exercises ServeOne end to end: dial the
// router, open the tunnel, bridge to a local echo endpoint, and confirm a
// frame sent from the client side of the tunnel comes back unchanged.
func TestListenerServeOneRelaysThroughFakeRouter(t *testing.T) {
	fakeRouter := driver.NewFakeRouter()
	sock := filepath.Join(t.TempDir(), "router.sock")
	endpoint := "unix://" + sock

	errCh := make(chan error, 1)
	go func() { errCh <- fakeRouter.Serve(endpoint) }()
	t.Cleanup(func() {
		fakeRouter.Stop()
		select {
		case <-errCh:
		case <-time.After(time.Second):
		}
	})
	waitForRouterSocket(t, sock)

	token := driver.NewStreamToken()
	local := newEchoEndpoint()
	listener := NewListener(func(ctx context.Context) (stream.Endpoint, error) {
		return local, nil
	}, nil)

	// ServeOne and the test's own tunnel dial are each cancelled
	// explicitly below: a resource-stream-style half-close only tells
	// one direction of one side's RPC to stop, but here both sides are
	// independent RouterService.Stream RPCs paired only by token, so
	// ending the whole relay needs both contexts torn down.
	serveCtx, cancelServe := context.WithCancel(context.Background())
	defer cancelServe()
	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- listener.ServeOne(serveCtx, endpoint, token) }()

	clientCtx, cancelClient := context.WithCancel(context.Background())
	defer cancelClient()
	conn, err := transport.Dial(clientCtx, endpoint, transport.WithToken(token))
	if err != nil {
		t.Fatalf("dial router: %v", err)
	}
	defer conn.Close()

	clientStream, err := wire.NewRouterClient(conn).Stream(clientCtx)
	if err != nil {
		t.Fatalf("open router stream: %v", err)
	}

	if err := clientStream.Send(&wire.RouterFrame{Payload: []byte("ping")}); err != nil {
		t.Fatalf("send: %v", err)
	}
	frame, err := clientStream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(frame.Payload) != "ping" {
		t.Fatalf("got %q, want %q", frame.Payload, "ping")
	}

	cancelClient()
	cancelServe()

	select {
	case <-serveErrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeOne did not return after both tunnel contexts were cancelled")
	}
}

func waitForRouterSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("router socket %s never came up", path)
}
