package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

// chanEndpoint is a fake Endpoint/DriverEndpoint backed by Go channels,
// playing the role of a loopback gRPC bidi stream for the copy loops.
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

func (c *chanEndpoint) Close() error {
	close(c.in)
	return nil
}

func (c *chanEndpoint) failRecv(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func TestCopyBothWaysForwardsBothDirections(t *testing.T) {
	client := newChanEndpoint()
	driver := newChanEndpoint()

	done := make(chan error, 1)
	go func() { done <- copyBothWays(context.Background(), client, driver) }()

	client.in <- []byte("to-driver")
	if got := <-driver.out; string(got) != "to-driver" {
		t.Fatalf("driver got %q", got)
	}

	driver.in <- []byte("to-client")
	if got := <-client.out; string(got) != "to-client" {
		t.Fatalf("client got %q", got)
	}

	close(client.in)
	close(driver.in)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("copyBothWays did not return after both sides half-closed")
	}
}

func TestCopyBothWaysFailureOnOneSideEndsTheOther(t *testing.T) {
	client := newChanEndpoint()
	driver := newChanEndpoint()
	client.failRecv(errors.New("client read failed"))

	done := make(chan error, 1)
	go func() { done <- copyBothWays(context.Background(), client, driver) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected copyBothWays to surface the client-side error")
		}
	case <-time.After(time.Second):
		t.Fatal("copyBothWays did not return after one side failed")
	}
}

func TestServeResourceForwardsPushedChunks(t *testing.T) {
	resources := resource.New(8)
	id := uuid.New()
	client := newChanEndpoint()

	done := make(chan error, 1)
	mux := New(nil, resources)
	go func() { done <- mux.ServeResource(context.Background(), id, client) }()

	client.in <- []byte("part1")
	client.in <- []byte("part2")
	close(client.in)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ServeResource: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ServeResource did not return after the client half-closed")
	}

	reader, err := resources.Take(id)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "part1part2" {
		t.Fatalf("got %q, want %q", got, "part1part2")
	}
}

func TestServeDriverRejectsNonExportStreamMethod(t *testing.T) {
	driverNode := tree.NewBase("d", "test.Fake", []domain.Method{{Name: "ping", Kind: domain.MethodUnary}})
	root := tree.NewComposite("root", driverNode)
	tr := tree.New(root)
	mux := New(tr, resource.New(8))

	err := mux.ServeDriver(context.Background(), driverNode.UUID(), "ping", newChanEndpoint(), func(ctx context.Context, id uuid.UUID, method string) (DriverEndpoint, error) {
		t.Fatal("acquire should not be called for a non-exportstream method")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected an error for a non-exportstream method")
	}
}
