// Package driver provides small, self-contained driver nodes: an echo
// network driver, a mock power driver, and a mock storage-mux driver.
// They serve two roles the original implementation's own
// MockPower/EchoNetwork/MockStorageMux (jumpstarter_driver_power/
// network/storage's driver.py) also serve there — installable reference
// drivers an ExporterConfig.export document can name by type, and the
// fixtures internal/scenario's end-to-end tests exercise a real session
// against (spec §8). Each registers itself with internal/driverregistry
// in its own init(), the compile-time stand-in for the original's
// importlib-based dynamic class loading.
package driver

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/codec"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/driverregistry"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/stream"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

func parseResourceUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, jerrors.Wrap(jerrors.InvalidArgument, "invalid resource uuid "+s, err)
	}
	return id, nil
}

// EchoNetworkClientClass mirrors the original NetworkInterface.client()
// classmethod every concrete network driver shares.
const EchoNetworkClientClass = "jumpstarter_driver_network.client.NetworkClient"

// EchoNetworkDriverType is the DriverInstance.type an ExporterConfig.export
// document names to mount an EchoNetwork node, paralleling the original
// implementation's jumpstarter_driver_network.driver.TcpNetwork-style
// dotted driver path.
const EchoNetworkDriverType = "jumpstarter_driver_network.driver.Echo"

// EchoNetwork is the network driver whose "connect" exportstream method
// yields a byte-stream endpoint that echoes back whatever it is sent
// (spec §8 scenario (a), testable property 5).
type EchoNetwork struct {
	*tree.Base
}

// NewEchoNetwork builds an EchoNetwork node named name.
func NewEchoNetwork(name string) *EchoNetwork {
	return &EchoNetwork{
		Base: tree.NewBase(name, EchoNetworkClientClass, []domain.Method{
			{Name: "connect", Kind: domain.MethodExportStream},
		}),
	}
}

// Acquire implements stream.Acquirer: a fresh echoEndpoint per stream
// open, matching the original's per-connect memory-object-stream pair.
func (e *EchoNetwork) Acquire(ctx context.Context, method string) (stream.DriverEndpoint, error) {
	if method != "connect" {
		return nil, jerrors.Newf(jerrors.NotFound, "echo network has no exportstream method %s", method)
	}
	return &echoEndpoint{}, nil
}

// echoEndpoint is a DriverEndpoint that hands back every payload sent to
// it, in order, via a small internal queue.
type echoEndpoint struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
}

func (e *echoEndpoint) Send(payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return jerrors.New(jerrors.Cancelled, "echo endpoint closed")
	}
	e.queue = append(e.queue, append([]byte(nil), payload...))
	return nil
}

func (e *echoEndpoint) Recv() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		if e.closed {
			return nil, nil
		}
		return []byte{}, nil
	}
	payload := e.queue[0]
	e.queue = e.queue[1:]
	return payload, nil
}

func (e *echoEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// PowerClientClass mirrors PowerInterface.client().
const PowerClientClass = "jumpstarter_driver_power.client.PowerClient"

// PowerDriverType is the DriverInstance.type naming a MockPower node.
const PowerDriverType = "jumpstarter_driver_power.driver.MockPower"

// MockPower is the power driver of spec §8 scenario (b): "on"/"off"
// return "ok", and streaming "read" yields exactly the two fixed
// readings the original's MockPower.read produces.
type MockPower struct {
	*tree.Base
}

// NewMockPower builds a MockPower node named name.
func NewMockPower(name string) *MockPower {
	return &MockPower{
		Base: tree.NewBase(name, PowerClientClass, []domain.Method{
			{Name: "on", Kind: domain.MethodUnary},
			{Name: "off", Kind: domain.MethodUnary},
			{Name: "read", Kind: domain.MethodStreaming},
		}),
	}
}

func (p *MockPower) Call(ctx domain.CallContext, method string, args domain.Value) (domain.Value, error) {
	switch method {
	case "on", "off":
		return codec.Encode("ok")
	default:
		return domain.Value{}, jerrors.Newf(jerrors.NotFound, "mock power has no method %s", method)
	}
}

func (p *MockPower) CallStreaming(ctx domain.CallContext, method string, args domain.Value, emit func(domain.Value) error) error {
	if method != "read" {
		return jerrors.Newf(jerrors.NotFound, "mock power has no streaming method %s", method)
	}
	for _, reading := range []domain.PowerReading{{Voltage: 0.0, Current: 0.0}, {Voltage: 5.0, Current: 2.0}} {
		v, err := codec.Encode(reading)
		if err != nil {
			return err
		}
		if err := emit(v); err != nil {
			return err
		}
	}
	return nil
}

// StorageMuxClientClass mirrors StorageMuxInterface.client().
const StorageMuxClientClass = "jumpstarter.drivers.storage.client.StorageMuxClient"

// StorageMuxDriverType is the DriverInstance.type naming a MockStorageMux
// node.
const StorageMuxDriverType = "jumpstarter_driver_opendal.driver.MockStorageMux"

func init() {
	driverregistry.Register(EchoNetworkDriverType, func(name string, _ map[string]any, _ []domain.Node, _ *resource.Registry) (domain.Node, error) {
		return NewEchoNetwork(name), nil
	})
	driverregistry.Register(PowerDriverType, func(name string, _ map[string]any, _ []domain.Node, _ *resource.Registry) (domain.Node, error) {
		return NewMockPower(name), nil
	})
	driverregistry.Register(StorageMuxDriverType, func(name string, _ map[string]any, _ []domain.Node, resources *resource.Registry) (domain.Node, error) {
		if resources == nil {
			return nil, jerrors.Newf(jerrors.Internal, "driver %q requires a resource registry", StorageMuxDriverType)
		}
		return NewMockStorageMux(name, resources), nil
	})
}

// MockStorageMux is the storage-mux driver of spec §8 scenario (d):
// "write" drains a client_stream resource handle into a temporary file
// and reports the byte count, then forgets the handle so a repeat write
// against the same uuid fails NotFound rather than "already consumed",
// matching the original's context-managed, single-use self.resource(src).
type MockStorageMux struct {
	*tree.Base
	resources *resource.Registry

	mu       sync.Mutex
	lastFile []byte
}

// NewMockStorageMux builds a MockStorageMux node named name, draining
// resources from registry.
func NewMockStorageMux(name string, registry *resource.Registry) *MockStorageMux {
	return &MockStorageMux{
		Base: tree.NewBase(name, StorageMuxClientClass, []domain.Method{
			{Name: "host", Kind: domain.MethodUnary},
			{Name: "dut", Kind: domain.MethodUnary},
			{Name: "off", Kind: domain.MethodUnary},
			{Name: "write", Kind: domain.MethodUnary},
		}),
		resources: registry,
	}
}

// LastWrite returns the bytes most recently written via "write", for
// tests to assert against the sent payload.
func (s *MockStorageMux) LastWrite() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.lastFile...)
}

func (s *MockStorageMux) Call(ctx domain.CallContext, method string, args domain.Value) (domain.Value, error) {
	switch method {
	case "host", "dut", "off":
		return domain.Value{Null: true}, nil
	case "write":
		return s.write(args)
	default:
		return domain.Value{}, jerrors.Newf(jerrors.NotFound, "mock storage mux has no method %s", method)
	}
}

func (s *MockStorageMux) write(args domain.Value) (domain.Value, error) {
	var handle domain.ResourceHandle
	if err := codec.Decode(args, &handle); err != nil {
		return domain.Value{}, err
	}
	if !handle.IsClientStream() {
		return domain.Value{}, jerrors.New(jerrors.InvalidArgument, "mock storage mux only accepts client_stream handles")
	}

	id, err := parseResourceUUID(handle.ClientStream.UUID)
	if err != nil {
		return domain.Value{}, err
	}

	r, err := s.resources.Take(id)
	if err != nil {
		return domain.Value{}, err
	}

	tmp, err := os.CreateTemp("", "jmp-storage-*")
	if err != nil {
		return domain.Value{}, jerrors.Wrap(jerrors.Internal, "create temp file", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(tmp, &buf), r)
	if err != nil {
		return domain.Value{}, jerrors.Wrap(jerrors.Internal, "write resource to temp file", err)
	}

	s.mu.Lock()
	s.lastFile = buf.Bytes()
	s.mu.Unlock()

	s.resources.Forget(id)

	return codec.Encode(n)
}

func (s *MockStorageMux) CallStreaming(ctx domain.CallContext, method string, args domain.Value, emit func(domain.Value) error) error {
	return jerrors.Newf(jerrors.NotFound, "mock storage mux has no streaming method %s", method)
}
