// Package client implements the client proxy of spec §4.7: given a driver
// report, build one proxy object per entry, gate client-class resolution
// through an allow-list, and expose typed thin wrappers around
// DriverCall/StreamingDriverCall/Stream.
package client

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/codec"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// Proxy is one driver-report entry's client-side representation (spec
// §4.7): its uuid, client-class, a reference to the shared channel, and
// (for composite-class entries) an ordered map of child name to child
// proxy.
type Proxy struct {
	UUID        uuid.UUID
	ClientClass string
	Children    map[string]*Proxy
	childOrder  []string

	client *Client
}

// Child returns the named child proxy, or nil if clientClass is not the
// composite class or name is unknown.
func (p *Proxy) Child(name string) *Proxy {
	return p.Children[name]
}

// ChildNames returns child names in report order.
func (p *Proxy) ChildNames() []string {
	return append([]string(nil), p.childOrder...)
}

// Call invokes a unary driver method (spec §4.3) through this proxy.
func (p *Proxy) Call(ctx context.Context, method string, args any) (any, error) {
	return p.client.call(ctx, p.UUID, method, args)
}

// CallStreaming invokes a server-streaming driver method, delivering each
// yielded value to emit in order.
func (p *Proxy) CallStreaming(ctx context.Context, method string, args any, emit func(any) error) error {
	return p.client.callStreaming(ctx, p.UUID, method, args, emit)
}

// OpenDriverStream opens a driver exportstream (spec §4.4) and hands the
// caller a byte-stream endpoint to drive directly.
func (p *Proxy) OpenDriverStream(ctx context.Context, method string) (*DriverStream, error) {
	return p.client.openDriverStream(ctx, p.UUID, method)
}

// Client is the shared gRPC channel plus allow-list every proxy in a
// report is built against.
type Client struct {
	wire      wire.ExporterClient
	allowList *AllowList
}

// NewClient wraps an already-dialed connection's Exporter stub with an
// allow-list (spec §4.7).
func NewClient(exporter wire.ExporterClient, allowList *AllowList) *Client {
	return &Client{wire: exporter, allowList: allowList}
}

// BuildProxies fetches the exporter's driver report and constructs one
// proxy per entry, reassembling the parent/child tree and refusing any
// entry whose client-class the allow-list rejects (error kind
// PermissionDenied) — without ever loading code for the refused class
// (spec §4.7, testable scenario (f)).
func (c *Client) BuildProxies(ctx context.Context) (*Proxy, error) {
	report, err := c.wire.GetReport(ctx, &wire.GetReportRequest{})
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]*Proxy, len(report.Entries))
	var root *Proxy
	var rootParent string

	for _, e := range report.Entries {
		if !c.allowList.Allowed(e.ClientClass) {
			return nil, jerrors.Newf(jerrors.PermissionDenied, "client-class %s is not in the allow-list", e.ClientClass)
		}
		p := &Proxy{
			UUID:        uuid.MustParse(e.UUID),
			ClientClass: e.ClientClass,
			Children:    map[string]*Proxy{},
			client:      c,
		}
		byUUID[e.UUID] = p
		if e.ParentUUID == "" {
			root = p
			rootParent = e.UUID
		}
	}
	if root == nil {
		return nil, jerrors.New(jerrors.Internal, "driver report has no root entry")
	}

	for _, e := range report.Entries {
		if e.ParentUUID == "" || e.UUID == rootParent {
			continue
		}
		parent, ok := byUUID[e.ParentUUID]
		if !ok {
			return nil, jerrors.Newf(jerrors.Internal, "entry %s references unknown parent %s", e.UUID, e.ParentUUID)
		}
		name := e.Labels["name"]
		if name == "" {
			name = e.UUID
		}
		child := byUUID[e.UUID]
		parent.Children[name] = child
		parent.childOrder = append(parent.childOrder, name)
	}

	return root, nil
}

func (c *Client) call(ctx context.Context, id uuid.UUID, method string, args any) (any, error) {
	val, err := codec.Encode(args)
	if err != nil {
		return nil, err
	}
	pv, err := codec.ToStructpb(val)
	if err != nil {
		return nil, err
	}
	resp, err := c.wire.DriverCall(ctx, &wire.DriverCallRequest{
		Uuid:   id.String(),
		Method: method,
		Args:   wire.NewValue(pv),
	})
	if err != nil {
		return nil, err
	}
	result, err := codec.FromStructpb(resp.Value.Value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := codec.Decode(result, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) callStreaming(ctx context.Context, id uuid.UUID, method string, args any, emit func(any) error) error {
	val, err := codec.Encode(args)
	if err != nil {
		return err
	}
	pv, err := codec.ToStructpb(val)
	if err != nil {
		return err
	}
	stream, err := c.wire.StreamingDriverCall(ctx, &wire.DriverCallRequest{
		Uuid:   id.String(),
		Method: method,
		Args:   wire.NewValue(pv),
	})
	if err != nil {
		return err
	}
	for {
		resp, err := stream.Recv()
		if err != nil {
			if isStreamEOF(err) {
				return nil
			}
			return err
		}
		result, err := codec.FromStructpb(resp.Value.Value)
		if err != nil {
			return err
		}
		var out any
		if err := codec.Decode(result, &out); err != nil {
			return err
		}
		if err := emit(out); err != nil {
			return err
		}
	}
}

// DriverStream is an opened exportstream's client-side byte pipe (spec
// §4.4), directly usable as a domain.Node-agnostic Send/Recv endpoint.
type DriverStream struct {
	stream wire.Exporter_StreamClient
}

func (d *DriverStream) Send(payload []byte) error {
	return d.stream.Send(&wire.StreamFrame{Payload: payload})
}

func (d *DriverStream) Recv() ([]byte, error) {
	frame, err := d.stream.Recv()
	if err != nil {
		if isStreamEOF(err) {
			return nil, nil
		}
		return nil, err
	}
	return frame.Payload, nil
}

func (d *DriverStream) CloseSend() error {
	return d.stream.CloseSend()
}

func (c *Client) openDriverStream(ctx context.Context, id uuid.UUID, method string) (*DriverStream, error) {
	stream, err := c.wire.Stream(ctx)
	if err != nil {
		return nil, err
	}
	if err := stream.Send(&wire.StreamFrame{Metadata: &wire.StreamRequest{
		Driver: &wire.DriverStreamRef{Uuid: id.String(), Method: method},
	}}); err != nil {
		return nil, err
	}
	return &DriverStream{stream: stream}, nil
}

// UploadResource opens a resource stream (spec §4.6.1), writes payload to
// it, and half-closes, then waits for the session to finish draining the
// resource into its registry before returning — so a driver method
// naming the same uuid immediately afterward is guaranteed to see the
// resource fully populated (spec §8 scenario (d)).
func (c *Client) UploadResource(ctx context.Context, id uuid.UUID, payload []byte) error {
	stream, err := c.wire.Stream(ctx)
	if err != nil {
		return err
	}
	if err := stream.Send(&wire.StreamFrame{Metadata: &wire.StreamRequest{
		Resource: &wire.ResourceStreamRef{Uuid: id.String()},
	}}); err != nil {
		return err
	}
	const chunk = 64 * 1024
	for len(payload) > 0 {
		n := min(len(payload), chunk)
		if err := stream.Send(&wire.StreamFrame{Payload: payload[:n]}); err != nil {
			return err
		}
		payload = payload[n:]
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	_, err = stream.Recv()
	if err != nil && !isStreamEOF(err) {
		return err
	}
	return nil
}

// ResourceHandle builds the domain-level handle argument a driver method
// expects for a resource uploaded via UploadResource (spec §4.6). It
// builds only the client_stream variant; PresignedRequest is left nil.
func ResourceHandle(id uuid.UUID) domain.ResourceHandle {
	return domain.ResourceHandle{ClientStream: &domain.ClientStreamResource{UUID: id.String()}}
}

func isStreamEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
