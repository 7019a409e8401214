package wire

import (
	"context"

	"google.golang.org/grpc"
)

// ControllerClient models the controller RPCs consumed (not implemented) by
// this fabric, per spec §1/§6: "the lease manager / controller reconciler
// ... is described as the external collaborator the fabric depends on, not
// reimplemented here." Only the client stub exists; there is no
// ControllerServer in this module.
type ControllerClient interface {
	RequestLease(ctx context.Context, in *RequestLeaseRequest, opts ...grpc.CallOption) (*Lease, error)
	ReleaseLease(ctx context.Context, in *ReleaseLeaseRequest, opts ...grpc.CallOption) (*ReleaseLeaseResponse, error)
	ListExporters(ctx context.Context, in *ListExportersRequest, opts ...grpc.CallOption) (*ListExportersResponse, error)
	ListLeases(ctx context.Context, in *ListLeasesRequest, opts ...grpc.CallOption) (*ListLeasesResponse, error)
	WatchLease(ctx context.Context, in *WatchLeaseRequest, opts ...grpc.CallOption) (Controller_WatchLeaseClient, error)
	ObtainRouterEndpoint(ctx context.Context, in *ObtainRouterEndpointRequest, opts ...grpc.CallOption) (*RouterEndpoint, error)
}

const ControllerServiceName = "jumpstarter.v1.Controller"

type controllerClient struct {
	cc grpc.ClientConnInterface
}

func NewControllerClient(cc grpc.ClientConnInterface) ControllerClient {
	return &controllerClient{cc: cc}
}

func (c *controllerClient) RequestLease(ctx context.Context, in *RequestLeaseRequest, opts ...grpc.CallOption) (*Lease, error) {
	out := new(Lease)
	if err := c.cc.Invoke(ctx, "/"+ControllerServiceName+"/RequestLease", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controllerClient) ReleaseLease(ctx context.Context, in *ReleaseLeaseRequest, opts ...grpc.CallOption) (*ReleaseLeaseResponse, error) {
	out := new(ReleaseLeaseResponse)
	if err := c.cc.Invoke(ctx, "/"+ControllerServiceName+"/ReleaseLease", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controllerClient) ListExporters(ctx context.Context, in *ListExportersRequest, opts ...grpc.CallOption) (*ListExportersResponse, error) {
	out := new(ListExportersResponse)
	if err := c.cc.Invoke(ctx, "/"+ControllerServiceName+"/ListExporters", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controllerClient) ListLeases(ctx context.Context, in *ListLeasesRequest, opts ...grpc.CallOption) (*ListLeasesResponse, error) {
	out := new(ListLeasesResponse)
	if err := c.cc.Invoke(ctx, "/"+ControllerServiceName+"/ListLeases", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type Controller_WatchLeaseClient interface {
	Recv() (*Lease, error)
	grpc.ClientStream
}

type controllerWatchLeaseClient struct {
	grpc.ClientStream
}

func (x *controllerWatchLeaseClient) Recv() (*Lease, error) {
	m := new(Lease)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *controllerClient) WatchLease(ctx context.Context, in *WatchLeaseRequest, opts ...grpc.CallOption) (Controller_WatchLeaseClient, error) {
	stream, err := c.cc.NewStream(ctx, &controllerWatchLeaseStreamDesc, "/"+ControllerServiceName+"/WatchLease", opts...)
	if err != nil {
		return nil, err
	}
	x := &controllerWatchLeaseClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

var controllerWatchLeaseStreamDesc = grpc.StreamDesc{StreamName: "WatchLease", ServerStreams: true}

func (c *controllerClient) ObtainRouterEndpoint(ctx context.Context, in *ObtainRouterEndpointRequest, opts ...grpc.CallOption) (*RouterEndpoint, error) {
	out := new(RouterEndpoint)
	if err := c.cc.Invoke(ctx, "/"+ControllerServiceName+"/ObtainRouterEndpoint", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// --- messages ---

type RequestLeaseRequest struct {
	ClientRef string            `json:"client_ref"`
	Selector  map[string]string `json:"selector"`
	Duration  int64             `json:"duration_seconds"`
}

type ReleaseLeaseRequest struct {
	Name string `json:"name"`
}

type ReleaseLeaseResponse struct{}

type ListExportersRequest struct {
	Selector map[string]string `json:"selector"`
}

type ExporterInfo struct {
	Ref    string            `json:"ref"`
	Labels map[string]string `json:"labels"`
}

type ListExportersResponse struct {
	Exporters []*ExporterInfo `json:"exporters"`
}

type ListLeasesRequest struct {
	ClientRef string `json:"client_ref"`
}

type ListLeasesResponse struct {
	Leases []*Lease `json:"leases"`
}

type WatchLeaseRequest struct {
	Name string `json:"name"`
}

type ObtainRouterEndpointRequest struct {
	LeaseName string `json:"lease_name"`
	AsClient  bool   `json:"as_client"`
}

type RouterEndpoint struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
}

// LeaseCondition mirrors the Kubernetes-style condition list carried by a
// Lease (spec §3): a typed status flag such as Ready=True.
type LeaseCondition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Lease is the controller-side record described in spec §3.
type Lease struct {
	Name        string            `json:"name"`
	ClientRef   string            `json:"client_ref"`
	Selector    map[string]string `json:"selector"`
	DurationSec int64             `json:"duration_seconds"`
	Begin       *int64            `json:"begin,omitempty"`
	End         *int64            `json:"end,omitempty"`
	ExporterRef string            `json:"exporter_ref,omitempty"`
	Ended       bool              `json:"ended"`
	Conditions  []*LeaseCondition `json:"conditions"`
}
