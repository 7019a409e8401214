package wire

import (
	"context"

	"google.golang.org/grpc"
)

// RouterServiceName is the consumed router service's fully qualified name
// (spec §4.8, §6): a full-duplex byte tunnel the controller provisions one
// per client stream, with no semantics of its own beyond ordered,
// backpressured bytes.
const RouterServiceName = "jumpstarter.v1.Router"

// RouterFrame is the one message type the router tunnel carries in either
// direction: a raw payload chunk. Unlike StreamFrame it carries no
// metadata discriminator — by the time a stream reaches the router, the
// driver/resource tagging has already happened on the session side.
type RouterFrame struct {
	Payload []byte `json:"payload" protobuf:"bytes,1,opt,name=payload,proto3"`
}

// RouterClient is the consumed RouterService contract (spec §4.8): Stream
// opens one full-duplex tunnel. The router is an external collaborator,
// same stance as ControllerClient; RouterServer below exists only for the
// in-process stand-in router that tests run.
type RouterClient interface {
	Stream(ctx context.Context, opts ...grpc.CallOption) (Router_StreamClient, error)
}

type Router_StreamClient interface {
	Send(*RouterFrame) error
	Recv() (*RouterFrame, error)
	grpc.ClientStream
}

type routerClient struct {
	cc grpc.ClientConnInterface
}

// NewRouterClient builds a RouterClient over an already-dialed connection
// to a specific router endpoint (the caller supplies per-stream auth via
// grpc.CallOption or the connection's own call credentials).
func NewRouterClient(cc grpc.ClientConnInterface) RouterClient {
	return &routerClient{cc: cc}
}

var routerStreamDesc = grpc.StreamDesc{
	StreamName:    "Stream",
	ServerStreams: true,
	ClientStreams: true,
}

func (c *routerClient) Stream(ctx context.Context, opts ...grpc.CallOption) (Router_StreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &routerStreamDesc, "/"+RouterServiceName+"/Stream", opts...)
	if err != nil {
		return nil, err
	}
	return &routerStreamClient{stream}, nil
}

type routerStreamClient struct {
	grpc.ClientStream
}

func (x *routerStreamClient) Send(m *RouterFrame) error { return x.ClientStream.SendMsg(m) }
func (x *routerStreamClient) Recv() (*RouterFrame, error) {
	m := new(RouterFrame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RouterServer is the provider side of RouterServiceName. The real router
// is an external collaborator this module never runs in production, but a
// test double implementing this interface lets internal/driver exercise
// Listener.ServeOne and DialClient against a real gRPC server rather than
// against bridge's copy loop in isolation.
type RouterServer interface {
	Stream(Router_StreamServer) error
}

type Router_StreamServer interface {
	Send(*RouterFrame) error
	Recv() (*RouterFrame, error)
	grpc.ServerStream
}

type routerStreamServer struct {
	grpc.ServerStream
}

func (x *routerStreamServer) Send(m *RouterFrame) error { return x.ServerStream.SendMsg(m) }
func (x *routerStreamServer) Recv() (*RouterFrame, error) {
	m := new(RouterFrame)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterRouterServer registers srv as the RouterServiceName provider on
// s, the same shape as RegisterExporterServer.
func RegisterRouterServer(s grpc.ServiceRegistrar, srv RouterServer) {
	s.RegisterService(&routerServiceDesc, srv)
}

func _Router_Stream_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(RouterServer).Stream(&routerStreamServer{stream})
}

var routerServiceDesc = grpc.ServiceDesc{
	ServiceName: RouterServiceName,
	HandlerType: (*RouterServer)(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "Stream", Handler: _Router_Stream_Handler, ServerStreams: true, ClientStreams: true},
	},
	Metadata: "jumpstarter/v1/router.proto",
}
