package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ExporterServiceName = "jumpstarter.v1.Exporter"

// ExporterClient is the client-side stub, shaped the way
// protoc-gen-go-grpc would emit it from the §6 service definition.
type ExporterClient interface {
	GetReport(ctx context.Context, in *GetReportRequest, opts ...grpc.CallOption) (*DriverReport, error)
	DriverCall(ctx context.Context, in *DriverCallRequest, opts ...grpc.CallOption) (*DriverCallResponse, error)
	StreamingDriverCall(ctx context.Context, in *DriverCallRequest, opts ...grpc.CallOption) (Exporter_StreamingDriverCallClient, error)
	Stream(ctx context.Context, opts ...grpc.CallOption) (Exporter_StreamClient, error)
	LogStream(ctx context.Context, in *LogStreamRequest, opts ...grpc.CallOption) (Exporter_LogStreamClient, error)
}

type exporterClient struct {
	cc grpc.ClientConnInterface
}

func NewExporterClient(cc grpc.ClientConnInterface) ExporterClient {
	return &exporterClient{cc: cc}
}

func (c *exporterClient) GetReport(ctx context.Context, in *GetReportRequest, opts ...grpc.CallOption) (*DriverReport, error) {
	out := new(DriverReport)
	if err := c.cc.Invoke(ctx, "/"+ExporterServiceName+"/GetReport", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *exporterClient) DriverCall(ctx context.Context, in *DriverCallRequest, opts ...grpc.CallOption) (*DriverCallResponse, error) {
	out := new(DriverCallResponse)
	if err := c.cc.Invoke(ctx, "/"+ExporterServiceName+"/DriverCall", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type Exporter_StreamingDriverCallClient interface {
	Recv() (*StreamingDriverCallResponse, error)
	grpc.ClientStream
}

type exporterStreamingDriverCallClient struct {
	grpc.ClientStream
}

func (x *exporterStreamingDriverCallClient) Recv() (*StreamingDriverCallResponse, error) {
	m := new(StreamingDriverCallResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *exporterClient) StreamingDriverCall(ctx context.Context, in *DriverCallRequest, opts ...grpc.CallOption) (Exporter_StreamingDriverCallClient, error) {
	stream, err := c.cc.NewStream(ctx, &exporterServiceDesc.Streams[0], "/"+ExporterServiceName+"/StreamingDriverCall", opts...)
	if err != nil {
		return nil, err
	}
	x := &exporterStreamingDriverCallClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type Exporter_StreamClient interface {
	Send(*StreamFrame) error
	Recv() (*StreamFrame, error)
	grpc.ClientStream
}

type exporterStreamClient struct {
	grpc.ClientStream
}

func (x *exporterStreamClient) Send(m *StreamFrame) error  { return x.ClientStream.SendMsg(m) }
func (x *exporterStreamClient) Recv() (*StreamFrame, error) {
	m := new(StreamFrame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *exporterClient) Stream(ctx context.Context, opts ...grpc.CallOption) (Exporter_StreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &exporterServiceDesc.Streams[1], "/"+ExporterServiceName+"/Stream", opts...)
	if err != nil {
		return nil, err
	}
	return &exporterStreamClient{stream}, nil
}

type Exporter_LogStreamClient interface {
	Recv() (*LogRecord, error)
	grpc.ClientStream
}

type exporterLogStreamClient struct {
	grpc.ClientStream
}

func (x *exporterLogStreamClient) Recv() (*LogRecord, error) {
	m := new(LogRecord)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *exporterClient) LogStream(ctx context.Context, in *LogStreamRequest, opts ...grpc.CallOption) (Exporter_LogStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &exporterServiceDesc.Streams[2], "/"+ExporterServiceName+"/LogStream", opts...)
	if err != nil {
		return nil, err
	}
	x := &exporterLogStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// ExporterServer is the server-side contract. UnimplementedExporterServer
// should be embedded for forward compatibility, matching the teacher's
// impb.UnimplementedDeliveryServer convention.
type ExporterServer interface {
	GetReport(context.Context, *GetReportRequest) (*DriverReport, error)
	DriverCall(context.Context, *DriverCallRequest) (*DriverCallResponse, error)
	StreamingDriverCall(*DriverCallRequest, Exporter_StreamingDriverCallServer) error
	Stream(Exporter_StreamServer) error
	LogStream(*LogStreamRequest, Exporter_LogStreamServer) error
	mustEmbedUnimplementedExporterServer()
}

type UnimplementedExporterServer struct{}

func (UnimplementedExporterServer) GetReport(context.Context, *GetReportRequest) (*DriverReport, error) {
	return nil, errUnimplemented("GetReport")
}
func (UnimplementedExporterServer) DriverCall(context.Context, *DriverCallRequest) (*DriverCallResponse, error) {
	return nil, errUnimplemented("DriverCall")
}
func (UnimplementedExporterServer) StreamingDriverCall(*DriverCallRequest, Exporter_StreamingDriverCallServer) error {
	return errUnimplemented("StreamingDriverCall")
}
func (UnimplementedExporterServer) Stream(Exporter_StreamServer) error {
	return errUnimplemented("Stream")
}
func (UnimplementedExporterServer) LogStream(*LogStreamRequest, Exporter_LogStreamServer) error {
	return errUnimplemented("LogStream")
}
func (UnimplementedExporterServer) mustEmbedUnimplementedExporterServer() {}

type Exporter_StreamingDriverCallServer interface {
	Send(*StreamingDriverCallResponse) error
	grpc.ServerStream
}

type exporterStreamingDriverCallServer struct {
	grpc.ServerStream
}

func (x *exporterStreamingDriverCallServer) Send(m *StreamingDriverCallResponse) error {
	return x.ServerStream.SendMsg(m)
}

type Exporter_StreamServer interface {
	Send(*StreamFrame) error
	Recv() (*StreamFrame, error)
	grpc.ServerStream
}

type exporterStreamServer struct {
	grpc.ServerStream
}

func (x *exporterStreamServer) Send(m *StreamFrame) error { return x.ServerStream.SendMsg(m) }
func (x *exporterStreamServer) Recv() (*StreamFrame, error) {
	m := new(StreamFrame)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type Exporter_LogStreamServer interface {
	Send(*LogRecord) error
	grpc.ServerStream
}

type exporterLogStreamServer struct {
	grpc.ServerStream
}

func (x *exporterLogStreamServer) Send(m *LogRecord) error { return x.ServerStream.SendMsg(m) }

func RegisterExporterServer(s grpc.ServiceRegistrar, srv ExporterServer) {
	s.RegisterService(&exporterServiceDesc, srv)
}

func _Exporter_GetReport_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetReportRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExporterServer).GetReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ExporterServiceName + "/GetReport"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExporterServer).GetReport(ctx, req.(*GetReportRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Exporter_DriverCall_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DriverCallRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExporterServer).DriverCall(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ExporterServiceName + "/DriverCall"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExporterServer).DriverCall(ctx, req.(*DriverCallRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Exporter_StreamingDriverCall_Handler(srv any, stream grpc.ServerStream) error {
	m := new(DriverCallRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ExporterServer).StreamingDriverCall(m, &exporterStreamingDriverCallServer{stream})
}

func _Exporter_Stream_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(ExporterServer).Stream(&exporterStreamServer{stream})
}

func _Exporter_LogStream_Handler(srv any, stream grpc.ServerStream) error {
	m := new(LogStreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ExporterServer).LogStream(m, &exporterLogStreamServer{stream})
}

var exporterServiceDesc = grpc.ServiceDesc{
	ServiceName: ExporterServiceName,
	HandlerType: (*ExporterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetReport", Handler: _Exporter_GetReport_Handler},
		{MethodName: "DriverCall", Handler: _Exporter_DriverCall_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamingDriverCall", Handler: _Exporter_StreamingDriverCall_Handler, ServerStreams: true},
		{StreamName: "Stream", Handler: _Exporter_Stream_Handler, ServerStreams: true, ClientStreams: true},
		{StreamName: "LogStream", Handler: _Exporter_LogStream_Handler, ServerStreams: true},
	},
	Metadata: "jumpstarter/v1/exporter.proto",
}

func errUnimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}
