package session

import (
	"context"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/codec"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// tracer produces the per-RPC spans this file's handlers start on top of
// otelgrpc's own transport-level span (installed via
// grpc.StatsHandler(otelgrpc.NewServerHandler()) in cmd), giving an
// operator dispatch/codec timing broken out from wire marshalling.
var tracer = otel.Tracer("github.com/jumpstarter-dev/jumpstarter-go/internal/session")

// endSpan records err on span (if non-nil) before ending it, the same
// success/failure split every RPC handler below already applies to
// logging and status mapping.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// GetReport serves spec §4.5 method 1: deterministic, cheap, no args.
func (s *Session) GetReport(ctx context.Context, _ *wire.GetReportRequest) (*wire.DriverReport, error) {
	report, err := s.tree.Enumerate()
	if err != nil {
		return nil, jerrors.ToStatus(err)
	}
	entries := make([]*wire.DriverReportEntry, len(report.Entries))
	for i, e := range report.Entries {
		var parent string
		if e.ParentUUID != uuid.Nil {
			parent = e.ParentUUID.String()
		}
		entries[i] = &wire.DriverReportEntry{
			UUID:        e.UUID.String(),
			ParentUUID:  parent,
			Labels:      e.Labels,
			ClientClass: e.ClientClass,
		}
	}
	return &wire.DriverReport{Entries: entries}, nil
}

// DriverCall serves spec §4.3's unary dispatch.
func (s *Session) DriverCall(ctx context.Context, req *wire.DriverCallRequest) (*wire.DriverCallResponse, error) {
	ctx, span := tracer.Start(ctx, "DriverCall", trace.WithAttributes(
		attribute.String("jumpstarter.driver.uuid", req.Uuid),
		attribute.String("jumpstarter.driver.method", req.Method),
	))
	var err error
	defer func() { endSpan(span, err) }()

	var id uuid.UUID
	id, err = uuid.Parse(req.Uuid)
	if err != nil {
		err = jerrors.Wrap(jerrors.InvalidArgument, "invalid uuid", err)
		return nil, jerrors.ToStatus(err)
	}
	var args domain.Value
	args, err = codec.FromStructpb(req.Args.Value)
	if err != nil {
		return nil, jerrors.ToStatus(err)
	}

	callCtx := s.dispatch.Ctx(ctx.Done(), ctx.Err)
	var result domain.Value
	result, err = s.dispatch.Call(callCtx, id, req.Method, args)
	if err != nil {
		return nil, jerrors.ToStatus(err)
	}

	var pv *structpb.Value
	pv, err = codec.ToStructpb(result)
	if err != nil {
		return nil, jerrors.ToStatus(err)
	}
	return &wire.DriverCallResponse{Value: wire.NewValue(pv)}, nil
}

// StreamingDriverCall serves spec §4.3's server-streaming dispatch.
func (s *Session) StreamingDriverCall(req *wire.DriverCallRequest, srv wire.Exporter_StreamingDriverCallServer) error {
	ctx, span := tracer.Start(srv.Context(), "StreamingDriverCall", trace.WithAttributes(
		attribute.String("jumpstarter.driver.uuid", req.Uuid),
		attribute.String("jumpstarter.driver.method", req.Method),
	))
	var err error
	defer func() { endSpan(span, err) }()

	var id uuid.UUID
	id, err = uuid.Parse(req.Uuid)
	if err != nil {
		err = jerrors.Wrap(jerrors.InvalidArgument, "invalid uuid", err)
		return jerrors.ToStatus(err)
	}
	var args domain.Value
	args, err = codec.FromStructpb(req.Args.Value)
	if err != nil {
		return jerrors.ToStatus(err)
	}

	callCtx := s.dispatch.Ctx(ctx.Done(), srv.Context().Err)
	err = s.dispatch.StreamingCall(callCtx, id, req.Method, args, func(v domain.Value) error {
		pv, err := codec.ToStructpb(v)
		if err != nil {
			return err
		}
		return srv.Send(&wire.StreamingDriverCallResponse{Value: wire.NewValue(pv)})
	})
	if err != nil {
		return jerrors.ToStatus(err)
	}
	return nil
}

// Stream serves spec §4.4: the leading frame's Metadata tags the open as
// a driver exportstream or a resource attach; the session hands off to
// the multiplexer for the rest of the RPC's lifetime.
func (s *Session) Stream(srv wire.Exporter_StreamServer) error {
	ctx, span := tracer.Start(srv.Context(), "Stream")
	var err error
	defer func() { endSpan(span, err) }()

	var first *wire.StreamFrame
	first, err = srv.Recv()
	if err != nil {
		return err
	}
	if first.Metadata == nil {
		err = jerrors.New(jerrors.InvalidArgument, "first Stream frame must carry metadata")
		return jerrors.ToStatus(err)
	}

	endpoint := grpcStreamEndpoint{srv}

	switch {
	case first.Metadata.Driver != nil:
		span.SetAttributes(attribute.String("jumpstarter.stream.kind", "driver"))
		var id uuid.UUID
		id, err = uuid.Parse(first.Metadata.Driver.Uuid)
		if err != nil {
			err = jerrors.Wrap(jerrors.InvalidArgument, "invalid uuid", err)
			return jerrors.ToStatus(err)
		}
		if s.acquire == nil {
			err = jerrors.New(jerrors.Internal, "session has no exportstream acquisition configured")
			return jerrors.ToStatus(err)
		}
		err = s.mux.ServeDriver(ctx, id, first.Metadata.Driver.Method, endpoint, s.acquire)
		return jerrors.ToStatus(err)
	case first.Metadata.Resource != nil:
		span.SetAttributes(attribute.String("jumpstarter.stream.kind", "resource"))
		var id uuid.UUID
		id, err = uuid.Parse(first.Metadata.Resource.Uuid)
		if err != nil {
			err = jerrors.Wrap(jerrors.InvalidArgument, "invalid uuid", err)
			return jerrors.ToStatus(err)
		}
		err = s.mux.ServeResource(ctx, id, endpoint)
		return jerrors.ToStatus(err)
	default:
		err = jerrors.New(jerrors.InvalidArgument, "unknown discriminator in Stream metadata")
		return jerrors.ToStatus(err)
	}
}

// LogStream serves spec §4.5 item 5: fan-out of exporter-side log
// records, back-pressured per subscriber with gap markers on overflow.
func (s *Session) LogStream(_ *wire.LogStreamRequest, srv wire.Exporter_LogStreamServer) error {
	sub := s.logs.Subscribe()
	defer s.logs.Unsubscribe(sub)

	for {
		select {
		case <-srv.Context().Done():
			return srv.Context().Err()
		case rec, ok := <-sub.Recv():
			if !ok {
				return nil
			}
			if err := srv.Send(rec); err != nil {
				return err
			}
		}
	}
}

// grpcStreamEndpoint adapts a wire.Exporter_StreamServer into
// stream.Endpoint, the transport-agnostic interface the multiplexer
// drives.
type grpcStreamEndpoint struct {
	srv wire.Exporter_StreamServer
}

func (e grpcStreamEndpoint) Send(payload []byte) error {
	return e.srv.Send(&wire.StreamFrame{Payload: payload})
}

func (e grpcStreamEndpoint) Recv() ([]byte, error) {
	frame, err := e.srv.Recv()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return frame.Payload, nil
}
