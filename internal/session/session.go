// Package session implements the Session of spec §4.5: the exporter-side
// gRPC server over a driver tree, resource registry, and log fan-out.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"

	grpcauth "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/codec"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/dispatch"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/logfanout"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/stream"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// Session owns a single root driver node, a resource registry, a
// monotonic call-id, and a shutdown flag (spec §3). It is created when
// the exporter process accepts a lease, or directly for embedded use, and
// destroyed when the underlying listener closes.
type Session struct {
	wire.UnimplementedExporterServer

	logger    *slog.Logger
	tree      *tree.Tree
	resources *resource.Registry
	dispatch  *dispatch.Dispatcher
	mux       *stream.Multiplexer
	logs      *logfanout.Fanout
	acquire   func(ctx context.Context, id uuid.UUID, method string) (stream.DriverEndpoint, error)

	grpcServer *grpc.Server
	listener   net.Listener
	token      string

	shutdown atomic.Bool
}

// Option configures a Session at construction.
type Option func(*Session)

// WithLogger overrides the session's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithExportStreamAcquire installs the callback used to acquire a
// driver's exportstream endpoint for Stream's driver variant (spec §4.4).
func WithExportStreamAcquire(fn func(ctx context.Context, id uuid.UUID, method string) (stream.DriverEndpoint, error)) Option {
	return func(s *Session) { s.acquire = fn }
}

// WithToken requires every RPC to present token as a bearer credential
// (spec §6's ExporterConfig.Token, checked the way the controller/router
// hand out short-lived per-lease tokens at §4.8/§4.9). An empty token
// (the zero value, or simply never calling this option) leaves the
// session unauthenticated, for embedded use against a local socket.
func WithToken(token string) Option {
	return func(s *Session) { s.token = token }
}

// WithResources installs a pre-built resource registry rather than
// letting New create its own. Needed whenever a driver in the tree reads
// resources directly (e.g. a storage-mux driver's "write" method, spec
// §8 scenario (d)): the registry must exist before the tree does, so it
// can be threaded into both the driver constructor and the session.
func WithResources(r *resource.Registry) Option {
	return func(s *Session) { s.resources = r }
}

// New builds a session over root, with a schema registry of
// schemaCacheSize (pass 0 to skip schema validation entirely). Unless
// WithResources supplies one, it creates a resource registry whose
// per-stream queues start with room for resourceQueueDepth chunks; the
// queues are not bounded by it (see resource.New).
func New(root domain.Node, resourceQueueDepth, schemaCacheSize int, opts ...Option) (*Session, error) {
	t := tree.New(root)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var schemas *codec.Registry
	if schemaCacheSize > 0 {
		schemas = codec.NewRegistry(schemaCacheSize)
	}

	s := &Session{
		logger: slog.Default(),
		tree:   t,
		logs:   logfanout.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resources == nil {
		s.resources = resource.New(resourceQueueDepth)
	}
	s.dispatch = dispatch.New(t, schemas)
	s.mux = stream.New(t, s.resources)
	return s, nil
}

// Serve registers the gRPC service implementation and blocks accepting
// connections on the given endpoint URL's scheme ("unix://" for a
// same-host Unix-domain socket, preferred per spec §4.5, or "tcp://" for
// authenticated remote clients).
func (s *Session) Serve(endpoint string, serverOpts ...grpc.ServerOption) error {
	listener, err := listen(endpoint)
	if err != nil {
		return err
	}
	s.listener = listener

	unary := []grpc.UnaryServerInterceptor{slogUnaryInterceptor(s.logger)}
	streamInts := []grpc.StreamServerInterceptor{slogStreamInterceptor(s.logger)}
	if s.token != "" {
		authFunc := bearerAuthFunc(s.token)
		unary = append(unary, grpcauth.UnaryServerInterceptor(authFunc))
		streamInts = append(streamInts, grpcauth.StreamServerInterceptor(authFunc))
	}
	unary = append(unary, grpcrecovery.UnaryServerInterceptor())
	streamInts = append(streamInts, grpcrecovery.StreamServerInterceptor())

	opts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(streamInts...),
	}, serverOpts...)

	s.grpcServer = grpc.NewServer(opts...)
	wire.RegisterExporterServer(s.grpcServer, s)

	s.logger.Info("session listening", "endpoint", endpoint)
	return s.grpcServer.Serve(listener)
}

// Stop closes the listener, cancels all in-flight calls and streams (via
// grpc.Server.Stop, which aborts outstanding RPCs rather than draining
// them), then tears down every driver node in reverse enumeration order
// (spec §4.5).
func (s *Session) Stop() error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	s.logs.Shutdown()
	return s.tree.Close()
}

func listen(endpoint string) (net.Listener, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %s: %w", endpoint, err)
	}

	switch u.Scheme {
	case "unix":
		addr := u.Path
		if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket %s: %w", addr, err)
		}
		if err := os.MkdirAll(filepath.Dir(addr), 0o755); err != nil {
			return nil, fmt.Errorf("create socket dir: %w", err)
		}
		return net.Listen("unix", addr)
	case "tcp":
		return net.Listen("tcp", u.Host)
	default:
		return nil, jerrors.Newf(jerrors.InvalidArgument, "unsupported endpoint scheme %q (want unix or tcp)", u.Scheme)
	}
}

// bearerAuthFunc builds a grpcauth.AuthFunc that rejects any RPC whose
// "authorization" metadata does not carry the exact bearer token wanted,
// the session-server-side half of the bearer credential
// internal/transport.WithToken attaches to every client dial (spec §4.5,
// §4.8, §4.9). Adapted from the teacher's own stream-auth interceptor
// (infra/server/grpc/interceptors/stream_auth.go), which validated a
// contact identity the same way before wrapping the stream's context.
func bearerAuthFunc(wanted string) grpcauth.AuthFunc {
	return func(ctx context.Context) (context.Context, error) {
		token, err := grpcauth.AuthFromMD(ctx, "bearer")
		if err != nil {
			return nil, jerrors.ToStatus(jerrors.Wrap(jerrors.PermissionDenied, "bearer token required", err))
		}
		if token != wanted {
			return nil, jerrors.ToStatus(jerrors.New(jerrors.PermissionDenied, "invalid bearer token"))
		}
		return ctx, nil
	}
}

// slogUnaryInterceptor logs each unary call's method and outcome, the
// same shape as the csi-node-cache teacher-pack's logGRPC interceptor,
// substituting klog for this module's slog.Logger.
func slogUnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Error("rpc failed", "method", info.FullMethod, "error", err)
		} else {
			logger.Debug("rpc ok", "method", info.FullMethod)
		}
		return resp, err
	}
}

func slogStreamInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		err := handler(srv, ss)
		if err != nil {
			logger.Error("stream rpc failed", "method", info.FullMethod, "error", err)
		} else {
			logger.Debug("stream rpc ok", "method", info.FullMethod)
		}
		return err
	}
}
