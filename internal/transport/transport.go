// Package transport holds the gRPC dialing conventions shared by every
// client-side collaborator in this fabric (router tunnel, client proxy,
// lease client): scheme-dispatched unix/tcp addressing mirroring
// internal/session's listener, plus a bearer-token per-RPC credential for
// the short-lived tokens the controller and router hand out.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Options configures Dial.
type Options struct {
	Token       string
	TLSConfig   credentials.TransportCredentials
	DialOptions []grpc.DialOption
}

// Option mutates Options.
type Option func(*Options)

// WithToken attaches a bearer token as per-RPC credentials (spec §4.8,
// §4.9: the short-lived tokens the controller/router hand out for a
// lease or a single stream).
func WithToken(token string) Option {
	return func(o *Options) { o.Token = token }
}

// WithTLS overrides the default transport credentials (insecure.NewCredentials)
// with a concrete TLS configuration, for talking to a controller/router
// over an untrusted network.
func WithTLS(creds credentials.TransportCredentials) Option {
	return func(o *Options) { o.TLSConfig = creds }
}

// WithDialOption passes an extra grpc.DialOption straight through, for
// callers that need something this package does not wrap (keepalive
// parameters, a custom resolver, and so on).
func WithDialOption(opt grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = append(o.DialOptions, opt) }
}

// Dial opens a gRPC client connection to endpoint, an endpoint URL whose
// scheme selects the transport the same way internal/session.listen
// selects a listener: "unix://" for a local socket (the exporter talking
// to its own embedded session, or a test harness), "tcp://"/"https://"
// for a remote controller, router, or exporter.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*grpc.ClientConn, error) {
	o := &Options{TLSConfig: insecure.NewCredentials()}
	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %s: %w", endpoint, err)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(o.TLSConfig),
	}, o.DialOptions...)

	if o.Token != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(bearerToken{
			token:                    o.Token,
			requireTransportSecurity: o.TLSConfig.Info().SecurityProtocol != "insecure",
		}))
	}

	var target string
	switch u.Scheme {
	case "unix":
		target = "unix://" + u.Path
	case "tcp", "https", "":
		target = u.Host
		if target == "" {
			target = endpoint
		}
	default:
		target = endpoint
	}

	return grpc.NewClient(target, dialOpts...)
}

// DialFromEnv dials the endpoint named by the JUMPSTARTER_HOST
// environment variable, falling back to the session's well-known
// embedded socket path when unset — the shape `jumpstarter shell`'s
// embedded-client mode relies on (SUPPLEMENTED FEATURES).
func DialFromEnv(ctx context.Context, opts ...Option) (*grpc.ClientConn, error) {
	endpoint := os.Getenv("JUMPSTARTER_HOST")
	if endpoint == "" {
		endpoint = "unix:///run/jumpstarter/session.sock"
	}
	return Dial(ctx, endpoint, opts...)
}

type bearerToken struct {
	token                    string
	requireTransportSecurity bool
}

func (b bearerToken) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearerToken) RequireTransportSecurity() bool { return b.requireTransportSecurity }
