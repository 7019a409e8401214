package cmd

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/fx"
	"google.golang.org/grpc"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/config"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/driverregistry"

	_ "github.com/jumpstarter-dev/jumpstarter-go/internal/driver"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/session"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/stream"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/telemetry"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

// otelEndpoint carries the "otel-endpoint" flag value into fx's provider
// graph, since it's a run-time CLI flag rather than part of
// config.ExporterConfig.
type otelEndpoint string

// tracerShutdown and loggerShutdown are distinct named types for the two
// OTel signal providers' shutdown funcs, so fx's graph doesn't see two
// providers of the same bare func(context.Context) error type.
type tracerShutdown func(context.Context) error
type loggerShutdown func(context.Context) error

const (
	resourceQueueDepth = 64
	schemaCacheSize    = 256
)

// NewApp wires cfg's driver tree and gRPC session into an *fx.App, one
// flat fx.Provide list (no fx.Module), with the same fx.Lifecycle shape
// the teacher's own handler modules use
// (e.g. internal/handler/amqp/module.go's router.Run goroutine on
// OnStart, router.Close on OnStop) substituted here for session.Serve/
// session.Stop.
func NewApp(cfg *config.ExporterConfig, otelCollectorEndpoint string) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.ExporterConfig { return cfg },
			func() otelEndpoint { return otelEndpoint(otelCollectorEndpoint) },
			ProvideLoggerProvider,
			ProvideLogger,
			ProvideResourceRegistry,
			ProvideDriverTree,
			ProvideSession,
			ProvideTracerShutdown,
		),
		fx.Invoke(registerSessionLifecycle),
	)
}

// ProvideLoggerProvider dials otelEndpoint (if set) with an OTLP/gRPC log
// exporter, the logs-signal counterpart of ProvideTracerShutdown.
func ProvideLoggerProvider(endpoint otelEndpoint) (*sdklog.LoggerProvider, loggerShutdown, error) {
	lp, shutdown, err := telemetry.NewLoggerProvider(context.Background(), telemetry.Config{
		ServiceName: ServiceName,
		Endpoint:    string(endpoint),
		Insecure:    true,
	})
	return lp, loggerShutdown(shutdown), err
}

// ProvideLogger builds the process-wide structured logger every other
// provider and session collaborator logs through. Every record fans out
// to both the process's stdout text log and, via otelslog, the OTel logs
// pipeline lp feeds (a no-op exporter when no collector is configured).
func ProvideLogger(lp *sdklog.LoggerProvider) *slog.Logger {
	return slog.New(multiHandler{
		slog.NewTextHandler(os.Stdout, nil),
		otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(lp)),
	})
}

// multiHandler fans a log record out to every handler in the slice, the
// way logfanout.Fanout fans LogRecords out to LogStream subscribers; the
// standard library has no built-in equivalent for slog.Handler itself.
type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}

// ProvideResourceRegistry builds the resource registry (spec §4.6) ahead
// of the driver tree, since a driver like a storage mux needs the same
// registry instance the session's Stream/ServeResource handler reads.
func ProvideResourceRegistry() *resource.Registry {
	return resource.New(resourceQueueDepth)
}

// ProvideDriverTree instantiates cfg.Export's DriverInstance document via
// internal/driverregistry, the compile-time stand-in for the original
// implementation's importlib-based dynamic class loading (spec §3).
func ProvideDriverTree(cfg *config.ExporterConfig, resources *resource.Registry) (domain.Node, error) {
	return driverregistry.Build("root", &cfg.Export, resources)
}

// ProvideSession builds the Session over root, wiring the same resource
// registry its driver tree was built against and an exportstream
// acquisition callback resolved from root's own tree.
func ProvideSession(cfg *config.ExporterConfig, logger *slog.Logger, root domain.Node, resources *resource.Registry) (*session.Session, error) {
	t := tree.New(root)
	return session.New(root, resourceQueueDepth, schemaCacheSize,
		session.WithLogger(logger),
		session.WithResources(resources),
		session.WithExportStreamAcquire(stream.AcquireFromTree(t)),
		session.WithToken(cfg.Token),
	)
}

// ProvideTracerShutdown dials otelEndpoint (if set) and installs the
// resulting TracerProvider as the process-global default, returning its
// shutdown func for registerSessionLifecycle's OnStop hook.
func ProvideTracerShutdown(endpoint otelEndpoint) (tracerShutdown, error) {
	shutdown, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		ServiceName: ServiceName,
		Endpoint:    string(endpoint),
		Insecure:    true,
	})
	return tracerShutdown(shutdown), err
}

func registerSessionLifecycle(lc fx.Lifecycle, cfg *config.ExporterConfig, sess *session.Session, logger *slog.Logger, tracerDone tracerShutdown, loggerDone loggerShutdown) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				opts := []grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}
				if err := sess.Serve(cfg.Endpoint, opts...); err != nil {
					logger.Error("session serve error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := sess.Stop(); err != nil {
				logger.Error("session stop error", "err", err)
			}
			if err := loggerDone(ctx); err != nil {
				logger.Error("logger provider shutdown error", "err", err)
			}
			return tracerDone(ctx)
		},
	})
}
