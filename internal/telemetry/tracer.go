// Package telemetry wires OpenTelemetry tracing for the exporter process.
// The fabric itself has no tracing concept of its own; this is purely
// ambient observability, carried the way a production Go service wires
// OTel regardless of what its domain spec covers.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config is the subset of an exporter process's startup flags telemetry
// cares about.
type Config struct {
	ServiceName string
	Endpoint    string // OTLP/gRPC collector endpoint, e.g. "otel-collector:4317"
	Insecure    bool
}

// NewTracerProvider dials endpoint with an OTLP/gRPC span exporter and
// installs the resulting TracerProvider as the process-global default,
// the same registration point otelgrpc.NewServerHandler reads from when
// it's passed into session.Serve as a grpc.ServerOption. If cfg.Endpoint
// is empty it installs nothing and returns a no-op (non-nil) shutdown,
// so a process run without a collector configured keeps otel's global
// default provider.
func NewTracerProvider(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	var dialOpts []otlptracegrpc.Option
	dialOpts = append(dialOpts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	if cfg.Insecure {
		dialOpts = append(dialOpts, otlptracegrpc.WithInsecure())
	}

	spanExporter, err := otlptracegrpc.New(ctx, dialOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// NewLoggerProvider dials endpoint with an OTLP/gRPC log exporter and
// returns an *sdklog.LoggerProvider for an otelslog.Handler to bridge the
// process's slog records into, mirroring NewTracerProvider's shape.
// Returns a no-op provider and shutdown if cfg.Endpoint is empty.
func NewLoggerProvider(ctx context.Context, cfg Config) (provider *sdklog.LoggerProvider, shutdown func(context.Context) error, err error) {
	if cfg.Endpoint == "" {
		return sdklog.NewLoggerProvider(), func(context.Context) error { return nil }, nil
	}

	var dialOpts []otlploggrpc.Option
	dialOpts = append(dialOpts, otlploggrpc.WithEndpoint(cfg.Endpoint))
	if cfg.Insecure {
		dialOpts = append(dialOpts, otlploggrpc.WithInsecure())
	}

	logExporter, err := otlploggrpc.New(ctx, dialOpts...)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, nil, err
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	return lp, lp.Shutdown, nil
}
