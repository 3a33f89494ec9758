// Package telemetry configures OpenTelemetry tracing. Spans are written as
// JSON lines to a local file; nothing is sent over the network.
package telemetry

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options configures Init.
type Options struct {
	// Service names the tracer and the service.name resource attribute.
	Service string

	// Version is recorded as service.version.
	Version string

	// Enabled installs an exporting provider; otherwise tracing is a no-op.
	Enabled bool

	// File receives spans as JSON lines when Enabled.
	File string
}

// Provider owns the installed tracer provider.
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Init installs the global tracer provider. Call Shutdown before exit so
// buffered spans are flushed.
func Init(opts Options) (*Provider, error) {
	if !opts.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{
			tracer:   tp.Tracer(opts.Service),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create telemetry directory")
		}
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open telemetry file")
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "create file exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", opts.Service),
			attribute.String("service.version", opts.Version),
			attribute.String("host.name", hostname()),
		)),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		tracer: tp.Tracer(opts.Service),
		shutdown: func(ctx context.Context) error {
			err := tp.Shutdown(ctx)
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			return err
		},
	}, nil
}

// Start opens a span with optional attributes.
func (p *Provider) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans and closes the output file.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
