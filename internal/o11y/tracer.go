// Package o11y wires structured logging and OpenTelemetry tracing for
// agtrace: a local CLI tool with no collector to ship spans to, so the
// default exporter writes to stdout and is only installed when a caller
// invokes Init.
package o11y

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the package-level OTel tracer used by StartSpan after Init.
var tracerName = "github.com/nextlevelbuilder/agtrace"

var tracer = otel.Tracer(tracerName)

// InitOptions configures Init.
type InitOptions struct {
	ServiceName string
	Pretty      bool
	Writer      io.Writer // defaults to os.Stdout when nil
}

// Init installs a stdout-backed tracer provider as the global OTel
// tracer provider. The returned shutdown function flushes pending spans
// and must be called before the process exits.
func Init(opts InitOptions) (shutdown func(context.Context) error, err error) {
	exporterOpts := []stdouttrace.Option{}
	if opts.Writer != nil {
		exporterOpts = append(exporterOpts, stdouttrace.WithWriter(opts.Writer))
	}
	if opts.Pretty {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}

	exp, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, err
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "agtrace"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(tracerName)

	return tp.Shutdown, nil
}

// StartSpan starts a span under the current global tracer, a thin
// wrapper so callers never import go.opentelemetry.io/otel/trace
// themselves.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
