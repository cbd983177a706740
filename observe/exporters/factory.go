// Package exporters builds OpenTelemetry span exporters and metric readers
// from the short names used in landmarkd configuration.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names. The empty name behaves like None.
const (
	None       = "none"
	Stdout     = "stdout"
	OTLP       = "otlp"
	Prometheus = "prometheus"
)

var (
	// ErrUnknown is returned for a name the signal does not support.
	ErrUnknown = errors.New("exporters: unknown exporter")

	// ErrEndpointUnset is returned for OTLP when no collector endpoint
	// is present in the environment.
	ErrEndpointUnset = errors.New("exporters: OTLP endpoint not configured")
)

var (
	tracingNames = []string{"", None, Stdout, OTLP}
	metricsNames = []string{"", None, Stdout, OTLP, Prometheus}
)

// SupportsTracing reports whether name is a valid span exporter.
func SupportsTracing(name string) bool { return slices.Contains(tracingNames, name) }

// SupportsMetrics reports whether name is a valid metric reader.
func SupportsMetrics(name string) bool { return slices.Contains(metricsNames, name) }

// Options tune exporter construction.
type Options struct {
	// Stdout receives the stdout exporters' output. Defaults to os.Stdout.
	Stdout io.Writer
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// NewTracingExporter returns nil for None, which gives a provider that
// samples but exports nothing.
func NewTracingExporter(ctx context.Context, name string, opts Options) (sdktrace.SpanExporter, error) {
	switch name {
	case "", None:
		return nil, nil
	case Stdout:
		return stdouttrace.New(stdouttrace.WithWriter(opts.stdout()))
	case OTLP:
		if !endpointConfigured("TRACES") {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ErrEndpointUnset)
		}
		return otlptracegrpc.New(ctx)
	}
	return nil, fmt.Errorf("%w for tracing: %q", ErrUnknown, name)
}

// NewMetricsReader returns nil for None. The Prometheus reader registers
// with the default Prometheus registerer, so it may be built once per
// process.
func NewMetricsReader(ctx context.Context, name string, opts Options) (sdkmetric.Reader, error) {
	switch name {
	case "", None:
		return nil, nil
	case Prometheus:
		return prometheus.New()
	case Stdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.stdout()))
		if err != nil {
			return nil, fmt.Errorf("exporters: stdout metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case OTLP:
		if !endpointConfigured("METRICS") {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ErrEndpointUnset)
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("exporters: otlp metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	}
	return nil, fmt.Errorf("%w for metrics: %q", ErrUnknown, name)
}

func endpointConfigured(signal string) bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_"+signal+"_ENDPOINT") != ""
}
