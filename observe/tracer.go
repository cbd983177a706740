package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation names a unit of work for telemetry purposes.
type Operation struct {
	Component string // e.g. "geosearch", "cache", "aggregate"
	Name      string // e.g. "list", "detail", "resolve"
	Attrs     []attribute.KeyValue
}

// SpanName returns the deterministic span name: landmarks.<component>.<name>.
func (o Operation) SpanName() string {
	return "landmarks." + o.Component + "." + o.Name
}

// Validate reports whether the operation is fully named.
func (o Operation) Validate() error {
	if o.Component == "" || o.Name == "" {
		return ErrMissingOperation
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with operation-level span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer around an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(op.Attrs)+3)
	attrs = append(attrs,
		attribute.String("landmarks.component", op.Component),
		attribute.String("landmarks.op", op.Name),
		attribute.Bool("landmarks.error", false),
	)
	attrs = append(attrs, op.Attrs...)

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(spanKind(op)),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("landmarks.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Outbound calls get client spans so backends can draw the dependency edge.
func spanKind(op Operation) trace.SpanKind {
	if op.Component == "geosearch" {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

// NoopTracer returns a tracer whose spans are never recorded.
func NoopTracer() Tracer {
	return NewTracer(tracenoop.NewTracerProvider().Tracer("noop"))
}
