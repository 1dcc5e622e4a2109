package observability

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"artforge/services/watermark-api/internal/config"
)

const tracerName = "artforge/watermark-api"

// Setup configures the OTLP trace exporter when tracing is enabled and
// returns a shutdown function. When tracing is disabled the returned shutdown
// is a no-op.
func Setup(ctx context.Context, cfg *config.Config, log zerolog.Logger) (func(context.Context) error, error) {
	if !cfg.EnableTracing {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{}
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("tracing enabled")
	return provider.Shutdown, nil
}

// GetTracer returns the tracer for the watermark service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// PipelineAttributes returns common attributes for watermark pipeline spans.
func PipelineAttributes(id, kind, sourceURL string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("media.id", id),
		attribute.String("media.kind", kind),
		attribute.String("media.source_url", sourceURL),
	}
}

// StartPipelineSpan starts a span covering one generation's watermark pipeline.
func StartPipelineSpan(ctx context.Context, id, kind, sourceURL string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "watermark.pipeline",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(PipelineAttributes(id, kind, sourceURL)...),
	)
}

// StartStageSpan starts a span for one pipeline stage (fetch, composite, persist).
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "watermark."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
