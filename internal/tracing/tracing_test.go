package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/fetchbench/internal/config"
	"github.com/torosent/fetchbench/internal/tracing"
)

func recordingTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp.Tracer("fetchbench-test")
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	assert.False(t, p.Exporting())
	assert.False(t, p.ShouldPropagate())

	_, span := p.Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitExportsOverEitherProtocol(t *testing.T) {
	for _, tc := range []struct {
		protocol string
		endpoint string
	}{
		{"grpc", "localhost:4317"},
		{"http", "localhost:4318"},
		{"", "localhost:4317"},
	} {
		t.Run("protocol="+tc.protocol, func(t *testing.T) {
			p, err := tracing.Init(context.Background(), config.TracingConfig{
				Endpoint:    tc.endpoint,
				Protocol:    tc.protocol,
				Insecure:    true,
				SampleRate:  1,
				ServiceName: "fetchbench-test",
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

			assert.True(t, p.Exporting())
			assert.True(t, p.ShouldPropagate())
		})
	}
}

func TestInitRejectsBadSettings(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{Endpoint: "localhost:4317", Protocol: "zipkin"})
	assert.Error(t, err)

	for _, rate := range []float64{-0.1, 1.01} {
		_, err := tracing.Init(context.Background(), config.TracingConfig{Endpoint: "localhost:4317", SampleRate: rate})
		assert.Error(t, err, "sample rate %g", rate)
	}
}

func TestPropagationCanBeDisabled(t *testing.T) {
	off := false
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:   "localhost:4317",
		Insecure:   true,
		SampleRate: 0.5,
		Propagate:  &off,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.True(t, p.Exporting())
	assert.False(t, p.ShouldPropagate())
}

func TestNilProvider(t *testing.T) {
	var p *tracing.Provider
	assert.False(t, p.Exporting())
	assert.False(t, p.ShouldPropagate())
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStartFetchSpan(t *testing.T) {
	exporter, tracer := recordingTracer(t)

	_, span := tracing.StartFetchSpan(context.Background(), tracer, "scraper", "https://example.org/a")
	tracing.EndSpan(span, nil, attribute.Bool("fetchbench.success", true))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "scraper https://example.org/a", got.Name)
	assert.Equal(t, trace.SpanKindClient, got.SpanKind)
	assert.Equal(t, codes.Ok, got.Status.Code)

	attrs := attrMap(got.Attributes)
	assert.Equal(t, "scraper", attrs["fetchbench.mode"])
	assert.Equal(t, "https://example.org/a", attrs["url.full"])
	assert.Equal(t, "true", attrs["fetchbench.success"])
}

func TestStartFetchSpanWithoutTarget(t *testing.T) {
	exporter, tracer := recordingTracer(t)

	_, span := tracing.StartFetchSpan(context.Background(), tracer, "chrome", "")
	tracing.EndSpan(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "chrome fetch", spans[0].Name)
	assert.NotContains(t, attrMap(spans[0].Attributes), "url.full")
}

func TestEndSpanRecordsError(t *testing.T) {
	exporter, tracer := recordingTracer(t)

	_, span := tracing.StartFetchSpan(context.Background(), tracer, "http", "http://example.com")
	tracing.EndSpan(span, errors.New("fetch failed"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "fetch failed", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestInjectHTTPHeaders(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	headers := http.Header{}
	tracing.InjectHTTPHeaders(context.Background(), headers)
	assert.Empty(t, headers.Get("Traceparent"), "no span, no header")

	_, tracer := recordingTracer(t)
	ctx, span := tracing.StartFetchSpan(context.Background(), tracer, "http", "http://example.com")
	defer span.End()

	tracing.InjectHTTPHeaders(ctx, headers)
	traceparent := headers.Get("Traceparent")
	require.Len(t, traceparent, 55)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}
