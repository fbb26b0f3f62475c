package fetcher

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/fetchbench/internal/tracing"
)

var errFetchFailed = errors.New("fetch failed")

type loggingFetcher struct {
	inner  Fetcher
	logger *slog.Logger
}

// WithLogging wraps a Fetcher to log failed fetches at debug level.
func WithLogging(f Fetcher, logger *slog.Logger) Fetcher {
	if logger == nil {
		return f
	}
	return &loggingFetcher{inner: f, logger: logger}
}

func (l *loggingFetcher) Fetch(ctx context.Context, target string) Result {
	res := l.inner.Fetch(ctx, target)
	if !res.Success {
		l.logger.Debug("fetch failed", "target", target, "elapsed", res.Elapsed)
	}
	return res
}

type tracingFetcher struct {
	inner  Fetcher
	tracer trace.Tracer
	kind   Kind
}

// WithTracing wraps a Fetcher so every fetch runs inside a client span.
func WithTracing(f Fetcher, tracer trace.Tracer, kind Kind) Fetcher {
	if tracer == nil {
		return f
	}
	return &tracingFetcher{inner: f, tracer: tracer, kind: kind}
}

func (t *tracingFetcher) Fetch(ctx context.Context, target string) Result {
	ctx, span := tracing.StartFetchSpan(ctx, t.tracer, string(t.kind), target)
	res := t.inner.Fetch(ctx, target)
	var err error
	if !res.Success {
		err = errFetchFailed
	}
	tracing.EndSpan(span, err,
		attribute.Bool("fetchbench.success", res.Success),
		attribute.Float64("fetchbench.elapsed_s", res.Elapsed.Seconds()),
	)
	return res
}
