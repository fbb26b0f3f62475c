package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/torosent/fetchbench/internal/httpclient"
	"github.com/torosent/fetchbench/internal/tracing"
)

// maxBodyBytes bounds how much of a response the http backend reads.
const maxBodyBytes = 32 << 20

// HTTPFetcher fetches targets with a plain HTTP client. A fetch succeeds on
// status 200 with a non-empty body.
type HTTPFetcher struct {
	client    *http.Client
	headers   http.Header
	retry     RetryPolicy
	propagate bool
	logger    *slog.Logger
}

// NewHTTPFetcher builds the http backend.
func NewHTTPFetcher(opt Options) *HTTPFetcher {
	opt.normalize()
	retry := DefaultHTTPRetry()
	if opt.Retry != nil {
		retry = *opt.Retry
	}
	return &HTTPFetcher{
		client:    httpclient.NewClient(opt.Timeout),
		headers:   httpclient.BrowserHeaders(opt.UserAgent),
		retry:     retry,
		propagate: opt.PropagateTrace,
		logger:    opt.Logger.With("component", "fetcher", "kind", string(KindHTTP)),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		f.logger.Debug("build request failed", "target", target, "error", err)
		return Result{}
	}
	req.Header = f.headers.Clone()
	if f.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	var status, size int
	start := time.Now()
	err = Retry(ctx, f.retry, func(context.Context) error {
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}
		status, size = resp.StatusCode, int(n)
		if RetryableHTTP(&StatusError{StatusCode: resp.StatusCode}) {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return Result{Elapsed: elapsed}
		}
		f.logger.Debug("fetch failed", "target", target, "error", err)
		return Result{}
	}
	return Result{Elapsed: elapsed, Success: status == http.StatusOK && size > 0}
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
