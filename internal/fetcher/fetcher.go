package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Result is the outcome of one fetch.
type Result struct {
	Elapsed time.Duration
	Success bool
}

// Fetcher performs one fetch of a target.
type Fetcher interface {
	Fetch(ctx context.Context, target string) Result
}

// Func adapts a plain function to Fetcher.
type Func func(ctx context.Context, target string) Result

func (f Func) Fetch(ctx context.Context, target string) Result {
	return f(ctx, target)
}

// Backend is a Fetcher that owns resources released by Close.
type Backend interface {
	Fetcher
	Close() error
}

// Options configures backend construction.
type Options struct {
	Timeout     time.Duration
	BrowserPath string
	// MaxSessions caps the number of idle browser tabs kept for reuse.
	MaxSessions int
	UserAgent   string
	// Retry overrides the http backend retry policy.
	Retry *RetryPolicy
	// PropagateTrace injects W3C trace headers into http requests.
	PropagateTrace bool
	Logger         *slog.Logger
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func (o *Options) normalize() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 10
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// New builds the backend for kind.
func New(kind Kind, opt Options) (Backend, error) {
	opt.normalize()
	switch kind {
	case KindHTTP:
		return NewHTTPFetcher(opt), nil
	case KindScraper:
		return NewScraperFetcher(opt), nil
	case KindChrome, KindChromeNoJS, KindChromeNoMedia, KindMiniblink:
		return NewBrowserFetcher(kind, opt)
	default:
		return nil, fmt.Errorf("unsupported mode %q", kind)
	}
}

// Safe runs f and converts a panic into a failed result.
func Safe(ctx context.Context, f Fetcher, target string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
		}
	}()
	res = f.Fetch(ctx, target)
	if res.Elapsed < 0 {
		res.Elapsed = 0
	}
	return res
}
