package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/torosent/fetchbench/internal/httpclient"
)

// MinScrapedBodyBytes is the body size a scraper fetch must exceed to count
// as a success.
const MinScrapedBodyBytes = 100

// ScraperFetcher fetches targets through a colly collector. A fetch succeeds
// on status 200 with a body larger than MinScrapedBodyBytes.
type ScraperFetcher struct {
	transport *http.Transport
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// NewScraperFetcher builds the scraper backend. Collectors share one
// transport so connections are reused across fetches.
func NewScraperFetcher(opt Options) *ScraperFetcher {
	opt.normalize()
	return &ScraperFetcher{
		transport: httpclient.NewTransport(),
		timeout:   opt.Timeout,
		userAgent: opt.UserAgent,
		logger:    opt.Logger.With("component", "fetcher", "kind", string(KindScraper)),
	}
}

func (f *ScraperFetcher) collector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
	)
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(f.timeout)
	c.WithTransport(contextTransport{ctx: ctx, base: f.transport})
	return c
}

func (f *ScraperFetcher) Fetch(ctx context.Context, target string) Result {
	c := f.collector(ctx)

	var res Result
	start := time.Now()
	c.OnResponse(func(r *colly.Response) {
		res = Result{
			Elapsed: time.Since(start),
			Success: r.StatusCode == http.StatusOK && len(r.Body) > MinScrapedBodyBytes,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		f.logger.Debug("scrape failed", "target", target, "error", err)
		res = Result{}
	})

	if err := c.Visit(target); err != nil {
		f.logger.Debug("visit failed", "target", target, "error", err)
		return Result{}
	}
	return res
}

// Close releases idle connections.
func (f *ScraperFetcher) Close() error {
	f.transport.CloseIdleConnections()
	return nil
}

// contextTransport binds outgoing requests to a fetch's context.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
