package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/torosent/fetchbench/internal/pool"
)

var errStaleSession = errors.New("browser session could not be renewed")

// BrowserFetcher loads targets in a shared headless browser. Each fetch uses
// one tab; idle tabs are pooled and reused. Elapsed covers navigation only,
// and a fetch succeeds when the loaded document is non-empty.
type BrowserFetcher struct {
	kind    Kind
	timeout time.Duration
	logger  *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sessions      *pool.Pool[*tab]
}

// browserSwitches returns the command-line switches for a browser kind.
func browserSwitches(kind Kind) map[string]any {
	switch kind {
	case KindChromeNoJS:
		return map[string]any{"disable-javascript": true}
	case KindChromeNoMedia:
		return map[string]any{
			"blink-settings":  "imagesEnabled=false",
			"disable-plugins": true,
		}
	}
	return map[string]any{}
}

// NewBrowserFetcher launches the browser for kind. Miniblink requires
// Options.BrowserPath; other kinds use it when set.
func NewBrowserFetcher(kind Kind, opt Options) (*BrowserFetcher, error) {
	opt.normalize()
	if !kind.Browser() {
		return nil, fmt.Errorf("mode %q is not a browser mode", kind)
	}
	if kind == KindMiniblink && opt.BrowserPath == "" {
		return nil, errors.New("miniblink mode requires a browser path")
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.UserAgent(opt.UserAgent))
	for name, value := range browserSwitches(kind) {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	if opt.BrowserPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opt.BrowserPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// Start the browser now so a missing binary fails before the run.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &BrowserFetcher{
		kind:          kind,
		timeout:       opt.Timeout,
		logger:        opt.Logger.With("component", "fetcher", "kind", string(kind)),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sessions:      pool.New[*tab](opt.MaxSessions),
	}, nil
}

func (f *BrowserFetcher) newTab() *tab {
	return &tab{parent: f.browserCtx}
}

func (f *BrowserFetcher) acquire(ctx context.Context) (*tab, error) {
	t, reused := f.sessions.Get(f.newTab)
	if !reused {
		if err := t.Connect(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}
	if t.ctx.Err() == nil {
		return t, nil
	}
	fresh, ok := f.sessions.Renew(ctx, t, f.newTab)
	if !ok {
		return nil, errStaleSession
	}
	return fresh, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, target string) Result {
	t, err := f.acquire(ctx)
	if err != nil {
		f.logger.Debug("open tab failed", "target", target, "error", err)
		return Result{}
	}

	runCtx, cancel := context.WithTimeout(t.ctx, f.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	if err := chromedp.Run(runCtx, chromedp.Navigate(target)); err != nil {
		f.logger.Debug("navigate failed", "target", target, "error", err)
		_ = t.Close()
		return Result{}
	}
	elapsed := time.Since(start)

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		f.logger.Debug("read document failed", "target", target, "error", err)
		_ = t.Close()
		return Result{}
	}

	if err := f.sessions.Put(t); err != nil {
		f.logger.Debug("release tab failed", "error", err)
	}
	return Result{Elapsed: elapsed, Success: len(html) > 0}
}

// Close closes pooled tabs and shuts the browser down.
func (f *BrowserFetcher) Close() error {
	err := f.sessions.Close()
	if cerr := chromedp.Cancel(f.browserCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
		err = errors.Join(err, cerr)
	}
	f.browserCancel()
	f.allocCancel()
	return err
}

// tab is one browser target usable by a single fetch at a time.
type tab struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *tab) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.ctx, t.cancel = chromedp.NewContext(t.parent)
	if err := chromedp.Run(t.ctx); err != nil {
		t.cancel()
		return fmt.Errorf("open tab: %w", err)
	}
	return nil
}

func (t *tab) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
