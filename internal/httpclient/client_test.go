package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout)
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}

	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Fatalf("request returned too quickly: %s < %s", elapsed, timeout)
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}
}

func TestNegativeTimeoutDisablesLimit(t *testing.T) {
	if got := NewClient(-time.Second).Timeout; got != 0 {
		t.Fatalf("expected no timeout, got %s", got)
	}
}

func TestTransportAllowsReuse(t *testing.T) {
	transport, ok := NewClient(time.Second).Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport")
	}
	if transport.MaxIdleConns == 0 || transport.MaxIdleConnsPerHost == 0 {
		t.Fatalf("expected transport to allow idle connections")
	}
	if transport.IdleConnTimeout == 0 {
		t.Fatalf("expected transport to set idle connection timeout")
	}
}

func TestBrowserHeaders(t *testing.T) {
	h := BrowserHeaders("bench/1.0")
	if got := h.Get("User-Agent"); got != "bench/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
	if h.Get("Accept") != acceptHTML || h.Get("Accept-Language") != acceptLanguage {
		t.Errorf("unexpected accept headers: %v", h)
	}

	if _, ok := BrowserHeaders("")["User-Agent"]; ok {
		t.Error("empty user agent should not be sent")
	}
}
