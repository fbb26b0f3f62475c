// Command targetserver serves synthetic HTML pages for local benchmark runs.
//
//	go run ./scripts/targetserver -port 8080 -pages 200 -latency 50ms -fail-rate 0.05 -urls-out urls.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type pageServer struct {
	pages    int
	latency  time.Duration
	jitter   time.Duration
	failRate float64
}

func main() {
	port := flag.Int("port", 8080, "Listening port")
	pages := flag.Int("pages", 100, "Number of distinct pages served under /page/<n>")
	latency := flag.Duration("latency", 0, "Fixed delay added to every response")
	jitter := flag.Duration("jitter", 0, "Random extra delay up to this value")
	failRate := flag.Float64("fail-rate", 0, "Fraction of requests answered with 503 (0.0-1.0)")
	urlsOut := flag.String("urls-out", "", "Write the page URLs to this file and keep serving")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}
	if *pages <= 0 {
		log.Fatalf("pages must be > 0")
	}

	s := &pageServer{pages: *pages, latency: *latency, jitter: *jitter, failRate: *failRate}

	if *urlsOut != "" {
		if err := writeURLs(*urlsOut, fmt.Sprintf("http://127.0.0.1:%d", *port), *pages); err != nil {
			log.Fatalf("write urls: %v", err)
		}
		log.Printf("wrote %d URLs to %s", *pages, *urlsOut)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/page/", s.handlePage)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("target server listening on %s (%d pages)", addr, *pages)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (s *pageServer) handlePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/page/"))
	if err != nil || n < 0 || n >= s.pages {
		http.NotFound(w, r)
		return
	}

	delay := s.latency
	if s.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(s.jitter)))
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if s.failRate > 0 && rand.Float64() < s.failRate {
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html>\n<html><head><title>Page %d</title></head><body>\n", n)
	fmt.Fprintf(w, "<h1>Page %d</h1>\n", n)
	for i := 0; i < 20; i++ {
		fmt.Fprintf(w, "<p>Paragraph %d of page %d. Lorem ipsum dolor sit amet.</p>\n", i, n)
	}
	if n+1 < s.pages {
		fmt.Fprintf(w, "<a href=\"/page/%d\">next</a>\n", n+1)
	}
	fmt.Fprint(w, "</body></html>\n")
}

func writeURLs(path, base string, pages int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for i := 0; i < pages; i++ {
		fmt.Fprintf(w, "%s/page/%d\n", base, i)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
