// Package fetcher provides the fetch backends a benchmark run drives.
//
// Every backend turns one target into a [Result]: how long the fetch took
// and whether it succeeded. Backends never return errors to the caller;
// any internal failure becomes Result{Elapsed: 0, Success: false}.
//
// # Kinds
//
//   - [KindChrome]: headless Chrome driven over the DevTools protocol
//   - [KindChromeNoJS]: as above with JavaScript disabled
//   - [KindChromeNoMedia]: as above with images and plugins disabled
//   - [KindMiniblink]: a Chromium-compatible browser at a custom path
//   - [KindHTTP]: a plain HTTP client with browser-like headers and retries
//   - [KindScraper]: a colly collector with a body-size success check
//
// Use [New] to build the backend for a kind once per run:
//
//	backend, err := fetcher.New(fetcher.KindHTTP, fetcher.Options{Timeout: 10 * time.Second})
//	if err != nil {
//		return err
//	}
//	defer backend.Close()
//	res := backend.Fetch(ctx, "https://example.com")
//
// # Middleware
//
//   - [WithLogging]: log failed fetches
//   - [WithTracing]: wrap each fetch in an OpenTelemetry span
package fetcher
