// Package httpclient builds the HTTP plumbing shared by the plain HTTP and
// scraper fetch backends.
//
// [NewClient] creates a client with connection reuse and an overall timeout:
//
//	client := httpclient.NewClient(30 * time.Second)
//	req.Header = httpclient.BrowserHeaders(userAgent)
//	resp, err := client.Do(req)
//
// [NewTransport] returns the same transport on its own for callers, such as
// colly collectors, that bring their own client.
package httpclient
