// Package provider talks to the upstream search engine and yields its raw,
// category specific records.
package provider

import (
	"context"
	"iter"
	"net"
	"net/http"
	"time"

	"ducksearch/ducksearch/utils/types"
)

// Query is one category search against the provider.
type Query struct {
	Category types.Category
	Keywords string
	Region   string
}

// Provider yields raw records lazily. Implementations must not fetch another
// upstream page until the consumer asks for a record beyond the current one,
// so breaking out of the range loop stops all upstream work.
type Provider interface {
	Search(ctx context.Context, q Query) iter.Seq2[types.RawRecord, error]
}

// NewHTTPClient builds the long-lived client shared by the provider and the
// page scraper. Default headers are added to every request that does not set
// them itself.
func NewHTTPClient(timeout time.Duration, userAgent string) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	headers := http.Header{}
	headers.Set("User-Agent", userAgent)
	headers.Set("Accept-Language", "en-US,en;q=0.9")
	return &http.Client{
		Transport: &headerTransport{base: transport, headers: headers},
		Timeout:   timeout,
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, values := range t.headers {
		if req.Header.Get(key) == "" {
			req.Header[key] = values
		}
	}
	return t.base.RoundTrip(req)
}
