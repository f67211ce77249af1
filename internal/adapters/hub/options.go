package hub

import (
	"net/http"
	"time"
)

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithBaseURL points the fetcher at a different content server.
func WithBaseURL(baseURL string) Option {
	return func(f *HTTPFetcher) {
		f.baseURL = baseURL
	}
}

// WithPageSize sets the page length used when paging filter results.
func WithPageSize(size int) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.pageSize = size
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.client.Timeout = timeout
	}
}
