package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher reads originals from http and https URLs. It cannot write.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout
// and which refuses bodies larger than maxBytes. A non-positive maxBytes
// disables the limit.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Put always fails with ErrReadOnly.
func (f *HTTPFetcher) Put(context.Context, string, []byte, string) (string, error) {
	return "", ErrReadOnly
}

// Delete always fails with ErrReadOnly.
func (f *HTTPFetcher) Delete(context.Context, string) error {
	return ErrReadOnly
}

// Fetch GETs rawURL and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	data, err := f.fetch(ctx, rawURL)
	observe("http", "fetch", start, err)
	return data, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, rawURL, f.maxBytes)
	}
	return data, nil
}
