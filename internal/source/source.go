// Package source stores and retrieves the original bytes behind an asset.
//
// Every stored object is addressed by a URL whose scheme selects the
// backend: file:// for a local (often NFS mounted) directory, s3:// for an
// S3 compatible bucket, and http(s):// for read-only remote originals. A
// Router writes new uploads to one primary store and dispatches fetches and
// deletes by scheme.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"media-ingest/internal/logging"
	"media-ingest/internal/metrics"
)

var log = logging.For("source")

var (
	// ErrUnsupportedScheme is returned for a URL no registered store handles.
	ErrUnsupportedScheme = errors.New("unsupported source scheme")
	// ErrNotFound is returned when the addressed object does not exist.
	ErrNotFound = errors.New("source object not found")
	// ErrReadOnly is returned by stores that cannot write.
	ErrReadOnly = errors.New("source is read-only")
	// ErrTooLarge is returned when an object exceeds the fetch limit.
	ErrTooLarge = errors.New("source object too large")
)

// Store reads and writes original image bytes.
type Store interface {
	// Put stores data under key and returns the URL to fetch it from.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
	Delete(ctx context.Context, rawURL string) error
}

// Router dispatches to stores by URL scheme.
type Router struct {
	primary Store
	stores  map[string]Store
}

// NewRouter returns a Router that writes new objects to primary, which is
// registered under primaryScheme.
func NewRouter(primaryScheme string, primary Store) *Router {
	r := &Router{primary: primary, stores: map[string]Store{}}
	r.Register(primaryScheme, primary)
	return r
}

// Register routes URLs with scheme to s.
func (r *Router) Register(scheme string, s Store) {
	r.stores[strings.ToLower(scheme)] = s
}

// Put stores data in the primary store.
func (r *Router) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return r.primary.Put(ctx, key, data, contentType)
}

// Fetch returns the bytes at rawURL.
func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	s, err := r.route(rawURL)
	if err != nil {
		return nil, err
	}
	return s.Fetch(ctx, rawURL)
}

// Delete removes the object at rawURL.
func (r *Router) Delete(ctx context.Context, rawURL string) error {
	s, err := r.route(rawURL)
	if err != nil {
		return err
	}
	return s.Delete(ctx, rawURL)
}

func (r *Router) route(rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	s, ok := r.stores[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return s, nil
}

// observe records the outcome of one store operation.
func observe(scheme, op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.SourceOperationsTotal.WithLabelValues(scheme, op, status).Inc()
	metrics.SourceOperationDuration.WithLabelValues(scheme, op).Observe(time.Since(start).Seconds())
}
