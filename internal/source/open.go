package source

import (
	"context"
	"time"
)

// Settings configures the router built by Open.
type Settings struct {
	// StorageDir is the local primary store, used when S3 is nil.
	StorageDir string
	S3         *S3Config

	FetchTimeout  time.Duration
	MaxFetchBytes int64
}

// Open builds the router for s: S3 or the local directory as the primary
// store, plus read-only http and https fetchers. The returned name
// describes the primary store for logs.
func Open(ctx context.Context, s Settings) (*Router, string, error) {
	var r *Router
	var name string

	if s.S3 != nil {
		store, err := NewS3Store(*s.S3)
		if err != nil {
			return nil, "", err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		r = NewRouter(SchemeS3, store)
		name = "s3://" + s.S3.Bucket
	} else {
		files, err := NewFileStore(s.StorageDir)
		if err != nil {
			return nil, "", err
		}
		r = NewRouter(SchemeFile, files)
		name = files.Root()
	}

	fetcher := NewHTTPFetcher(s.FetchTimeout, s.MaxFetchBytes)
	r.Register("http", fetcher)
	r.Register("https", fetcher)
	return r, name, nil
}
