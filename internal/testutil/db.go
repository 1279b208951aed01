package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"media-ingest/internal/database"
)

// NewDatabase opens a fresh sqlite database in a temporary directory and
// closes it when the test ends.
func NewDatabase(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "media.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

// MustJPEG builds a JPEG carrying x, or a plain JPEG when x is nil.
func MustJPEG(t testing.TB, x *Exif, w, h int) []byte {
	t.Helper()

	var (
		data []byte
		err  error
	)
	if x == nil {
		data, err = JPEG(Gradient(w, h))
	} else {
		data, err = x.JPEG(Gradient(w, h))
	}
	if err != nil {
		t.Fatalf("build jpeg fixture: %v", err)
	}
	return data
}
