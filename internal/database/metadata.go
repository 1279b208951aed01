package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	keyLastBackfillRun     = "last_backfill_run"
	keyLastBackfillSummary = "last_backfill_summary"
)

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastBackfillRun returns the completion time of the last backfill run.
// Returns zero time if never run.
func (d *Database) GetLastBackfillRun(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, keyLastBackfillRun)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastBackfillRun stores the completion time of a backfill run together
// with its encoded summary.
func (d *Database) SetLastBackfillRun(ctx context.Context, t time.Time, summary string) error {
	if err := d.SetMetadata(ctx, keyLastBackfillRun, t.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return d.SetMetadata(ctx, keyLastBackfillSummary, summary)
}

// GetLastBackfillSummary returns the encoded summary of the last backfill
// run, or an empty string if none was recorded.
func (d *Database) GetLastBackfillSummary(ctx context.Context) (string, error) {
	value, err := d.GetMetadata(ctx, keyLastBackfillSummary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
