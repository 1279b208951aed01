package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when an asset does not exist.
var ErrNotFound = errors.New("asset not found")

// MaxListLimit caps the page size of ListAssets.
const MaxListLimit = 500

const assetColumns = `id, title, description, source_url, width, height, metadata, created_at, updated_at`

func nullString(s string) sql.NullString {
	if IsBlank(s) {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if IsNullFloat(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// InsertAsset writes a new asset. CreatedAt and UpdatedAt are set when zero.
func (d *Database) InsertAsset(ctx context.Context, a *Asset) error {
	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	blob, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	c := ColumnsOf(a.Metadata)
	_, err = d.db.ExecContext(ctx, `
	INSERT INTO assets (
		id, title, description, source_url, width, height,
		camera, lens, aperture, focal_length, iso, shutter_speed, capture_time,
		location, latitude, longitude, genre, content_hash, perceptual_hash, status,
		metadata, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Title, a.Description, a.SourceURL, a.Width, a.Height,
		nullString(c.Camera), nullString(c.Lens), nullString(c.Aperture), nullString(c.FocalLength),
		nullString(c.ISO), nullString(c.ShutterSpeed), nullString(c.CaptureTime),
		nullString(c.Location), nullFloat(c.Latitude), nullFloat(c.Longitude), nullString(c.Genre),
		nullString(c.ContentHash), nullString(c.PerceptualHash), string(c.Status),
		string(blob), a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	recordQuery("insert_asset", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert asset %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAsset overwrites an existing asset in a single statement. There is
// no version check: concurrent writers race on last-write-wins.
func (d *Database) UpdateAsset(ctx context.Context, a *Asset) error {
	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	blob, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	a.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	c := ColumnsOf(a.Metadata)
	result, err := d.db.ExecContext(ctx, `
	UPDATE assets SET
		title = ?, description = ?, source_url = ?, width = ?, height = ?,
		camera = ?, lens = ?, aperture = ?, focal_length = ?, iso = ?, shutter_speed = ?,
		capture_time = ?, location = ?, latitude = ?, longitude = ?, genre = ?,
		content_hash = ?, perceptual_hash = ?, status = ?,
		metadata = ?, updated_at = ?
	WHERE id = ?
	`,
		a.Title, a.Description, a.SourceURL, a.Width, a.Height,
		nullString(c.Camera), nullString(c.Lens), nullString(c.Aperture), nullString(c.FocalLength),
		nullString(c.ISO), nullString(c.ShutterSpeed), nullString(c.CaptureTime),
		nullString(c.Location), nullFloat(c.Latitude), nullFloat(c.Longitude), nullString(c.Genre),
		nullString(c.ContentHash), nullString(c.PerceptualHash), string(c.Status),
		string(blob), a.UpdatedAt.Unix(),
		a.ID,
	)
	recordQuery("update_asset", start, err)
	if err != nil {
		return fmt.Errorf("failed to update asset %s: %w", a.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*Asset, error) {
	var (
		a                Asset
		blob             string
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.SourceURL, &a.Width, &a.Height,
		&blob, &created, &updated); err != nil {
		return nil, err
	}
	if blob != "" {
		if err := json.Unmarshal([]byte(blob), &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for asset %s: %w", a.ID, err)
		}
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	a.UpdatedAt = time.Unix(updated, 0).UTC()
	return &a, nil
}

// GetAsset retrieves a single asset by id.
func (d *Database) GetAsset(ctx context.Context, id string) (*Asset, error) {
	start := time.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get_asset", start, nil)
		return nil, ErrNotFound
	}
	recordQuery("get_asset", start, err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssets returns up to limit assets ordered by id, starting after
// afterID. An empty afterID starts from the beginning.
func (d *Database) ListAssets(ctx context.Context, afterID string, limit int) ([]Asset, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	start := time.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit)
	if err != nil {
		recordQuery("list_assets", start, err)
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			recordQuery("list_assets", start, err)
			return nil, err
		}
		assets = append(assets, *a)
	}
	err = rows.Err()
	recordQuery("list_assets", start, err)
	return assets, err
}

// DeleteAsset removes an asset unconditionally.
func (d *Database) DeleteAsset(ctx context.Context, id string) error {
	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	recordQuery("delete_asset", start, err)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByContentHash returns the ids of assets whose stored content hash
// matches hash.
func (d *Database) FindByContentHash(ctx context.Context, hash string) ([]string, error) {
	start := time.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT id FROM assets WHERE content_hash = ? ORDER BY id`, hash)
	if err != nil {
		recordQuery("find_by_hash", start, err)
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			recordQuery("find_by_hash", start, err)
			return nil, err
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	recordQuery("find_by_hash", start, err)
	return ids, err
}

// CountByStatus returns the number of assets per status.
func (d *Database) CountByStatus(ctx context.Context) (StatusCounts, error) {
	start := time.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM assets GROUP BY status`)
	if err != nil {
		recordQuery("count_by_status", start, err)
		return nil, err
	}
	defer rows.Close()

	counts := StatusCounts{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			recordQuery("count_by_status", start, err)
			return nil, err
		}
		counts[Status(status)] = n
	}
	err = rows.Err()
	recordQuery("count_by_status", start, err)
	return counts, err
}
