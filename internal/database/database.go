package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-ingest/internal/logging"
	"media-ingest/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages asset persistence.
type Database struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and if needed creates) the sqlite database at dbPath.
// dbPath is the full path to the database file; its parent directory must
// exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db: db,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,

		-- flattened projection of metadata, used for querying
		camera TEXT,
		lens TEXT,
		aperture TEXT,
		focal_length TEXT,
		iso TEXT,
		shutter_speed TEXT,
		capture_time TEXT,
		location TEXT,
		latitude REAL,
		longitude REAL,
		genre TEXT,
		content_hash TEXT,
		perceptual_hash TEXT,
		status TEXT NOT NULL DEFAULT 'processing',

		metadata TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_assets_content_hash ON assets(content_hash);
	CREATE INDEX IF NOT EXISTS idx_assets_status ON assets(status);
	CREATE INDEX IF NOT EXISTS idx_assets_camera ON assets(camera COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_assets_capture_time ON assets(capture_time);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return d.runMigrations(ctx)
}

// runMigrations applies schema changes to databases created by older builds.
func (d *Database) runMigrations(ctx context.Context) error {
	// Migration 1: perceptual_hash column for near-duplicate lookups.
	var columnExists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('assets')
		WHERE name='perceptual_hash'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check for perceptual_hash column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating database: adding perceptual_hash column to assets table")

		if _, err := d.db.ExecContext(ctx, `ALTER TABLE assets ADD COLUMN perceptual_hash TEXT`); err != nil {
			return fmt.Errorf("failed to add perceptual_hash column: %w", err)
		}

		if _, err := d.db.ExecContext(ctx, `
			UPDATE assets SET perceptual_hash = json_extract(metadata, '$.perceptualHash')
		`); err != nil {
			return fmt.Errorf("failed to initialize perceptual_hash values: %w", err)
		}

		logging.Info("Migration complete: perceptual_hash column added and initialized")
	}

	if _, err := d.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_assets_perceptual_hash ON assets(perceptual_hash)
	`); err != nil {
		return fmt.Errorf("failed to index perceptual_hash: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping checks the database connection.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
