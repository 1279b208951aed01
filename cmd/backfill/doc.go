// Command backfill fills missing derived metadata on every stored asset.
//
// It runs the same reprocessor as the server's POST /api/backfill endpoint,
// but in the foreground, which suits one-off migrations and cron jobs.
//
// Usage:
//
//	backfill [--stages fingerprint,exif] [--page-size 100] [--json]
//
// Flags:
//
//	--stages        Comma separated derivations to run. Defaults to all of
//	                fingerprint, placeholder, histogram and exif.
//	--page-size     Records read per keyset page (1-500).
//	--database-dir  Directory holding media.db.
//	--storage-dir   Local originals directory when S3 is not configured.
//	--json          Print the final summary as JSON.
//	--vips          Decode with libvips when available.
//
// Environment:
//
//	DATABASE_DIR, STORAGE_DIR, S3_* and FETCH_TIMEOUT are read the same way
//	the server reads them, including from a .env file. Flags win.
//
// The command exits non-zero when the run is interrupted or any record
// failed. Records written before that are kept.
package main
