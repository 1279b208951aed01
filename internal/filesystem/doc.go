/*
Package filesystem wraps the file operations used by the local source store
with retry logic for NFS stale file handle errors.

Storage directories are often NFS mounts. A file handle can go stale
(ESTALE, errno 116) when the server moves or replaces a file underneath an
open handle; retrying the whole operation usually succeeds.

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only ESTALE triggers retries. All other errors fail immediately.

# Usage

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

	err := filesystem.WriteFileWithRetry(path, data, filesystem.DefaultRetryConfig())

Writes go through a temporary file and a rename, so a concurrent reader sees
either the old bytes or the new ones.
*/
package filesystem
