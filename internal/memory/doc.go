// Package memory bounds heap growth while images are being decoded.
//
// Decoded rasters dominate the service's memory use: a 20 megapixel image is
// about 80 MB as RGBA. Two pieces keep that in check:
//
//   - [ConfigureFromEnv] derives GOMEMLIMIT from the container limit passed
//     in MEMORY_LIMIT (scaled by MEMORY_RATIO, default 0.85) unless
//     GOMEMLIMIT is already set.
//   - [Monitor] samples the heap and, once usage crosses the critical water
//     mark, makes [Monitor.Wait] block until it falls back under the high
//     water mark. Ingestion and backfill call Wait before decoding.
//
// Kubernetes example:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
package memory
