/*
Package workers sizes worker pools for containerized environments and
bounds concurrent work.

Go 1.19+ sets GOMAXPROCS from the container CPU limit, while
runtime.NumCPU still reports the host's CPUs. The helpers here size pools
from GOMAXPROCS:

	workers.ForCPU(8)   // image decoding, hashing: 1 per CPU, at most 8
	workers.ForIO(16)   // fetches and disk I/O: 2 per CPU
	workers.ForMixed(12)

The INGEST_WORKERS environment variable overrides the computed count.

Limiter turns a count into an admission gate. The ingestion pipeline holds
one slot per upload while the image is decoded and derived, which bounds the
number of decoded rasters in memory:

	limiter := workers.NewLimiter(workers.ForCPU(0))
	if err := limiter.Acquire(ctx); err != nil {
		return err
	}
	defer limiter.Release()
*/
package workers
