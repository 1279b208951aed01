package database

import (
	"context"

	"media-ingest/internal/metrics"
)

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats(ctx context.Context) (metrics.Stats, error) {
	counts, err := d.CountByStatus(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}

	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}

	return metrics.Stats{
		AssetsByStatus:  byStatus,
		OpenConnections: d.db.Stats().OpenConnections,
	}, nil
}
