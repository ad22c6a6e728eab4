package store

import (
	"context"
	"fmt"

	"github.com/pingmedaddy/pingmedaddy/internal/metrics"
	"github.com/pingmedaddy/pingmedaddy/internal/models"
)

// InsertSample writes a single raw probe outcome. The table's composite
// primary key (time, target_id) makes a retried insert of the same
// sample a no-op rather than a duplicate row.
func (s *Store) InsertSample(ctx context.Context, sample models.PingSample) error {
	err := s.db.WithContext(ctx).
		Clauses(onConflictDoNothing()).
		Create(&sample).Error
	if err != nil {
		metrics.StoreWriteErrors.Inc()
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// InsertSamples writes a batch of raw samples in one statement, used by
// the historical-seed path and by any future batched probe runner.
func (s *Store) InsertSamples(ctx context.Context, samples []models.PingSample) error {
	if len(samples) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(onConflictDoNothing()).
		Create(&samples).Error
	if err != nil {
		metrics.StoreWriteErrors.Inc()
		return fmt.Errorf("insert samples: %w", err)
	}
	return nil
}
