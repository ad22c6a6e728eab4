package store

import (
	"context"
	"fmt"
	"time"
)

// rollupMinuteWindow/rollupHourWindow bound how far back each roll-up
// re-scans on every tick -- a few multiples of the job's own interval
// is enough to absorb a retried or slightly late write without ever
// re-aggregating the full raw table, the same bounded-window shape a
// TimescaleDB continuous aggregate's refresh policy uses.
const (
	rollupMinuteWindow = 15 * time.Minute
	rollupHourWindow   = 3 * time.Hour
)

// RollupMinute materializes ping_minute buckets from ping_logs rows in
// [cutoff-rollupMinuteWindow, cutoff), with both edges rounded down to
// whole minutes so no bucket is written from only part of its raw rows,
// matching the roll-up lag that keeps the job from racing the
// still-arriving raw writes for the current minute.
func (s *Store) RollupMinute(ctx context.Context, cutoff time.Time) error {
	const q = `
INSERT INTO ping_minute (bucket, target_id, avg_latency, min_latency, max_latency, loss_count, samples)
SELECT
	date_trunc('minute', time) AS bucket,
	target_id,
	AVG(latency_ms) AS avg_latency,
	MIN(latency_ms) AS min_latency,
	MAX(latency_ms) AS max_latency,
	SUM(CASE WHEN packet_loss THEN 1 ELSE 0 END) AS loss_count,
	COUNT(*) AS samples
FROM ping_logs
WHERE time >= ? AND time < ?
GROUP BY date_trunc('minute', time), target_id
ON CONFLICT (bucket, target_id) DO UPDATE SET
	avg_latency = EXCLUDED.avg_latency,
	min_latency = EXCLUDED.min_latency,
	max_latency = EXCLUDED.max_latency,
	loss_count  = EXCLUDED.loss_count,
	samples     = EXCLUDED.samples
`
	windowEnd := cutoff.Truncate(time.Minute)
	windowStart := windowEnd.Add(-rollupMinuteWindow)
	if err := s.db.WithContext(ctx).Exec(q, windowStart, windowEnd).Error; err != nil {
		return fmt.Errorf("rollup minute: %w", err)
	}
	return nil
}

// RollupHour materializes ping_hour buckets from ping_minute rows in
// [cutoff-rollupHourWindow, cutoff) (not from raw samples), both edges
// rounded down to whole hours, matching
// the two-stage aggregation the original TimescaleDB continuous
// aggregates used. avg_latency is weighted by each minute bucket's
// non-loss sample count rather than a plain mean of minute averages,
// matching the weighting computeFromAggregate uses when it rolls
// aggregate rows up into an insights window.
func (s *Store) RollupHour(ctx context.Context, cutoff time.Time) error {
	const q = `
INSERT INTO ping_hour (bucket, target_id, avg_latency, min_latency, max_latency, loss_count, samples)
SELECT
	date_trunc('hour', bucket) AS hour_bucket,
	target_id,
	SUM(avg_latency * (samples - loss_count)) / NULLIF(SUM(samples - loss_count), 0) AS avg_latency,
	MIN(min_latency) AS min_latency,
	MAX(max_latency) AS max_latency,
	SUM(loss_count) AS loss_count,
	SUM(samples) AS samples
FROM ping_minute
WHERE bucket >= ? AND bucket < ?
GROUP BY date_trunc('hour', bucket), target_id
ON CONFLICT (bucket, target_id) DO UPDATE SET
	avg_latency = EXCLUDED.avg_latency,
	min_latency = EXCLUDED.min_latency,
	max_latency = EXCLUDED.max_latency,
	loss_count  = EXCLUDED.loss_count,
	samples     = EXCLUDED.samples
`
	windowEnd := cutoff.Truncate(time.Hour)
	windowStart := windowEnd.Add(-rollupHourWindow)
	if err := s.db.WithContext(ctx).Exec(q, windowStart, windowEnd).Error; err != nil {
		return fmt.Errorf("rollup hour: %w", err)
	}
	return nil
}

// LatestBucket returns the most recently materialized bucket for a
// resolution, used to compute roll-up lag for metrics.
func (s *Store) LatestBucket(ctx context.Context, table string) (time.Time, error) {
	var bucket time.Time
	err := s.db.WithContext(ctx).Table(table).Select("MAX(bucket)").Row().Scan(&bucket)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest bucket for %s: %w", table, err)
	}
	return bucket, nil
}
