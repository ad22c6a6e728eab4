package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/core"
	"github.com/pingmedaddy/pingmedaddy/internal/models"
)

// QueryRaw returns the most recent raw samples for a target within
// [from, to), capped at limit rows, reversed into oldest-first order
// for the caller -- the query itself runs newest-first so that a LIMIT
// keeps the most recent rows rather than the oldest ones.
func (s *Store) QueryRaw(ctx context.Context, targetID int, from, to time.Time, limit int) ([]models.PingSample, error) {
	var samples []models.PingSample
	q := s.db.WithContext(ctx).
		Where("target_id = ? AND time >= ? AND time < ?", targetID, from, to).
		Order("time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("%w: query raw samples: %v", core.ErrStoreUnavailable, err)
	}
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// QueryAggregate returns minute or hour aggregate rows for a target
// within [from, to), ascending by bucket. Results are served from the
// read-through cache when one is configured; a range ending within
// rollupLag of now is cached only for inflightCacheTTL.
func (s *Store) QueryAggregate(ctx context.Context, targetID int, resolution models.Resolution, from, to time.Time) ([]models.AggregateRow, error) {
	table := aggregateTable(resolution)
	if table == "" {
		return nil, fmt.Errorf("query aggregate: unsupported resolution %q", resolution)
	}

	if cached, ok := s.getCachedAggregate(ctx, targetID, resolution, from, to); ok {
		return cached, nil
	}

	var rows []models.AggregateRow
	err := s.db.WithContext(ctx).
		Table(table).
		Select("bucket, target_id, avg_latency, min_latency, max_latency, loss_count, samples").
		Where("target_id = ? AND bucket >= ? AND bucket < ?", targetID, from, to).
		Order("bucket ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query aggregate: %v", core.ErrStoreUnavailable, err)
	}

	s.setCachedAggregate(ctx, targetID, resolution, from, to, rows)
	return rows, nil
}

func aggregateTable(resolution models.Resolution) string {
	switch resolution {
	case models.ResolutionMinute:
		return "ping_minute"
	case models.ResolutionHour:
		return "ping_hour"
	default:
		return ""
	}
}

// StreamRaw writes every raw sample for a target within [from, to) to w
// as CSV, oldest first, without materializing the full result set in
// memory -- the same streaming contract the CSV export endpoint needs
// for a target with years of history. targetIP is stamped onto every
// row verbatim rather than joined from monitor_targets, since the
// caller already resolved it through the registry.
func (s *Store) StreamRaw(ctx context.Context, targetID int, targetIP string, from, to time.Time, w io.Writer) error {
	rows, err := s.db.WithContext(ctx).
		Model(&models.PingSample{}).
		Where("target_id = ? AND time >= ? AND time < ?", targetID, from, to).
		Order("time ASC").
		Rows()
	if err != nil {
		return fmt.Errorf("%w: stream raw samples: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "target_id", "target_ip", "latency_ms", "hops", "packet_loss"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for rows.Next() {
		var sample models.PingSample
		if err := s.db.ScanRows(rows, &sample); err != nil {
			return fmt.Errorf("scan sample row: %w", err)
		}
		record := []string{
			sample.Time.UTC().Format(time.RFC3339),
			strconv.Itoa(targetID),
			targetIP,
			formatNullableFloat(sample.LatencyMs),
			formatNullableInt(sample.Hops),
			strconv.FormatBool(sample.PacketLoss),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sample rows: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func formatNullableFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatNullableInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
