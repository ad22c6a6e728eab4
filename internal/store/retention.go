package store

import (
	"context"
	"fmt"
	"time"
)

// retention durations follow spec's three-level table: raw rows are
// kept only long enough for the minute roll-up to catch up, minute
// aggregates are kept for a month, and hour aggregates are kept
// indefinitely (no purge here).
const (
	RawRetention    = 3 * 24 * time.Hour
	MinuteRetention = 30 * 24 * time.Hour
)

// PurgeRaw deletes ping_logs rows older than the raw retention window.
func (s *Store) PurgeRaw(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-RawRetention)
	if err := s.db.WithContext(ctx).Exec("DELETE FROM ping_logs WHERE time < ?", cutoff).Error; err != nil {
		return fmt.Errorf("purge raw samples: %w", err)
	}
	return nil
}

// PurgeMinute deletes ping_minute rows older than the minute retention
// window, once they're no longer needed for hour roll-up.
func (s *Store) PurgeMinute(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-MinuteRetention)
	if err := s.db.WithContext(ctx).Exec("DELETE FROM ping_minute WHERE bucket < ?", cutoff).Error; err != nil {
		return fmt.Errorf("purge minute aggregates: %w", err)
	}
	return nil
}
