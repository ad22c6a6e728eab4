package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pingmedaddy/pingmedaddy/internal/models"
)

// settledCacheTTL is used for the long-lived cache entry on a bucket
// range that can no longer change. inflightCacheTTL is the short TTL
// used for a range that includes the still-materializing bucket.
const (
	settledCacheTTL  = 24 * time.Hour
	inflightCacheTTL = 30 * time.Second

	// rollupLag approximates how far behind "now" a bucket must end to
	// be considered settled, matching the roll-up schedule interval.
	rollupLag = 5 * time.Minute
)

func aggregateCacheKey(targetID int, resolution models.Resolution, from, to time.Time) string {
	return fmt.Sprintf("pingmedaddy:agg:%s:%d:%d:%d", resolution, targetID, from.Unix(), to.Unix())
}

// ConnectCache opens a Redis client for the read-through cache. A blank
// url disables the cache entirely by returning a nil client.
func ConnectCache(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *Store) getCachedAggregate(ctx context.Context, targetID int, resolution models.Resolution, from, to time.Time) ([]models.AggregateRow, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, aggregateCacheKey(targetID, resolution, from, to)).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []models.AggregateRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Store) setCachedAggregate(ctx context.Context, targetID int, resolution models.Resolution, from, to time.Time, rows []models.AggregateRow) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	ttl := inflightCacheTTL
	if time.Since(to) > rollupLag {
		ttl = settledCacheTTL
	}
	_ = s.cache.Set(ctx, aggregateCacheKey(targetID, resolution, from, to), raw, ttl).Err()
}
