// Package jobs wires the roll-up and retention periodic tasks onto
// their own cron instance, the way the teacher's internal/jobs package
// keeps aggregation and cleanup off the request-serving goroutines --
// here it is kept off the probe loops' goroutines too, so a slow
// roll-up query never delays a probe tick.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pingmedaddy/pingmedaddy/internal/metrics"
)

// Store is the slice of internal/store the cron jobs depend on.
type Store interface {
	RollupMinute(ctx context.Context, cutoff time.Time) error
	RollupHour(ctx context.Context, cutoff time.Time) error
	PurgeRaw(ctx context.Context, now time.Time) error
	PurgeMinute(ctx context.Context, now time.Time) error
	LatestBucket(ctx context.Context, table string) (time.Time, error)
}

// Scheduler wraps a dedicated cron instance for the roll-up/retention
// jobs, separate from the target probe-loop scheduler despite the
// similar name.
type Scheduler struct {
	cron  *cron.Cron
	store Store
}

func New(store Store) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		store: store,
	}
}

// Start registers and begins running every periodic job, matching the
// schedule intervals the continuous-aggregate policies specified:
// minute roll-up every 5 minutes, hour roll-up every hour, raw purge
// daily, minute-aggregate purge weekly.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("*/5 * * * *", s.rollupMinute); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 * * * *", s.rollupHour); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", s.purgeRaw); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 4 * * 0", s.purgeMinute); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) rollupMinute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	// end_offset: 1 minute -- only buckets strictly older than a minute
	// ago are settled; RollupMinute re-scans the 15 minutes before that.
	cutoff := time.Now().UTC().Add(-time.Minute)
	if err := s.store.RollupMinute(ctx, cutoff); err != nil {
		log.Printf("jobs: minute rollup failed: %v", err)
		return
	}
	s.recordLag(ctx, "ping_minute", "minute")
}

func (s *Scheduler) rollupHour() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	cutoff := time.Now().UTC().Add(-time.Hour)
	if err := s.store.RollupHour(ctx, cutoff); err != nil {
		log.Printf("jobs: hour rollup failed: %v", err)
		return
	}
	s.recordLag(ctx, "ping_hour", "hour")
}

func (s *Scheduler) purgeRaw() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.store.PurgeRaw(ctx, time.Now().UTC()); err != nil {
		log.Printf("jobs: raw retention purge failed: %v", err)
	}
}

func (s *Scheduler) purgeMinute() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.store.PurgeMinute(ctx, time.Now().UTC()); err != nil {
		log.Printf("jobs: minute retention purge failed: %v", err)
	}
}

func (s *Scheduler) recordLag(ctx context.Context, table, resolution string) {
	latest, err := s.store.LatestBucket(ctx, table)
	if err != nil || latest.IsZero() {
		return
	}
	lag := time.Since(latest).Seconds()
	metrics.RollupLagSeconds.WithLabelValues(resolution).Set(lag)
}
