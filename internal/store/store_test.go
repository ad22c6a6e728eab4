package store

import (
	"context"
	"testing"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/models"
)

func TestAggregateTable(t *testing.T) {
	cases := []struct {
		resolution models.Resolution
		want       string
	}{
		{models.ResolutionMinute, "ping_minute"},
		{models.ResolutionHour, "ping_hour"},
		{models.ResolutionRaw, ""},
		{models.ResolutionAuto, ""},
	}
	for _, c := range cases {
		if got := aggregateTable(c.resolution); got != c.want {
			t.Errorf("aggregateTable(%q) = %q, want %q", c.resolution, got, c.want)
		}
	}
}

func TestAggregateCacheKeyIsStableForSameWindow(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	a := aggregateCacheKey(7, models.ResolutionMinute, from, to)
	b := aggregateCacheKey(7, models.ResolutionMinute, from, to)
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}

	c := aggregateCacheKey(7, models.ResolutionHour, from, to)
	if a == c {
		t.Fatalf("expected keys to differ across resolutions, both were %q", a)
	}
}

func TestFormatNullableFloatAndInt(t *testing.T) {
	if got := formatNullableFloat(nil); got != "" {
		t.Errorf("formatNullableFloat(nil) = %q, want empty", got)
	}
	v := 12.5
	if got := formatNullableFloat(&v); got != "12.5" {
		t.Errorf("formatNullableFloat(&12.5) = %q, want 12.5", got)
	}
	if got := formatNullableInt(nil); got != "" {
		t.Errorf("formatNullableInt(nil) = %q, want empty", got)
	}
	n := 4
	if got := formatNullableInt(&n); got != "4" {
		t.Errorf("formatNullableInt(&4) = %q, want 4", got)
	}
}

// A nil cache (as when REDIS_URL is unset) must degrade to a plain
// cache miss rather than panicking, on both the read and write paths.
func TestStoreDegradesGracefullyWithoutCache(t *testing.T) {
	s := &Store{cache: nil}
	ctx := context.Background()
	from := time.Now().Add(-time.Hour)
	to := time.Now()

	if _, ok := s.getCachedAggregate(ctx, 1, models.ResolutionMinute, from, to); ok {
		t.Fatal("expected cache miss with nil cache")
	}
	s.setCachedAggregate(ctx, 1, models.ResolutionMinute, from, to, []models.AggregateRow{{TargetID: 1}})
}

func TestRetentionWindowsOrdering(t *testing.T) {
	if RawRetention >= MinuteRetention {
		t.Fatalf("expected raw retention (%s) to be shorter than minute retention (%s)", RawRetention, MinuteRetention)
	}
}
