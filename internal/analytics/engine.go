// Package analytics computes the Insights payload: uptime, latency
// statistics and a timeline, resolved against whichever aggregate level
// (raw, minute or hour) best serves the requested window, the way
// compute_target_insights did for a single raw-only resolution before
// roll-up levels existed.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/models"
)

const (
	defaultWindowMinutes = 60
	defaultBucketSeconds = 60
	maxRawSamples        = 5000

	rawRetention    = 3 * 24 * time.Hour
	minuteRetention = 30 * 24 * time.Hour
)

// PercentileMode tells the caller whether p50/p95/p99 were computed
// exactly from raw samples or approximated from coarser aggregates.
type PercentileMode string

const (
	PercentileExact       PercentileMode = "exact"
	PercentileApproximate PercentileMode = "approximate"
)

// TimelineBucket is one point on the insights timeline.
type TimelineBucket struct {
	Bucket       time.Time `json:"bucket"`
	AvgLatencyMs *float64  `json:"avg_latency_ms"`
	MinLatencyMs *float64  `json:"min_latency_ms"`
	MaxLatencyMs *float64  `json:"max_latency_ms"`
	LossRate     float64   `json:"loss_rate"`
	SampleCount  int       `json:"sample_count"`
}

// Insights is the full computed response for GET .../insights.
type Insights struct {
	TargetID      int               `json:"target_id"`
	TargetIP      string            `json:"target_ip"`
	CreatedAt     time.Time         `json:"created_at"`
	WindowMinutes int               `json:"window_minutes"`
	WindowStart   time.Time         `json:"window_start"`
	WindowEnd     time.Time         `json:"window_end"`
	Resolution    models.Resolution `json:"resolution"`

	SampleCount   int      `json:"sample_count"`
	LossCount     int      `json:"loss_count"`
	UptimePercent *float64 `json:"uptime_percent"`

	LatencyAvgMs *float64 `json:"latency_avg_ms"`
	LatencyMinMs *float64 `json:"latency_min_ms"`
	LatencyMaxMs *float64 `json:"latency_max_ms"`
	LatencyP50Ms *float64 `json:"latency_p50_ms"`
	LatencyP95Ms *float64 `json:"latency_p95_ms"`
	LatencyP99Ms *float64 `json:"latency_p99_ms"`

	PercentileMode PercentileMode   `json:"percentile_mode"`
	Timeline       []TimelineBucket `json:"timeline"`
}

// SampleStore is the slice of the store's read contract the engine
// needs: raw samples for exact statistics, and aggregate rows when the
// window is too wide (or too old) for raw retention.
type SampleStore interface {
	QueryRaw(ctx context.Context, targetID int, from, to time.Time, limit int) ([]models.PingSample, error)
	QueryAggregate(ctx context.Context, targetID int, resolution models.Resolution, from, to time.Time) ([]models.AggregateRow, error)
}

// TargetLookup resolves the target metadata the response embeds.
type TargetLookup interface {
	GetTarget(ctx context.Context, id int) (*models.MonitorTarget, error)
}

type Engine struct {
	store    SampleStore
	registry TargetLookup
}

func New(store SampleStore, registry TargetLookup) *Engine {
	return &Engine{store: store, registry: registry}
}

// ComputeInsights implements the five-step algorithm: resolution
// selection, fetch, uptime/loss arithmetic, latency statistics
// (including percentile mode selection), and timeline bucketing.
func (e *Engine) ComputeInsights(ctx context.Context, targetID int, windowMinutes, bucketSeconds int) (*Insights, error) {
	target, err := e.registry.GetTarget(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("lookup target: %w", err)
	}

	if windowMinutes < 1 {
		windowMinutes = defaultWindowMinutes
	}
	if windowMinutes > 1440 {
		windowMinutes = 1440
	}
	if bucketSeconds < 1 {
		bucketSeconds = defaultBucketSeconds
	}

	windowEnd := time.Now().UTC()
	windowStart := windowEnd.Add(-time.Duration(windowMinutes) * time.Minute)

	resolution := selectResolution(windowStart, windowEnd, bucketSeconds)

	insights := &Insights{
		TargetID:      target.ID,
		TargetIP:      target.IP,
		CreatedAt:     target.CreatedAt,
		WindowMinutes: windowMinutes,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		Resolution:    resolution,
	}

	if resolution == models.ResolutionRaw {
		samples, err := e.store.QueryRaw(ctx, targetID, windowStart, windowEnd, maxRawSamples)
		if err != nil {
			return nil, fmt.Errorf("query raw samples: %w", err)
		}
		computeFromRaw(insights, samples, bucketSeconds)
		return insights, nil
	}

	rows, err := e.store.QueryAggregate(ctx, targetID, resolution, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("query aggregate rows: %w", err)
	}
	computeFromAggregate(insights, rows)
	return insights, nil
}

// selectResolution picks raw, minute or hour per the window width and
// requested bucket granularity, matching spec's retention-aware rule.
func selectResolution(start, end time.Time, bucketSeconds int) models.Resolution {
	windowWidth := end.Sub(start)
	if windowWidth <= rawRetention && bucketSeconds < 60 {
		return models.ResolutionRaw
	}
	if bucketSeconds < 3600 && windowWidth <= minuteRetention {
		return models.ResolutionMinute
	}
	return models.ResolutionHour
}

func computeFromRaw(insights *Insights, samples []models.PingSample, bucketSeconds int) {
	insights.SampleCount = len(samples)

	var lossCount int
	var validLatencies []float64
	timelineMap := map[int64]*bucketAccumulator{}

	for _, s := range samples {
		if s.PacketLoss {
			lossCount++
		} else if s.LatencyMs != nil {
			validLatencies = append(validLatencies, *s.LatencyMs)
		}

		floored := floorToBucket(s.Time, bucketSeconds)
		key := floored.Unix()
		acc, ok := timelineMap[key]
		if !ok {
			acc = &bucketAccumulator{bucket: floored}
			timelineMap[key] = acc
		}
		acc.sampleCount++
		if s.PacketLoss || s.LatencyMs == nil {
			acc.lossCount++
		} else {
			acc.latencies = append(acc.latencies, *s.LatencyMs)
		}
	}

	insights.LossCount = lossCount
	sort.Float64s(validLatencies)

	if insights.SampleCount > 0 {
		uptime := 100 * (1 - float64(lossCount)/float64(insights.SampleCount))
		insights.UptimePercent = &uptime
	}

	if len(validLatencies) > 0 {
		avg := mean(validLatencies)
		min := validLatencies[0]
		max := validLatencies[len(validLatencies)-1]
		insights.LatencyAvgMs = &avg
		insights.LatencyMinMs = &min
		insights.LatencyMaxMs = &max
		insights.LatencyP50Ms = percentile(validLatencies, 0.5)
		insights.LatencyP95Ms = percentile(validLatencies, 0.95)
		insights.LatencyP99Ms = percentile(validLatencies, 0.99)
	}
	insights.PercentileMode = PercentileExact

	insights.Timeline = buildTimeline(timelineMap)
}

func computeFromAggregate(insights *Insights, rows []models.AggregateRow) {
	var sampleCount, lossCount int
	var weightedLatencySum float64
	var weightedSamples int
	var minLatency, maxLatency *float64
	var avgLatencies []float64 // one per bucket, used for the p95/p99 approximation

	timeline := make([]TimelineBucket, 0, len(rows))

	for _, r := range rows {
		sampleCount += r.Samples
		lossCount += r.LossCount

		nonLossSamples := r.Samples - r.LossCount
		if r.AvgLatency != nil && nonLossSamples > 0 {
			weightedLatencySum += *r.AvgLatency * float64(nonLossSamples)
			weightedSamples += nonLossSamples
			avgLatencies = append(avgLatencies, *r.AvgLatency)
		}
		if r.MinLatency != nil && (minLatency == nil || *r.MinLatency < *minLatency) {
			minLatency = r.MinLatency
		}
		if r.MaxLatency != nil && (maxLatency == nil || *r.MaxLatency > *maxLatency) {
			maxLatency = r.MaxLatency
		}

		lossRate := 0.0
		if r.Samples > 0 {
			lossRate = float64(r.LossCount) / float64(r.Samples)
		}
		timeline = append(timeline, TimelineBucket{
			Bucket:       r.Bucket,
			AvgLatencyMs: r.AvgLatency,
			MinLatencyMs: r.MinLatency,
			MaxLatencyMs: r.MaxLatency,
			LossRate:     lossRate,
			SampleCount:  r.Samples,
		})
	}

	insights.SampleCount = sampleCount
	insights.LossCount = lossCount
	if sampleCount > 0 {
		uptime := 100 * (1 - float64(lossCount)/float64(sampleCount))
		insights.UptimePercent = &uptime
	}

	if weightedSamples > 0 {
		avg := weightedLatencySum / float64(weightedSamples)
		insights.LatencyAvgMs = &avg
		insights.LatencyMinMs = minLatency
		insights.LatencyMaxMs = maxLatency

		// p50 approximates to the overall weighted average; p95
		// approximates to the highest average among the top decile of
		// buckets by average latency; p99 approximates to the overall
		// observed max. None of these require distributional data the
		// aggregate levels don't retain.
		insights.LatencyP50Ms = &avg
		insights.LatencyP95Ms = topDecileMax(avgLatencies)
		insights.LatencyP99Ms = maxLatency
	}
	insights.PercentileMode = PercentileApproximate

	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Bucket.Before(timeline[j].Bucket) })
	insights.Timeline = timeline
}

func topDecileMax(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	decileCount := int(math.Ceil(float64(len(sorted)) * 0.1))
	if decileCount < 1 {
		decileCount = 1
	}
	top := sorted[len(sorted)-decileCount:]
	max := top[len(top)-1]
	return &max
}

type bucketAccumulator struct {
	bucket      time.Time
	latencies   []float64
	lossCount   int
	sampleCount int
}

func buildTimeline(m map[int64]*bucketAccumulator) []TimelineBucket {
	timeline := make([]TimelineBucket, 0, len(m))
	for _, acc := range m {
		var avg, min, max *float64
		if len(acc.latencies) > 0 {
			a := mean(acc.latencies)
			mn := acc.latencies[0]
			mx := acc.latencies[0]
			for _, v := range acc.latencies {
				if v < mn {
					mn = v
				}
				if v > mx {
					mx = v
				}
			}
			avg, min, max = &a, &mn, &mx
		}
		lossRate := 0.0
		if acc.sampleCount > 0 {
			lossRate = float64(acc.lossCount) / float64(acc.sampleCount)
		}
		timeline = append(timeline, TimelineBucket{
			Bucket:       acc.bucket,
			AvgLatencyMs: avg,
			MinLatencyMs: min,
			MaxLatencyMs: max,
			LossRate:     lossRate,
			SampleCount:  acc.sampleCount,
		})
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Bucket.Before(timeline[j].Bucket) })
	return timeline
}

func floorToBucket(t time.Time, bucketSeconds int) time.Time {
	seconds := t.Unix()
	floored := seconds - (seconds % int64(bucketSeconds))
	return time.Unix(floored, 0).UTC()
}

// percentile performs linear interpolation over a sorted slice, the
// same formula compute_target_insights used against raw samples.
func percentile(sorted []float64, p float64) *float64 {
	if len(sorted) == 0 {
		return nil
	}
	if p <= 0 {
		v := sorted[0]
		return &v
	}
	if p >= 1 {
		v := sorted[len(sorted)-1]
		return &v
	}
	k := float64(len(sorted)-1) * p
	lowerIndex := int(k)
	upperIndex := lowerIndex + 1
	if upperIndex > len(sorted)-1 {
		upperIndex = len(sorted) - 1
	}
	weight := k - float64(lowerIndex)
	v := sorted[lowerIndex] + (sorted[upperIndex]-sorted[lowerIndex])*weight
	return &v
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
