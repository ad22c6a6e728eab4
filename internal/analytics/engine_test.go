package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/models"
)

type fakeStore struct {
	raw  []models.PingSample
	aggs []models.AggregateRow
}

func (f *fakeStore) QueryRaw(ctx context.Context, targetID int, from, to time.Time, limit int) ([]models.PingSample, error) {
	return f.raw, nil
}

func (f *fakeStore) QueryAggregate(ctx context.Context, targetID int, resolution models.Resolution, from, to time.Time) ([]models.AggregateRow, error) {
	return f.aggs, nil
}

type fakeRegistry struct {
	target *models.MonitorTarget
}

func (f *fakeRegistry) GetTarget(ctx context.Context, id int) (*models.MonitorTarget, error) {
	return f.target, nil
}

func ptrFloat(v float64) *float64 { return &v }

func TestComputeInsights_EmptyWindow(t *testing.T) {
	store := &fakeStore{}
	registry := &fakeRegistry{target: &models.MonitorTarget{ID: 1, IP: "10.0.0.1", CreatedAt: time.Now()}}
	engine := New(store, registry)

	insights, err := engine.ComputeInsights(context.Background(), 1, 60, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights.SampleCount != 0 {
		t.Errorf("expected 0 samples, got %d", insights.SampleCount)
	}
	if insights.UptimePercent != nil {
		t.Errorf("expected nil uptime on empty window, got %v", *insights.UptimePercent)
	}
	if insights.LatencyAvgMs != nil {
		t.Errorf("expected nil latency avg on empty window")
	}
	if len(insights.Timeline) != 0 {
		t.Errorf("expected empty timeline, got %v", insights.Timeline)
	}
}

func TestComputeInsights_RawResolutionExactPercentiles(t *testing.T) {
	now := time.Now().UTC()
	samples := []models.PingSample{
		{Time: now.Add(-3 * time.Second), TargetID: 1, LatencyMs: ptrFloat(10), PacketLoss: false},
		{Time: now.Add(-2 * time.Second), TargetID: 1, LatencyMs: ptrFloat(20), PacketLoss: false},
		{Time: now.Add(-1 * time.Second), TargetID: 1, PacketLoss: true},
	}
	store := &fakeStore{raw: samples}
	registry := &fakeRegistry{target: &models.MonitorTarget{ID: 1, IP: "10.0.0.1", CreatedAt: now}}
	engine := New(store, registry)

	insights, err := engine.ComputeInsights(context.Background(), 1, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights.Resolution != models.ResolutionRaw {
		t.Fatalf("expected raw resolution, got %s", insights.Resolution)
	}
	if insights.PercentileMode != PercentileExact {
		t.Errorf("expected exact percentile mode, got %s", insights.PercentileMode)
	}
	if insights.SampleCount != 3 || insights.LossCount != 1 {
		t.Errorf("counts wrong: samples=%d loss=%d", insights.SampleCount, insights.LossCount)
	}
	wantUptime := 100.0 * 2.0 / 3.0
	if insights.UptimePercent == nil || !floatsClose(*insights.UptimePercent, wantUptime, 0.01) {
		t.Errorf("uptime wrong: %v, want %v", insights.UptimePercent, wantUptime)
	}
	if insights.LatencyAvgMs == nil || !floatsClose(*insights.LatencyAvgMs, 15, 0.01) {
		t.Errorf("avg latency wrong: %v", insights.LatencyAvgMs)
	}
}

func TestComputeInsights_AggregateApproximatePercentiles(t *testing.T) {
	now := time.Now().UTC()
	rows := []models.AggregateRow{
		{Bucket: now.Add(-2 * time.Hour), TargetID: 1, AvgLatency: ptrFloat(10), MinLatency: ptrFloat(5), MaxLatency: ptrFloat(15), Samples: 60, LossCount: 0},
		{Bucket: now.Add(-1 * time.Hour), TargetID: 1, AvgLatency: ptrFloat(20), MinLatency: ptrFloat(10), MaxLatency: ptrFloat(30), Samples: 60, LossCount: 6},
	}
	store := &fakeStore{aggs: rows}
	registry := &fakeRegistry{target: &models.MonitorTarget{ID: 1, IP: "10.0.0.1", CreatedAt: now}}
	engine := New(store, registry)

	// A one-hour bucket forces the hour resolution.
	insights, err := engine.ComputeInsights(context.Background(), 1, 1440, 3600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights.Resolution != models.ResolutionHour {
		t.Fatalf("expected hour resolution, got %s", insights.Resolution)
	}
	if insights.PercentileMode != PercentileApproximate {
		t.Errorf("expected approximate percentile mode, got %s", insights.PercentileMode)
	}
	if insights.SampleCount != 120 || insights.LossCount != 6 {
		t.Errorf("counts wrong: samples=%d loss=%d", insights.SampleCount, insights.LossCount)
	}
	if insights.LatencyMaxMs == nil || *insights.LatencyMaxMs != 30 {
		t.Errorf("max latency wrong: %v", insights.LatencyMaxMs)
	}
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	if got := percentile(sorted, 0.5); got == nil || !floatsClose(*got, 25, 0.01) {
		t.Errorf("p50 = %v, want 25", got)
	}
	if got := percentile(sorted, 0); got == nil || *got != 10 {
		t.Errorf("p0 = %v, want 10", got)
	}
	if got := percentile(sorted, 1); got == nil || *got != 40 {
		t.Errorf("p100 = %v, want 40", got)
	}
}

func floatsClose(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
