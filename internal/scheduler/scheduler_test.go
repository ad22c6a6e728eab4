package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/models"
	"github.com/pingmedaddy/pingmedaddy/internal/probe"
)

type slowProber struct {
	delay    time.Duration
	inflight int32
	peak     int32
}

func (p *slowProber) Ping(ctx context.Context, ip string) (probe.Result, error) {
	n := atomic.AddInt32(&p.inflight, 1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, n) {
			break
		}
	}
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
	}
	atomic.AddInt32(&p.inflight, -1)
	latency := 1.0
	return probe.Result{LatencyMs: &latency}, nil
}

type countingStore struct {
	mu    sync.Mutex
	count int
}

func (s *countingStore) InsertSample(ctx context.Context, sample models.PingSample) error {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

func TestScheduler_RespectsConcurrencyLimit(t *testing.T) {
	prober := &slowProber{delay: 50 * time.Millisecond}
	store := &countingStore{}
	sched := New(prober, store, 2)

	for i := 1; i <= 6; i++ {
		sched.Start(models.MonitorTarget{ID: i, IP: "127.0.0.1", Frequency: 1})
	}

	time.Sleep(200 * time.Millisecond)
	sched.Shutdown()

	if atomic.LoadInt32(&prober.peak) > 2 {
		t.Errorf("observed peak concurrency %d exceeds limit of 2", prober.peak)
	}
}

func TestScheduler_StopWaitsForLoopToIdle(t *testing.T) {
	prober := &slowProber{delay: 10 * time.Millisecond}
	store := &countingStore{}
	sched := New(prober, store, 5)

	sched.Start(models.MonitorTarget{ID: 1, IP: "127.0.0.1", Frequency: 1})
	time.Sleep(20 * time.Millisecond)
	sched.Stop(1)

	if got := sched.StateOf(1); got != StateIdle {
		t.Errorf("expected idle state after stop, got %s", got)
	}
}

func TestScheduler_InsertsSamplesOverTime(t *testing.T) {
	prober := &slowProber{delay: 5 * time.Millisecond}
	store := &countingStore{}
	sched := New(prober, store, 5)

	sched.Start(models.MonitorTarget{ID: 1, IP: "127.0.0.1", Frequency: 1})
	time.Sleep(120 * time.Millisecond)
	sched.Stop(1)

	store.mu.Lock()
	count := store.count
	store.mu.Unlock()

	if count == 0 {
		t.Error("expected at least one sample to be inserted")
	}
}
