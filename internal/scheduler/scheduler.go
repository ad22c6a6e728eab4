// Package scheduler runs one probe loop per active target, generalizing
// the teacher's per-monitor ticker-and-stop-channel job into the
// IDLE -> RUNNING -> (PAUSING -> IDLE | FAILED -> RUNNING) state
// machine: a target's loop is a goroutine, pause/delete deliver
// cancellation through context.Context, and every loop competes for
// slots in one global semaphore sized at ping_concurrency_limit.
package scheduler

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/metrics"
	"github.com/pingmedaddy/pingmedaddy/internal/models"
	"github.com/pingmedaddy/pingmedaddy/internal/probe"
)

// State names a target loop's position in the state machine.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePausing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePausing:
		return "pausing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProbeRunner is the slice of internal/probe the scheduler depends on.
type ProbeRunner interface {
	Ping(ctx context.Context, ip string) (probe.Result, error)
}

// SampleWriter is the slice of internal/store the scheduler depends on.
type SampleWriter interface {
	InsertSample(ctx context.Context, sample models.PingSample) error
}

// ShutdownDeadline bounds how long Shutdown waits for loops to reach
// IDLE before abandoning them.
const ShutdownDeadline = 5 * time.Second

// maxFailedBackoff caps the FAILED-state backoff regardless of a
// target's configured frequency.
const maxFailedBackoff = 60 * time.Second

type targetLoop struct {
	targetID int
	cancel   context.CancelFunc
	done     chan struct{}
	state    State
	stateMu  sync.Mutex
}

func (l *targetLoop) setState(s State) {
	l.stateMu.Lock()
	l.state = s
	l.stateMu.Unlock()
}

func (l *targetLoop) getState() State {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state
}

// Scheduler owns every target's loop handle behind a single mutex, the
// way the teacher's Executor owns its monitors map.
type Scheduler struct {
	prober ProbeRunner
	store  SampleWriter
	gate   chan struct{}

	mu    sync.Mutex
	loops map[int]*targetLoop
}

func New(prober ProbeRunner, store SampleWriter, concurrencyLimit int) *Scheduler {
	if concurrencyLimit <= 0 {
		concurrencyLimit = 50
	}
	return &Scheduler{
		prober: prober,
		store:  store,
		gate:   make(chan struct{}, concurrencyLimit),
		loops:  make(map[int]*targetLoop),
	}
}

// Boot enumerates active targets and launches one loop per target
// before the caller starts accepting HTTP traffic.
func (s *Scheduler) Boot(targets []models.MonitorTarget) {
	log.Printf("scheduler: booting %d active target loops", len(targets))
	for _, target := range targets {
		s.Start(target)
	}
}

// Start launches a loop for target, replacing any existing loop for
// the same id (used by Restart).
func (s *Scheduler) Start(target models.MonitorTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.loops[target.ID]; ok {
		s.stopLocked(existing)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &targetLoop{
		targetID: target.ID,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateRunning,
	}
	s.loops[target.ID] = loop

	frequency := time.Duration(target.Frequency) * time.Second
	go s.run(ctx, loop, target.ID, target.IP, frequency)
}

// Stop cancels and waits for the target's loop, up to ShutdownDeadline,
// then removes it from the map regardless of whether it exited in
// time -- an abandoned loop's subprocess is reclaimed on its own exit.
func (s *Scheduler) Stop(targetID int) {
	s.mu.Lock()
	loop, ok := s.loops[targetID]
	if ok {
		delete(s.loops, targetID)
	}
	s.mu.Unlock()

	if ok {
		s.stopLocked(loop)
	}
}

func (s *Scheduler) stopLocked(loop *targetLoop) {
	loop.setState(StatePausing)
	loop.cancel()
	select {
	case <-loop.done:
	case <-time.After(ShutdownDeadline):
		log.Printf("scheduler: target %d did not stop within %s, abandoning", loop.targetID, ShutdownDeadline)
	}
	loop.setState(StateIdle)
}

// Restart stops the existing loop (if any) and starts a fresh one,
// used when UpdateTarget changes an active target's frequency.
func (s *Scheduler) Restart(target models.MonitorTarget) {
	s.Stop(target.ID)
	s.Start(target)
}

// Shutdown cancels every loop and waits up to ShutdownDeadline total
// for all of them to reach IDLE.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	loops := make([]*targetLoop, 0, len(s.loops))
	for _, loop := range s.loops {
		loops = append(loops, loop)
	}
	s.loops = make(map[int]*targetLoop)
	s.mu.Unlock()

	deadline := time.Now().Add(ShutdownDeadline)
	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func(l *targetLoop) {
			defer wg.Done()
			l.setState(StatePausing)
			l.cancel()
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			select {
			case <-l.done:
			case <-time.After(remaining):
				log.Printf("scheduler: target %d abandoned at shutdown", l.targetID)
			}
			l.setState(StateIdle)
		}(loop)
	}
	wg.Wait()
}

// StateOf reports a target's current loop state; used by tests and
// diagnostics. Returns StateIdle for an unknown target.
func (s *Scheduler) StateOf(targetID int) State {
	s.mu.Lock()
	loop, ok := s.loops[targetID]
	s.mu.Unlock()
	if !ok {
		return StateIdle
	}
	return loop.getState()
}

// run is the probe-tick loop: acquire the gate, probe, write, release,
// sleep until the next deadline, with a missed-tick counter on overrun
// and a capped backoff on unexpected (non-cancellation) probe errors.
func (s *Scheduler) run(ctx context.Context, loop *targetLoop, targetID int, ip string, frequency time.Duration) {
	defer close(loop.done)

	targetLabel := strconv.Itoa(targetID)
	backoff := frequency
	if backoff <= 0 || backoff > maxFailedBackoff {
		backoff = maxFailedBackoff
	}

	for {
		if ctx.Err() != nil {
			return
		}

		tickStart := time.Now()

		select {
		case s.gate <- struct{}{}:
		case <-ctx.Done():
			return
		}
		metrics.ProbesInflight.Inc()
		result, err := s.prober.Ping(ctx, ip)
		<-s.gate
		metrics.ProbesInflight.Dec()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			loop.setState(StateFailed)
			log.Printf("scheduler: target %d probe error: %v, backing off %s", targetID, err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			loop.setState(StateRunning)
			continue
		}

		sample := models.PingSample{
			Time:       time.Now().UTC(),
			TargetID:   targetID,
			LatencyMs:  result.LatencyMs,
			Hops:       result.Hops,
			PacketLoss: result.PacketLoss,
		}
		if werr := s.store.InsertSample(ctx, sample); werr != nil {
			// retry once immediately; a second failure drops the
			// sample and the loop continues.
			if werr := s.store.InsertSample(ctx, sample); werr != nil {
				log.Printf("scheduler: target %d dropped sample after retry: %v", targetID, werr)
			}
		}

		nextDeadline := tickStart.Add(frequency)
		sleepDur := time.Until(nextDeadline)
		if sleepDur <= 0 {
			metrics.ProbesMissedTicks.WithLabelValues(targetLabel).Inc()
			continue
		}

		select {
		case <-time.After(sleepDur):
		case <-ctx.Done():
			return
		}
	}
}
