package probe

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

var (
	latencyRe = regexp.MustCompile(`time[=<]([\d.]+)`)
	ttlRe     = regexp.MustCompile(`(?i)ttl=(\d+)`)
)

// Pinger runs a single ICMP echo against an IP by shelling out to the OS
// ping binary, exactly the way a shell operator would run it by hand.
// It never returns an error for a probe that simply failed -- a timeout,
// an unreachable host, a non-zero exit -- those all become a Result with
// PacketLoss set. Only a context that is already done when Ping is
// called propagates as an error.
type Pinger struct {
	// Timeout bounds how long a single ping subprocess may run before
	// it is killed and treated as packet loss.
	Timeout time.Duration
}

func NewPinger(timeout time.Duration) *Pinger {
	return &Pinger{Timeout: timeout}
}

// Ping runs one ping against ip and classifies the result. It only
// returns an error if ctx is already done when called.
func (p *Pinger) Ping(ctx context.Context, ip string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "ping", pingArgs(ip)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	// fping/ping-style tools exit non-zero on packet loss; that is an
	// expected outcome here, not a Go error.
	_ = cmd.Run()

	if runCtx.Err() != nil {
		return Result{PacketLoss: true}, nil
	}

	return parsePingOutput(stdout.String()), nil
}

func pingArgs(ip string) []string {
	if runtime.GOOS == "windows" {
		return []string{"-n", "1", ip}
	}
	return []string{"-c", "1", ip}
}

// parsePingOutput extracts latency and TTL from a single ping's stdout
// and infers hop count from the observed TTL against the nearest
// conventional starting TTL (64, 128, 255), mirroring how the original
// tool guessed path length without a traceroute.
func parsePingOutput(out string) Result {
	m := latencyRe.FindStringSubmatch(out)
	if m == nil {
		return Result{PacketLoss: true}
	}
	latency, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Result{PacketLoss: true}
	}

	// A successful reply always yields a hop count, even when the
	// platform's ping output omits the ttl= token -- defaulting to 64
	// mirrors the original's `ttl = int(...) if ttl_match else 64` and
	// keeps packet_loss=false rows from ever carrying a null hops.
	ttl := 64
	if tm := ttlRe.FindStringSubmatch(out); tm != nil {
		if parsed, err := strconv.Atoi(tm[1]); err == nil {
			ttl = parsed
		}
	}
	hops := initialTTL(ttl) - ttl
	if hops < 0 {
		hops = 0
	}

	return Result{LatencyMs: &latency, Hops: &hops}
}

func initialTTL(observed int) int {
	switch {
	case observed <= 64:
		return 64
	case observed <= 128:
		return 128
	default:
		return 255
	}
}
