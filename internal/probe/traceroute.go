package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/core"
)

const (
	DefaultMaxHops = 20
	DefaultQueries = 1
)

var (
	hopLineRe = regexp.MustCompile(`^\s*(\d+)\s+(.*)$`)
	hopIPRe   = regexp.MustCompile(`\(([0-9a-fA-F:.]+)\)`)
	hopRTTRe  = regexp.MustCompile(`([0-9]+\.?[0-9]*)\s*ms`)
)

// Tracer runs a traceroute against an IP by shelling out to the platform
// binary (traceroute, or tracert on Windows).
type Tracer struct {
	// Binary overrides the resolved binary name; empty means resolve
	// from the OS.
	Binary  string
	Timeout time.Duration
	MaxHops int
	Queries int
}

func NewTracer(binary string, timeout time.Duration) *Tracer {
	return &Tracer{
		Binary:  binary,
		Timeout: timeout,
		MaxHops: DefaultMaxHops,
		Queries: DefaultQueries,
	}
}

func (t *Tracer) resolveBinary() string {
	if t.Binary != "" {
		return t.Binary
	}
	if runtime.GOOS == "windows" {
		return "tracert"
	}
	return "traceroute"
}

func (t *Tracer) buildArgs(ip string) []string {
	maxHops := t.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if runtime.GOOS == "windows" {
		return []string{"-h", strconv.Itoa(maxHops), ip}
	}
	queries := t.Queries
	if queries <= 0 {
		queries = DefaultQueries
	}
	return []string{"-q", strconv.Itoa(queries), "-m", strconv.Itoa(maxHops), ip}
}

// Trace runs one traceroute against ip. A missing binary surfaces as
// core.ErrToolUnavailable and a run that exceeds Timeout surfaces as
// core.ErrToolTimeout -- both distinct from a successful run whose hops
// are individually timed out, which is represented in the hop list
// itself via IsTimeout.
func (t *Tracer) Trace(ctx context.Context, ip string) (TraceResult, error) {
	return t.trace(ctx, ip, t.MaxHops, t.Timeout)
}

// TraceWithOptions runs a traceroute overriding this Tracer's default
// max hop count and timeout for a single call, used by the on-demand
// HTTP endpoint where a caller may request a shorter/longer run than
// the configured default.
func (t *Tracer) TraceWithOptions(ctx context.Context, ip string, maxHops int, timeout time.Duration) (TraceResult, error) {
	if maxHops <= 0 {
		maxHops = t.MaxHops
	}
	if timeout <= 0 {
		timeout = t.Timeout
	}
	return t.trace(ctx, ip, maxHops, timeout)
}

func (t *Tracer) trace(ctx context.Context, ip string, maxHops int, timeout time.Duration) (TraceResult, error) {
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	override := &Tracer{Binary: t.Binary, Timeout: timeout, MaxHops: maxHops, Queries: t.Queries}
	cmd := exec.CommandContext(runCtx, override.resolveBinary(), override.buildArgs(ip)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	finished := time.Now()

	if runCtx.Err() != nil {
		return TraceResult{}, core.ErrToolTimeout
	}
	if errors.Is(err, exec.ErrNotFound) {
		return TraceResult{}, core.ErrToolUnavailable
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// traceroute/tracert return 1 when some hops are unreachable;
		// that is a normal partial result, not a tool failure.
		if code := exitErr.ExitCode(); code != 0 && code != 1 {
			return TraceResult{}, fmt.Errorf("%w: %s", core.ErrToolUnavailable, stderr.String())
		}
	}

	hops := parseTraceOutput(stdout.String())
	return TraceResult{
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: float64(finished.Sub(started).Microseconds()) / 1000.0,
		Hops:       hops,
	}, nil
}

func parseTraceOutput(out string) []TraceHop {
	var hops []TraceHop
	for _, line := range strings.Split(out, "\n") {
		m := hopLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		hopNum, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rest := m[2]
		hop := TraceHop{Hop: hopNum, Raw: strings.TrimSpace(line)}

		if strings.Contains(rest, "*") && !strings.ContainsAny(rest, "0123456789") {
			hop.IsTimeout = true
			hops = append(hops, hop)
			continue
		}

		fields := strings.Fields(rest)
		var host, ip string
		if len(fields) > 0 && fields[0] != "*" {
			host = fields[0]
		}
		if ipm := hopIPRe.FindStringSubmatch(rest); ipm != nil {
			ip = ipm[1]
		} else if host != "" && isIPLiteral(host) {
			ip = host
		}
		if rttm := hopRTTRe.FindStringSubmatch(rest); rttm != nil {
			if rtt, err := strconv.ParseFloat(rttm[1], 64); err == nil {
				hop.RTTMs = &rtt
			}
		}
		if hop.RTTMs == nil {
			// No RTT sample for this hop; host/ip are withheld too so a
			// timed-out hop is uniformly null across the three fields.
			hop.IsTimeout = true
		} else {
			hop.Host = host
			hop.IP = ip
		}
		hops = append(hops, hop)
	}
	return hops
}

func isIPLiteral(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ':' {
			return false
		}
	}
	return s != ""
}
