// Package probe executes a single ping or traceroute against a target IP
// by invoking the OS tool and parsing its stdout. It never fails the
// caller on transport problems -- those become packet_loss results --
// but does surface ToolUnavailable/ToolTimeout for traceroute, where the
// spec requires the caller to see a distinct failure mode.
package probe

import "time"

// Result is the outcome of a single ping.
type Result struct {
	LatencyMs  *float64
	Hops       *int
	PacketLoss bool
}

// TraceHop is one line of a traceroute run.
type TraceHop struct {
	Hop       int
	Host      string
	IP        string
	RTTMs     *float64
	IsTimeout bool
	Raw       string
}

// TraceResult is the outcome of a traceroute run.
type TraceResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMs float64
	Hops       []TraceHop
}
