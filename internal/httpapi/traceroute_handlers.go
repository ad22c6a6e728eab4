package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pingmedaddy/pingmedaddy/internal/probe"
)

const (
	defaultTracerouteTimeout = 25 * time.Second
	maxTracerouteTimeout     = 60 * time.Second
)

// Tracer is the slice of internal/probe the HTTP layer depends on.
type Tracer interface {
	TraceWithOptions(ctx context.Context, ip string, maxHops int, timeout time.Duration) (probe.TraceResult, error)
}

// HandleTraceroute resolves the target's IP through the registry, then
// runs a traceroute on demand -- this is a point-in-time diagnostic, not
// part of the periodic probe loop, so it is never cached.
func HandleTraceroute(reg TargetRegistry, tracer Tracer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTargetID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid target id")
			return
		}

		target, err := reg.GetTarget(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		maxHops := parseIntParam(r, "max_hops", 0)
		timeout := parseTracerouteTimeout(r)

		result, err := tracer.TraceWithOptions(r.Context(), target.IP, maxHops, timeout)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func parseTracerouteTimeout(r *http.Request) time.Duration {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return defaultTracerouteTimeout
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return defaultTracerouteTimeout
	}
	timeout := time.Duration(seconds) * time.Second
	if timeout > maxTracerouteTimeout {
		return maxTracerouteTimeout
	}
	return timeout
}
