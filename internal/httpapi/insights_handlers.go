package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pingmedaddy/pingmedaddy/internal/analytics"
)

// InsightsEngine is the slice of internal/analytics the HTTP layer
// depends on.
type InsightsEngine interface {
	ComputeInsights(ctx context.Context, targetID, windowMinutes, bucketSeconds int) (*analytics.Insights, error)
}

func HandleGetInsights(engine InsightsEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTargetID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid target id")
			return
		}

		windowMinutes := parseIntParam(r, "window_minutes", 0)
		bucketSeconds := parseIntParam(r, "bucket_seconds", 0)

		insights, err := engine.ComputeInsights(r.Context(), id, windowMinutes, bucketSeconds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, insights)
	}
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
