package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/pingmedaddy/pingmedaddy/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("httpapi: failed to encode response: %v", err)
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeError maps the sentinel error taxonomy onto HTTP status codes,
// per the §7 taxonomy: DuplicateTarget/InvalidIP/InvalidFrequency are
// 400s alongside malformed-body errors, not a distinct 4xx each.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrDuplicateTarget):
		writeDetail(w, http.StatusBadRequest, "target already exists")
	case errors.Is(err, core.ErrInvalidIP):
		writeDetail(w, http.StatusBadRequest, "invalid ip address")
	case errors.Is(err, core.ErrInvalidFrequency):
		writeDetail(w, http.StatusBadRequest, "frequency out of range")
	case errors.Is(err, core.ErrToolUnavailable):
		writeDetail(w, http.StatusServiceUnavailable, "probe tool unavailable")
	case errors.Is(err, core.ErrToolTimeout):
		writeDetail(w, http.StatusServiceUnavailable, "probe tool timed out")
	case errors.Is(err, core.ErrStoreUnavailable):
		writeDetail(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		log.Printf("httpapi: internal error: %v", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
