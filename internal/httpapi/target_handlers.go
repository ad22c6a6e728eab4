package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pingmedaddy/pingmedaddy/internal/models"
	"github.com/pingmedaddy/pingmedaddy/internal/registry"
)

// TargetRegistry is the slice of internal/registry the HTTP layer
// depends on.
type TargetRegistry interface {
	CreateTarget(ctx context.Context, ip string, frequency int, url, notes string) (*models.MonitorTarget, error)
	UpdateTarget(ctx context.Context, id int, patch registry.TargetPatch) (*models.MonitorTarget, error)
	ListTargets(ctx context.Context) ([]models.MonitorTarget, error)
	GetTarget(ctx context.Context, id int) (*models.MonitorTarget, error)
	PauseTarget(ctx context.Context, id int) error
	ResumeTarget(ctx context.Context, id int) error
	DeleteTarget(ctx context.Context, id int) error
	ListEvents(ctx context.Context, targetID int) ([]models.EventLog, error)
}

type createTargetRequest struct {
	IP        string `json:"ip"`
	Frequency int    `json:"frequency"`
	URL       string `json:"url,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type targetActionResponse struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

func HandleCreateTarget(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTargetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}

		target, err := reg.CreateTarget(r.Context(), req.IP, req.Frequency, req.URL, req.Notes)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, targetActionResponse{
			ID:      target.ID,
			Message: "Started tracking " + target.IP,
		})
	}
}

func HandleListTargets(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targets, err := reg.ListTargets(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, targets)
	}
}

func HandleGetTarget(reg TargetRegistry) http.HandlerFunc {
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
		writeJSON(w, http.StatusOK, target)
	}
}

func HandleUpdateTarget(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTargetID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid target id")
			return
		}
		var patch registry.TargetPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		target, err := reg.UpdateTarget(r.Context(), id, patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, target)
	}
}

func HandlePauseTarget(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTargetID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid target id")
			return
		}
		if err := reg.PauseTarget(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, targetActionResponse{ID: id, Message: "Tracking paused"})
	}
}

func HandleResumeTarget(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTargetID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid target id")
			return
		}
		if err := reg.ResumeTarget(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, targetActionResponse{ID: id, Message: "Tracking resumed"})
	}
}

func HandleDeleteTarget(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTargetID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid target id")
			return
		}
		if err := reg.DeleteTarget(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, targetActionResponse{ID: id, Message: "Target deleted"})
	}
}

func HandleListEvents(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTargetID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid target id")
			return
		}
		events, err := reg.ListEvents(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func parseTargetID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}
