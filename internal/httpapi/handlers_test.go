package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pingmedaddy/pingmedaddy/internal/analytics"
	"github.com/pingmedaddy/pingmedaddy/internal/core"
	"github.com/pingmedaddy/pingmedaddy/internal/models"
	"github.com/pingmedaddy/pingmedaddy/internal/probe"
	"github.com/pingmedaddy/pingmedaddy/internal/registry"
)

type fakeRegistry struct {
	targets     map[int]*models.MonitorTarget
	createErr   error
	createdNext *models.MonitorTarget
}

func (f *fakeRegistry) CreateTarget(ctx context.Context, ip string, frequency int, url, notes string) (*models.MonitorTarget, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createdNext, nil
}

func (f *fakeRegistry) UpdateTarget(ctx context.Context, id int, patch registry.TargetPatch) (*models.MonitorTarget, error) {
	return nil, nil
}

func (f *fakeRegistry) ListTargets(ctx context.Context) ([]models.MonitorTarget, error) {
	return nil, nil
}

func (f *fakeRegistry) GetTarget(ctx context.Context, id int) (*models.MonitorTarget, error) {
	target, ok := f.targets[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return target, nil
}

func (f *fakeRegistry) PauseTarget(ctx context.Context, id int) error  { return nil }
func (f *fakeRegistry) ResumeTarget(ctx context.Context, id int) error { return nil }
func (f *fakeRegistry) DeleteTarget(ctx context.Context, id int) error { return nil }

func (f *fakeRegistry) ListEvents(ctx context.Context, targetID int) ([]models.EventLog, error) {
	return nil, nil
}

func withTargetID(id string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Get("/targets/{id}", h)
	return r
}

func withTargetIDPost(id string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Post("/targets/{id}/traceroute", h)
	return r
}

func TestHandleGetTarget_NotFound(t *testing.T) {
	reg := &fakeRegistry{targets: map[int]*models.MonitorTarget{}}
	req := httptest.NewRequest(http.MethodGet, "/targets/42", nil)
	rec := httptest.NewRecorder()

	withTargetID("42", HandleGetTarget(reg)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleGetTarget_Found(t *testing.T) {
	reg := &fakeRegistry{targets: map[int]*models.MonitorTarget{
		7: {ID: 7, IP: "10.0.0.7", Frequency: 5},
	}}
	req := httptest.NewRequest(http.MethodGet, "/targets/7", nil)
	rec := httptest.NewRecorder()

	withTargetID("7", HandleGetTarget(reg)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got models.MonitorTarget
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.IP != "10.0.0.7" {
		t.Errorf("expected ip 10.0.0.7, got %s", got.IP)
	}
}

type fakeEngine struct {
	insights *analytics.Insights
}

func (f *fakeEngine) ComputeInsights(ctx context.Context, targetID, windowMinutes, bucketSeconds int) (*analytics.Insights, error) {
	return f.insights, nil
}

func TestHandleGetInsights_ReturnsComputedInsights(t *testing.T) {
	engine := &fakeEngine{insights: &analytics.Insights{TargetID: 3, SampleCount: 10}}
	req := httptest.NewRequest(http.MethodGet, "/targets/3/insights?window_minutes=60", nil)
	rec := httptest.NewRecorder()

	r := chi.NewRouter()
	r.Get("/targets/{id}/insights", HandleGetInsights(engine))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sample_count":10`) {
		t.Errorf("expected sample_count in body, got %s", rec.Body.String())
	}
}

func TestHandleCreateTarget_ReturnsIDAndMessage(t *testing.T) {
	reg := &fakeRegistry{createdNext: &models.MonitorTarget{ID: 1, IP: "192.168.1.254"}}
	body := strings.NewReader(`{"ip":"192.168.1.254","frequency":1}`)
	req := httptest.NewRequest(http.MethodPost, "/targets/", body)
	rec := httptest.NewRecorder()

	HandleCreateTarget(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got targetActionResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("expected id 1, got %d", got.ID)
	}
	if got.Message == "" {
		t.Error("expected a non-empty message")
	}
}

func TestHandleCreateTarget_DuplicateMapsTo400WithDetailBody(t *testing.T) {
	reg := &fakeRegistry{createErr: core.ErrDuplicateTarget}
	body := strings.NewReader(`{"ip":"192.168.1.254","frequency":1}`)
	req := httptest.NewRequest(http.MethodPost, "/targets/", body)
	rec := httptest.NewRecorder()

	HandleCreateTarget(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var got errorBody
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Detail == "" {
		t.Error("expected a non-empty detail")
	}
}

type fakeTracer struct {
	result     probe.TraceResult
	err        error
	gotMaxHops int
	gotTimeout time.Duration
}

func (f *fakeTracer) TraceWithOptions(ctx context.Context, ip string, maxHops int, timeout time.Duration) (probe.TraceResult, error) {
	f.gotMaxHops = maxHops
	f.gotTimeout = timeout
	return f.result, f.err
}

func TestHandleTraceroute_ParsesQueryParamsAndReturnsResult(t *testing.T) {
	reg := &fakeRegistry{targets: map[int]*models.MonitorTarget{
		9: {ID: 9, IP: "8.8.8.8"},
	}}
	tracer := &fakeTracer{result: probe.TraceResult{DurationMs: 12.5}}
	req := httptest.NewRequest(http.MethodPost, "/targets/9/traceroute?max_hops=5&timeout=10", nil)
	rec := httptest.NewRecorder()

	withTargetIDPost("9", HandleTraceroute(reg, tracer)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if tracer.gotMaxHops != 5 {
		t.Errorf("expected max_hops 5, got %d", tracer.gotMaxHops)
	}
	if tracer.gotTimeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %s", tracer.gotTimeout)
	}
}

func TestHandleTraceroute_UnknownTargetMapsTo404(t *testing.T) {
	reg := &fakeRegistry{targets: map[int]*models.MonitorTarget{}}
	tracer := &fakeTracer{}
	req := httptest.NewRequest(http.MethodPost, "/targets/404/traceroute", nil)
	rec := httptest.NewRecorder()

	withTargetIDPost("404", HandleTraceroute(reg, tracer)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
