package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"diagramgen/core"
	"diagramgen/metrics"
	"diagramgen/pipeline"
	"diagramgen/shutdown"
)

type fakeGenerator struct {
	mu    sync.Mutex
	reqs  []pipeline.Request
	reply func(ctx context.Context, req pipeline.Request) (*core.PipelineResult, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, req pipeline.Request) (*core.PipelineResult, error) {
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.mu.Unlock()
	return g.reply(ctx, req)
}

func (g *fakeGenerator) calls() []pipeline.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]pipeline.Request(nil), g.reqs...)
}

func succeedWith(outputDir string, approved bool) func(context.Context, pipeline.Request) (*core.PipelineResult, error) {
	return func(_ context.Context, req pipeline.Request) (*core.PipelineResult, error) {
		runDir := filepath.Join(outputDir, "20260101_120000_abcd1234")
		return &core.PipelineResult{
			RunID:       "20260101_120000_abcd1234",
			ImageBytes:  []byte("png"),
			ImagePath:   filepath.Join(runDir, "final_"+req.SlideFormat+".png"),
			RoundsTaken: 2,
			Approved:    approved,
			RunDir:      runDir,
		}, nil
	}
}

func postGenerate(t *testing.T, api *API, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.HandleGenerate(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
}

func TestHandleGenerate_Success(t *testing.T) {
	outputDir := t.TempDir()
	gen := &fakeGenerator{reply: succeedWith(outputDir, true)}
	store := metrics.NewMetricsStore(metrics.DefaultStoreConfig(), time.Now())
	api := NewAPI(gen, nil, store, APIConfig{OutputDir: outputDir}, zaptest.NewLogger(t))

	rec := postGenerate(t, api, `{"brief":"  ETL pipeline from Postgres  ","slide_format":"hd_16_9"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	decodeBody(t, rec, &resp)
	if resp.ImageURL != "/output/20260101_120000_abcd1234/final_hd_16_9.png" {
		t.Errorf("image_url = %q", resp.ImageURL)
	}
	if resp.RoundsTaken != 2 || !resp.Approved {
		t.Errorf("unexpected response %+v", resp)
	}

	calls := gen.calls()
	if len(calls) != 1 {
		t.Fatalf("generator called %d times", len(calls))
	}
	if calls[0].Brief != "ETL pipeline from Postgres" {
		t.Errorf("brief = %q, want trimmed", calls[0].Brief)
	}

	runs := store.GetRecentRuns(10)
	if len(runs) != 1 || runs[0].Status != metrics.RunStatusSuccess || runs[0].ID != resp.RunID {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func TestHandleGenerate_DefaultsToOriginalFormat(t *testing.T) {
	outputDir := t.TempDir()
	gen := &fakeGenerator{reply: succeedWith(outputDir, false)}
	api := NewAPI(gen, nil, nil, APIConfig{OutputDir: outputDir}, nil)

	rec := postGenerate(t, api, `{"brief":"org chart"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := gen.calls()[0].SlideFormat; got != "original" {
		t.Errorf("slide format = %q, want original", got)
	}

	var resp GenerateResponse
	decodeBody(t, rec, &resp)
	if resp.Approved {
		t.Error("non-approval should be reported as approved=false with status 200")
	}
}

func TestHandleGenerate_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty brief", `{"brief":""}`, msgBriefRequired},
		{"whitespace brief", `{"brief":"   \n"}`, msgBriefRequired},
		{"missing brief", `{"slide_format":"hd_16_9"}`, msgBriefRequired},
		{"not json", `brief=hello`, msgInvalidBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: succeedWith(t.TempDir(), true)}
			api := NewAPI(gen, nil, nil, APIConfig{}, nil)

			rec := postGenerate(t, api, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %q, want %q", body["error"], tt.wantMsg)
			}
			if len(gen.calls()) != 0 {
				t.Error("generator must not run for a bad request")
			}
		})
	}
}

func TestHandleGenerate_ValidationErrorFromPipeline(t *testing.T) {
	gen := &fakeGenerator{reply: func(context.Context, pipeline.Request) (*core.PipelineResult, error) {
		return nil, core.NewValidationError("max_rounds", "must be between 1 and 10, got 0")
	}}
	api := NewAPI(gen, nil, nil, APIConfig{}, nil)

	rec := postGenerate(t, api, `{"brief":"x","max_rounds":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if !strings.Contains(body["error"], "max_rounds") {
		t.Errorf("error = %q", body["error"])
	}
	if r := gen.calls()[0].MaxRounds; r == nil || *r != 0 {
		t.Errorf("max_rounds not forwarded: %v", r)
	}
}

func TestHandleGenerate_PipelineFailure(t *testing.T) {
	gen := &fakeGenerator{reply: func(context.Context, pipeline.Request) (*core.PipelineResult, error) {
		return nil, fmt.Errorf("pipeline: round 1: rendering: %w", core.ErrProvider)
	}}
	store := metrics.NewMetricsStore(metrics.DefaultStoreConfig(), time.Now())
	api := NewAPI(gen, nil, store, APIConfig{}, zaptest.NewLogger(t))

	rec := postGenerate(t, api, `{"brief":"x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] != msgPipelineFailed {
		t.Errorf("error = %q", body["error"])
	}

	runs := store.GetRecentRuns(1)
	if len(runs) != 1 || runs[0].Status != metrics.RunStatusError || runs[0].ErrorMsg == "" {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func TestHandleGenerate_RunTimeout(t *testing.T) {
	outputDir := t.TempDir()
	gen := &fakeGenerator{reply: func(ctx context.Context, req pipeline.Request) (*core.PipelineResult, error) {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > 30*time.Second {
			return nil, errors.New("run context carries no deadline")
		}
		return succeedWith(outputDir, true)(ctx, req)
	}}
	api := NewAPI(gen, nil, nil, APIConfig{OutputDir: outputDir, RunTimeout: 30 * time.Second}, nil)

	if rec := postGenerate(t, api, `{"brief":"x"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGenerate_ShuttingDown(t *testing.T) {
	gen := &fakeGenerator{reply: succeedWith(t.TempDir(), true)}
	mgr := shutdown.NewManager(zaptest.NewLogger(t))
	if err := mgr.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	api := NewAPI(gen, mgr, nil, APIConfig{}, nil)

	rec := postGenerate(t, api, `{"brief":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if len(gen.calls()) != 0 {
		t.Error("generator must not run during shutdown")
	}
}

func TestHandleGenerate_TrackedByShutdownManager(t *testing.T) {
	mgr := shutdown.NewManager(zaptest.NewLogger(t))
	var active int
	gen := &fakeGenerator{reply: func(ctx context.Context, req pipeline.Request) (*core.PipelineResult, error) {
		active = len(mgr.ActiveOperations())
		return succeedWith(t.TempDir(), true)(ctx, req)
	}}
	api := NewAPI(gen, mgr, nil, APIConfig{}, nil)

	if rec := postGenerate(t, api, `{"brief":"x"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if active != 1 {
		t.Errorf("active operations during run = %d, want 1", active)
	}
	if n := len(mgr.ActiveOperations()); n != 0 {
		t.Errorf("active operations after run = %d, want 0", n)
	}
}

func TestHandleGenerate_MethodNotAllowed(t *testing.T) {
	api := NewAPI(&fakeGenerator{}, nil, nil, APIConfig{}, nil)
	rec := httptest.NewRecorder()
	api.HandleGenerate(rec, httptest.NewRequest(http.MethodGet, "/api/generate", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleSlideFormats(t *testing.T) {
	api := NewAPI(&fakeGenerator{}, nil, nil, APIConfig{}, nil)
	rec := httptest.NewRecorder()
	api.HandleSlideFormats(rec, httptest.NewRequest(http.MethodGet, "/api/slide-formats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]struct {
		Label  string `json:"label"`
		Width  *int   `json:"width"`
		Height *int   `json:"height"`
	}
	decodeBody(t, rec, &body)

	if len(body) != 4 {
		t.Errorf("got %d formats, want 4", len(body))
	}
	if orig := body["original"]; orig.Width != nil || orig.Height != nil {
		t.Errorf("original should have null dimensions, got %+v", orig)
	}
	if hd := body["hd_16_9"]; hd.Width == nil || *hd.Width != 1920 || *hd.Height != 1080 {
		t.Errorf("hd_16_9 = %+v", hd)
	}
}

func TestHandleRuns(t *testing.T) {
	store := metrics.NewMetricsStore(metrics.DefaultStoreConfig(), time.Now())
	for i := 0; i < 5; i++ {
		store.RecordRun(metrics.RunRecord{ID: fmt.Sprintf("run-%d", i), Status: metrics.RunStatusSuccess, RoundsTaken: 1, SlideFormat: "original"})
	}
	api := NewAPI(&fakeGenerator{}, nil, store, APIConfig{DefaultLimit: 2, MaxLimit: 3}, nil)

	tests := []struct {
		query     string
		wantCount int
	}{
		{"", 2},
		{"?limit=1", 1},
		{"?limit=50", 3},
		{"?limit=bogus", 2},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.HandleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs"+tt.query, nil))

			var resp RunsResponse
			decodeBody(t, rec, &resp)
			if resp.Count != tt.wantCount || len(resp.Runs) != tt.wantCount {
				t.Errorf("count = %d, want %d", resp.Count, tt.wantCount)
			}
			if resp.Metrics.TotalRuns != 5 {
				t.Errorf("total_runs = %d, want 5", resp.Metrics.TotalRuns)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	store := metrics.NewMetricsStore(metrics.StoreConfig{Version: "1.2.3"}, time.Now().Add(-90*time.Minute))
	mgr := shutdown.NewManager(zaptest.NewLogger(t))
	api := NewAPI(&fakeGenerator{}, mgr, store, APIConfig{Version: "1.2.3"}, nil)

	rec := httptest.NewRecorder()
	api.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Health != metrics.SystemHealthRunning || resp.Version != "1.2.3" || resp.Uptime != "1h 30m" {
		t.Errorf("unexpected health %+v", resp)
	}

	mgr.Shutdown()
	rec = httptest.NewRecorder()
	api.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status during shutdown = %d, want 503", rec.Code)
	}
}

func TestImageURL(t *testing.T) {
	out := filepath.Join(string(filepath.Separator), "srv", "output")
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(out, "run1", "final_original.png"), "/output/run1/final_original.png"},
		{filepath.Join(out, "..", "etc", "passwd"), ""},
		{filepath.Join(string(filepath.Separator), "elsewhere", "x.png"), ""},
	}
	for _, tt := range tests {
		if got := ImageURL(out, tt.path); got != tt.want {
			t.Errorf("ImageURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{3*time.Hour + 12*time.Minute, "3h 12m"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
