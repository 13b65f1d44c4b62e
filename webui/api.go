package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/metrics"
	"diagramgen/pipeline"
	"diagramgen/shutdown"
	"diagramgen/slides"
)

// Generator runs one pipeline request.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (*core.PipelineResult, error)
}

// OperationRunner tracks in-flight runs for graceful shutdown.
type OperationRunner interface {
	WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error
	ActiveOperations() []shutdown.Operation
	IsShuttingDown() bool
}

var (
	_ Generator       = (*pipeline.Orchestrator)(nil)
	_ OperationRunner = (*shutdown.Manager)(nil)
)

// Error bodies returned by the generate endpoint.
const (
	msgBriefRequired  = "Brief is required."
	msgInvalidBody    = "Request body must be a JSON object."
	msgPipelineFailed = "Pipeline failed. Check server logs."
	msgShuttingDown   = "Server is shutting down."
)

// maxBodyBytes bounds the generate request body.
const maxBodyBytes = 1 << 20

// API provides the JSON endpoints.
//
// Endpoints:
//   - GET  /api/slide-formats - slide format presets
//   - POST /api/generate      - run the pipeline
//   - GET  /api/runs          - recent run records and aggregates
//   - GET  /health            - service status
type API struct {
	gen    Generator
	ops    OperationRunner
	store  metrics.RunCollector
	config APIConfig
	logger *zap.Logger
}

// APIConfig configures the API.
type APIConfig struct {
	// OutputDir is the directory served under /output/
	OutputDir string
	// RunTimeout bounds a single generate request (0 = no bound)
	RunTimeout time.Duration
	// DefaultLimit is the default page size for /api/runs
	DefaultLimit int
	// MaxLimit caps the limit query parameter
	MaxLimit int
	Version  string
}

// NewAPI creates the API. ops and store may be nil.
func NewAPI(gen Generator, ops OperationRunner, store metrics.RunCollector, config APIConfig, logger *zap.Logger) *API {
	if config.DefaultLimit < 1 {
		config.DefaultLimit = 20
	}
	if config.MaxLimit < 1 {
		config.MaxLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		gen:    gen,
		ops:    ops,
		store:  store,
		config: config,
		logger: logger.Named("api"),
	}
}

// HandleSlideFormats handles GET /api/slide-formats.
func (api *API) HandleSlideFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	api.writeJSON(w, http.StatusOK, slides.Formats)
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Brief       string `json:"brief"`
	SlideFormat string `json:"slide_format"`
	MaxRounds   *int   `json:"max_rounds,omitempty"`
}

// GenerateResponse is the success body of POST /api/generate.
type GenerateResponse struct {
	RunID       string `json:"run_id"`
	ImageURL    string `json:"image_url"`
	RoundsTaken int    `json:"rounds_taken"`
	Approved    bool   `json:"approved"`
	RunDir      string `json:"run_dir"`
}

// HandleGenerate handles POST /api/generate. The run is tracked by the
// shutdown manager so a graceful stop waits for it.
func (api *API) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		api.writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	brief := strings.TrimSpace(body.Brief)
	if brief == "" {
		api.writeError(w, http.StatusBadRequest, msgBriefRequired)
		return
	}
	format := body.SlideFormat
	if format == "" {
		format = slides.FormatOriginal
	}
	if api.ops != nil && api.ops.IsShuttingDown() {
		api.writeError(w, http.StatusServiceUnavailable, msgShuttingDown)
		return
	}

	ctx := r.Context()
	if api.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.config.RunTimeout)
		defer cancel()
	}

	req := pipeline.Request{Brief: brief, MaxRounds: body.MaxRounds, SlideFormat: format}
	start := time.Now()
	result, err := api.run(ctx, req)

	switch {
	case errors.Is(err, shutdown.ErrTrackerClosed):
		api.writeError(w, http.StatusServiceUnavailable, msgShuttingDown)
		return
	case core.IsValidationError(err):
		api.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		api.logger.Error("Pipeline failed", zap.Error(err))
		api.record(req, nil, start, err)
		api.writeError(w, http.StatusInternalServerError, msgPipelineFailed)
		return
	}

	resp := GenerateResponse{
		RunID:       result.RunID,
		ImageURL:    ImageURL(api.config.OutputDir, result.ImagePath),
		RoundsTaken: result.RoundsTaken,
		Approved:    result.Approved,
		RunDir:      result.RunDir,
	}
	api.record(req, &resp, start, nil)
	api.writeJSON(w, http.StatusOK, resp)
}

func (api *API) run(ctx context.Context, req pipeline.Request) (*core.PipelineResult, error) {
	if api.ops == nil {
		return api.gen.Generate(ctx, req)
	}
	var result *core.PipelineResult
	err := api.ops.WrapOperation(ctx, "generate", func(ctx context.Context) error {
		var err error
		result, err = api.gen.Generate(ctx, req)
		return err
	})
	return result, err
}

func (api *API) record(req pipeline.Request, resp *GenerateResponse, start time.Time, err error) {
	if api.store == nil {
		return
	}
	end := time.Now()
	rec := metrics.RunRecord{
		Brief:       truncate(req.Brief, 80),
		SlideFormat: req.SlideFormat,
		Status:      metrics.RunStatusSuccess,
		StartTime:   start,
		EndTime:     end,
		Duration:    end.Sub(start),
	}
	if err != nil {
		rec.Status = metrics.RunStatusError
		rec.ErrorMsg = err.Error()
	}
	if resp != nil {
		rec.ID = resp.RunID
		rec.RoundsTaken = resp.RoundsTaken
		rec.Approved = resp.Approved
		rec.ImageURL = resp.ImageURL
	}
	api.store.RecordRun(rec)
}

// RunsResponse is the body of GET /api/runs.
type RunsResponse struct {
	Runs    []metrics.RunRecord `json:"runs"`
	Count   int                 `json:"count"`
	Limit   int                 `json:"limit"`
	Metrics metrics.RunMetrics  `json:"metrics"`
}

// HandleRuns handles GET /api/runs?limit=N.
func (api *API) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if api.store == nil {
		api.writeJSON(w, http.StatusOK, RunsResponse{Runs: []metrics.RunRecord{}})
		return
	}

	limit := api.config.DefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > api.config.MaxLimit {
		limit = api.config.MaxLimit
	}

	runs := api.store.GetRecentRuns(limit)
	api.writeJSON(w, http.StatusOK, RunsResponse{
		Runs:    runs,
		Count:   len(runs),
		Limit:   limit,
		Metrics: api.store.GetRunMetrics(),
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Health     string  `json:"health"`
	Version    string  `json:"version"`
	Uptime     string  `json:"uptime"`
	UptimeSecs float64 `json:"uptime_secs"`
	ActiveRuns int     `json:"active_runs"`
}

// HandleHealth handles GET /health. It answers 503 once shutdown begins.
func (api *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Health: metrics.SystemHealthRunning, Version: api.config.Version}
	if api.store != nil {
		status := api.store.GetSystemStatus()
		resp.Health = status.Health
		resp.Uptime = formatUptime(status.Uptime)
		resp.UptimeSecs = status.Uptime.Seconds()
	}

	code := http.StatusOK
	if api.ops != nil {
		resp.ActiveRuns = len(api.ops.ActiveOperations())
		if api.ops.IsShuttingDown() {
			resp.Health = metrics.SystemHealthStopped
			code = http.StatusServiceUnavailable
		}
	}
	api.writeJSON(w, code, resp)
}

// ImageURL maps a file under outputDir to its /output/ URL. It returns ""
// for paths outside outputDir.
func ImageURL(outputDir, path string) string {
	rel, err := filepath.Rel(outputDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return "/output/" + filepath.ToSlash(rel)
}

// formatUptime renders d with its two most significant units, e.g. "3h 12m".
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func (api *API) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		api.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (api *API) writeError(w http.ResponseWriter, status int, message string) {
	api.writeJSON(w, status, map[string]string{"error": message})
}
