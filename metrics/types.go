// Package metrics provides pure data types for run history and dashboard status.
package metrics

import "time"

// RunRecord represents a single pipeline run.
type RunRecord struct {
	// ID is the run directory name
	ID string `json:"id"`

	// Brief is a shortened copy of the request brief
	Brief string `json:"brief"`

	// SlideFormat is the requested slide format key
	SlideFormat string `json:"slide_format"`

	// Status indicates the outcome: "success", "error", "processing"
	Status string `json:"status"`

	// RoundsTaken is the number of refinement rounds executed
	RoundsTaken int `json:"rounds_taken"`

	// Approved is true when the critic signed off
	Approved bool `json:"approved"`

	// ImageURL is the served path of the final image
	ImageURL string `json:"image_url,omitempty"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`

	// ErrorMsg contains error details if Status is "error"
	ErrorMsg string `json:"error_msg,omitempty"`
}

// SystemStatus represents the overall service health.
type SystemStatus struct {
	// Health indicates the system state: "running", "error", "stopped"
	Health string `json:"health"`

	Version   string        `json:"version"`
	Uptime    time.Duration `json:"uptime"`
	LastCheck time.Time     `json:"last_check"`
}

// RunMetrics represents aggregated run statistics.
type RunMetrics struct {
	TotalRuns     int64 `json:"total_runs"`
	TotalSuccess  int64 `json:"total_success"`
	TotalErrors   int64 `json:"total_errors"`
	TotalApproved int64 `json:"total_approved"`

	// ApprovalRate is the share of successful runs the critic approved (0-100)
	ApprovalRate float64 `json:"approval_rate"`

	// AvgRounds is the mean rounds taken over successful runs
	AvgRounds float64 `json:"avg_rounds"`

	// ByFormat contains per slide format statistics
	ByFormat map[string]*FormatMetrics `json:"by_format"`
}

// FormatMetrics represents statistics for one slide format.
type FormatMetrics struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Status constants for RunRecord
const (
	RunStatusSuccess    = "success"
	RunStatusError      = "error"
	RunStatusProcessing = "processing"
)

// Health constants for SystemStatus
const (
	SystemHealthRunning = "running"
	SystemHealthError   = "error"
	SystemHealthStopped = "stopped"
)
