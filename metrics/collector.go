// Package metrics provides run history and Prometheus instrumentation for
// the diagram pipeline.
package metrics

// RunCollector collects finished runs for the dashboard API.
// Methods must be safe for concurrent use.
type RunCollector interface {
	// RecordRun logs a finished run.
	RecordRun(run RunRecord)

	// GetRunMetrics returns aggregated statistics.
	GetRunMetrics() RunMetrics

	// GetRecentRuns returns the N most recent runs, oldest first.
	GetRecentRuns(limit int) []RunRecord

	// GetSystemStatus returns the overall service health.
	GetSystemStatus() SystemStatus
}
