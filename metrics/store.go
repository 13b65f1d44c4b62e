package metrics

import (
	"sync"
	"time"
)

// MetricsStore is an in-memory run history with running aggregates.
//
// Usage:
//
//	store := NewMetricsStore(DefaultStoreConfig(), time.Now())
//	store.RecordRun(run)
//	recent := store.GetRecentRuns(20)
type MetricsStore struct {
	mu sync.RWMutex

	// Run history ring
	runHistory []RunRecord
	runCap     int
	runHead    int
	runSize    int

	totalRuns     int64
	totalSuccess  int64
	totalErrors   int64
	totalApproved int64
	totalRounds   int64
	byFormat      map[string]*formatStats

	startTime time.Time
	version   string
	stopped   bool
}

type formatStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// StoreConfig configures the MetricsStore behavior.
type StoreConfig struct {
	// RunHistoryCapacity is the max number of runs to retain in history
	RunHistoryCapacity int
	// Version is the application version string
	Version string
}

// DefaultStoreConfig returns a default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		RunHistoryCapacity: 100,
		Version:            "0.0.0",
	}
}

// NewMetricsStore creates a MetricsStore. startTime is used for uptime.
func NewMetricsStore(config StoreConfig, startTime time.Time) *MetricsStore {
	cap := config.RunHistoryCapacity
	if cap < 1 {
		cap = 100
	}

	return &MetricsStore{
		runHistory: make([]RunRecord, cap),
		runCap:     cap,
		byFormat:   make(map[string]*formatStats),
		startTime:  startTime,
		version:    config.Version,
	}
}

// RecordRun logs a finished run.
func (s *MetricsStore) RecordRun(run RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runHistory[s.runHead] = run
	s.runHead = (s.runHead + 1) % s.runCap
	if s.runSize < s.runCap {
		s.runSize++
	}

	s.totalRuns++
	switch run.Status {
	case RunStatusSuccess:
		s.totalSuccess++
		s.totalRounds += int64(run.RoundsTaken)
		if run.Approved {
			s.totalApproved++
		}
	case RunStatusError:
		s.totalErrors++
	}

	stats, ok := s.byFormat[run.SlideFormat]
	if !ok {
		stats = &formatStats{}
		s.byFormat[run.SlideFormat] = stats
	}
	stats.count++
	if run.Status == RunStatusSuccess {
		stats.successCount++
	}
	stats.totalDuration += run.Duration
}

// GetRunMetrics returns aggregated run statistics.
func (s *MetricsStore) GetRunMetrics() RunMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := RunMetrics{
		TotalRuns:     s.totalRuns,
		TotalSuccess:  s.totalSuccess,
		TotalErrors:   s.totalErrors,
		TotalApproved: s.totalApproved,
		ByFormat:      make(map[string]*FormatMetrics),
	}
	if s.totalSuccess > 0 {
		m.ApprovalRate = float64(s.totalApproved) / float64(s.totalSuccess) * 100
		m.AvgRounds = float64(s.totalRounds) / float64(s.totalSuccess)
	}

	for format, stats := range s.byFormat {
		fm := &FormatMetrics{Count: stats.count}
		if stats.count > 0 {
			fm.SuccessRate = float64(stats.successCount) / float64(stats.count) * 100
			fm.AvgDuration = stats.totalDuration / time.Duration(stats.count)
		}
		m.ByFormat[format] = fm
	}
	return m
}

// GetRecentRuns returns the N most recent runs, oldest first.
// If limit exceeds available runs, all available are returned.
func (s *MetricsStore) GetRecentRuns(limit int) []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.runSize == 0 {
		return []RunRecord{}
	}
	if limit > s.runSize {
		limit = s.runSize
	}

	result := make([]RunRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.runHead - limit + i + s.runCap) % s.runCap
		result[i] = s.runHistory[idx]
	}
	return result
}

// MarkStopped reports the service as stopped in GetSystemStatus.
func (s *MetricsStore) MarkStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// GetSystemStatus returns the overall service health. Health is "error"
// when every one of the last five recorded runs failed.
func (s *MetricsStore) GetSystemStatus() SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := SystemHealthRunning
	switch {
	case s.stopped:
		health = SystemHealthStopped
	case s.recentAllFailed(5):
		health = SystemHealthError
	}

	return SystemStatus{
		Health:    health,
		Version:   s.version,
		Uptime:    time.Since(s.startTime),
		LastCheck: time.Now(),
	}
}

func (s *MetricsStore) recentAllFailed(n int) bool {
	if s.runSize < n {
		return false
	}
	for i := 1; i <= n; i++ {
		idx := (s.runHead - i + s.runCap) % s.runCap
		if s.runHistory[idx].Status != RunStatusError {
			return false
		}
	}
	return true
}

// Verify MetricsStore implements RunCollector interface
var _ RunCollector = (*MetricsStore)(nil)
