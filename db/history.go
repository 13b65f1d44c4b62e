package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"diagramgen/metrics"
)

// RunHistory is a metrics.MetricsStore that also persists every recorded
// run. Reads are served from memory; the store is seeded from the database
// at startup.
type RunHistory struct {
	*metrics.MetricsStore

	repo   *Repository
	writer *AsyncWriter[metrics.RunRecord]
	logger *zap.Logger
}

var _ metrics.RunCollector = (*RunHistory)(nil)

// NewRunHistory loads up to seedLimit stored runs into store and starts the
// background writer.
func NewRunHistory(ctx context.Context, store *metrics.MetricsStore, repo *Repository, seedLimit int, logger *zap.Logger) (*RunHistory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("run_history")

	runs, err := repo.RecentRuns(ctx, seedLimit)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		store.RecordRun(run)
	}

	h := &RunHistory{
		MetricsStore: store,
		repo:         repo,
		logger:       logger,
	}
	h.writer = NewAsyncWriter(func(run metrics.RunRecord) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return repo.InsertRun(ctx, run)
	}, DefaultChannelCapacity, logger)
	h.writer.Start()

	logger.Info("Run history loaded", zap.Int("runs", len(runs)), zap.String("path", repo.db.Path()))
	return h, nil
}

// RecordRun updates the in-memory store and queues the database insert.
func (h *RunHistory) RecordRun(run metrics.RunRecord) {
	h.MetricsStore.RecordRun(run)
	if !h.writer.Write(run) {
		h.logger.Warn("Run history queue full, run not persisted", zap.String("run_id", run.ID))
	}
}

// Close flushes queued inserts within ctx's deadline.
func (h *RunHistory) Close(ctx context.Context) error {
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !h.writer.Stop(timeout) {
		h.logger.Warn("Run history flush timed out", zap.Int("pending", h.writer.Pending()))
		return context.DeadlineExceeded
	}
	return nil
}
