// Package shutdown coordinates graceful shutdown of the HTTP service:
// in-flight runs are allowed to finish, then cleanup steps run in priority
// order.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// CleanupFunc is a shutdown step. ctx carries the remaining shutdown budget.
type CleanupFunc func(ctx context.Context) error

type cleanupStep struct {
	name     string
	priority int
	fn       CleanupFunc
}

// Manager tracks in-flight runs, listens for SIGINT/SIGTERM and executes
// registered cleanup steps.
//
// Usage:
//
//	manager := shutdown.NewManager(logger, shutdown.WithTimeout(cfg.RunTimeout))
//	manager.Register("http-server", 10, shutdown.StopHTTPServer(srv))
//	manager.Start()
//
//	err := manager.WrapOperation(ctx, "generate", func(ctx context.Context) error {
//	    _, err := orchestrator.Generate(ctx, req)
//	    return err
//	})
//
//	manager.Wait()
//	manager.Shutdown()
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool
	steps    []cleanupStep
	signals  int

	forceAfter int
	onForce    func()

	ctx    context.Context
	cancel context.CancelFunc

	tracker *OperationTracker
	sigChan chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets how long Shutdown waits for in-flight runs.
// Default is 60 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithForceExit replaces the action taken on the second signal
// (os.Exit(1) by default).
func WithForceExit(fn func()) ManagerOption {
	return func(m *Manager) {
		m.onForce = fn
	}
}

// NewManager creates a Manager.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:     logger.Named("shutdown"),
		timeout:    60 * time.Second,
		forceAfter: 2,
		ctx:        ctx,
		cancel:     cancel,
		tracker:    NewOperationTracker(),
		sigChan:    make(chan os.Signal, 1),
	}
	m.onForce = func() {
		m.logger.Warn("Received second signal, forcing immediate shutdown")
		os.Exit(1)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled when shutdown is requested.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup step. Lower priority runs first; steps with equal
// priority run in registration order.
func (m *Manager) Register(name string, priority int, fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return
	}
	m.steps = append(m.steps, cleanupStep{name: name, priority: priority, fn: fn})
	m.logger.Debug("Registered cleanup step", zap.String("name", name), zap.Int("priority", priority))
}

// RegisteredHandlers returns step names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	steps := m.orderedSteps()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	return names
}

func (m *Manager) orderedSteps() []cleanupStep {
	m.mu.Lock()
	steps := make([]cleanupStep, len(m.steps))
	copy(steps, m.steps)
	m.mu.Unlock()

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].priority < steps[j].priority })
	return steps
}

// Start listens for SIGINT and SIGTERM. The first signal cancels Context;
// the second forces exit. Repeated calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
	m.logger.Info("Shutdown manager started, listening for signals")
}

func (m *Manager) handleSignal(sig os.Signal) {
	m.mu.Lock()
	m.signals++
	count := m.signals
	m.mu.Unlock()

	if count == 1 {
		m.logger.Info("Received shutdown signal, initiating graceful shutdown",
			zap.String("signal", sig.String()),
			zap.Int("in_flight_runs", m.tracker.ActiveCount()))
		m.cancel()
	}
	if count >= m.forceAfter && m.onForce != nil {
		m.onForce()
	}
}

// Trigger requests shutdown without a signal.
func (m *Manager) Trigger() {
	m.cancel()
}

// Wait blocks until shutdown is requested.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// WrapOperation runs fn as a tracked in-flight operation. Once shutdown has
// started, fn is not run and ErrTrackerClosed is returned. fn keeps its own
// ctx so a run already underway is allowed to finish.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	id, ok := m.tracker.Start(name)
	if !ok {
		m.logger.Debug("Operation rejected, shutting down", zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done(id)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// ActiveOperations lists in-flight operations.
func (m *Manager) ActiveOperations() []Operation {
	return m.tracker.Active()
}

// IsShuttingDown reports whether shutdown was requested or has begun.
func (m *Manager) IsShuttingDown() bool {
	return m.ctx.Err() != nil || m.tracker.IsClosed()
}

// Shutdown stops accepting runs, waits for in-flight ones up to the
// timeout, then runs every cleanup step with the remaining budget (at least
// one second). Errors from steps are joined. Idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	m.cancel()
	begin := time.Now()
	m.tracker.Close()

	if n := m.tracker.ActiveCount(); n > 0 {
		m.logger.Info("Waiting for in-flight runs", zap.Int("active_count", n), zap.Duration("timeout", m.timeout))
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("Timed out waiting for in-flight runs",
			zap.Duration("waited", time.Since(begin)),
			zap.Int("remaining", m.tracker.ActiveCount()))
	}

	remaining := max(m.timeout-time.Since(begin), time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	var errs []error
	for _, step := range m.orderedSteps() {
		stepStart := time.Now()
		if err := step.fn(ctx); err != nil {
			m.logger.Error("Cleanup step failed", zap.String("name", step.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		m.logger.Debug("Cleanup step finished", zap.String("name", step.name), zap.Duration("elapsed", time.Since(stepStart)))
	}

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %d cleanup steps failed: %w", len(errs), errors.Join(errs...))
	}
	m.logger.Info("Graceful shutdown completed", zap.Duration("duration", time.Since(begin)))
	return nil
}
