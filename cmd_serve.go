package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"diagramgen/core"
	"diagramgen/db"
	"diagramgen/logging"
	"diagramgen/metrics"
	"diagramgen/shutdown"
	"diagramgen/webui"
)

// runHistoryCapacity is how many runs /api/runs can return.
const runHistoryCapacity = 200

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Long: `Serve the generator page, the JSON API, generated images under /output/,
Prometheus metrics on /metrics and a websocket progress feed on /ws.

The first SIGINT/SIGTERM stops accepting runs and waits up to RUN_TIMEOUT
for in-flight runs; a second signal exits immediately.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadEnvironment(rootFlags.envFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr := shutdown.NewManager(logger.Zap(), shutdown.WithTimeout(cfg.RunTimeout))
	mgr.Start()
	return serve(cmd.Context(), cfg, logger, mgr)
}

// serve runs the HTTP server and progress hub until mgr's context ends,
// then performs the graceful shutdown.
func serve(parent context.Context, cfg *core.Config, logger *logging.Logger, mgr *shutdown.Manager) error {
	zl := logger.Zap()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := webui.NewProgressHub(webui.DefaultHubConfig(), zl)
	store := metrics.NewMetricsStore(metrics.StoreConfig{RunHistoryCapacity: runHistoryCapacity, Version: core.Version}, time.Now())

	a, err := newApp(cfg, zl, metrics.NewPipelineCollector(reg), hub)
	if err != nil {
		return err
	}

	var runs metrics.RunCollector = store
	if history := openRunHistory(parent, cfg, store, zl); history != nil {
		runs = history
		mgr.Register("run-history", 25, history.Close)
	}

	api := webui.NewAPI(a.orchestrator, mgr, runs, webui.APIConfig{
		OutputDir:  cfg.OutputDir,
		RunTimeout: cfg.RunTimeout,
		Version:    core.Version,
	}, zl)

	srvConfig := webui.DefaultServerConfig()
	srvConfig.Host = cfg.Host
	srvConfig.Port = cfg.Port
	srvConfig.OutputDir = cfg.OutputDir
	srv, err := webui.NewServer(srvConfig, webui.Handlers{
		API:        api,
		Hub:        hub,
		StyleGuide: a.guide,
		Gatherer:   reg,
	}, zl)
	if err != nil {
		return err
	}

	mgr.Register("http-server", 10, shutdown.StopHTTPServer(srv.HTTPServer()))
	mgr.Register("metrics-store", 20, func(context.Context) error {
		store.MarkStopped()
		return nil
	})
	mgr.Register("empty-run-dirs", 30, shutdown.RemoveEmptyRunDirs(zl, cfg.OutputDir))
	mgr.Register("logger", 100, shutdown.SyncLogger(logger))

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(mgr.Context(), cancel)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return hub.Start(gctx) })

	zl.Info("Diagram generator ready",
		zap.String("addr", srv.Addr()),
		zap.String("image_model", a.images.Model()),
		zap.String("image_provider", a.images.Kind().String()))

	runErr := g.Wait()
	if runErr != nil {
		zl.Error("Server stopped with error", zap.Error(runErr))
	}
	return errors.Join(runErr, mgr.Shutdown())
}

// historyDB pairs the persisted collector with its connection so shutdown
// flushes queued inserts before closing the file.
type historyDB struct {
	*db.RunHistory
	database *db.Database
}

func (h *historyDB) Close(ctx context.Context) error {
	return errors.Join(h.RunHistory.Close(ctx), h.database.Close())
}

// openRunHistory opens HISTORY_DB, prunes expired runs and seeds store. A
// database that cannot be opened is logged and the server keeps an
// in-memory history only.
func openRunHistory(ctx context.Context, cfg *core.Config, store *metrics.MetricsStore, logger *zap.Logger) *historyDB {
	if cfg.HistoryDB == "" {
		return nil
	}

	database, err := db.NewDatabase(cfg.HistoryDB)
	if err != nil {
		logger.Warn("Run history disabled", zap.String("path", cfg.HistoryDB), zap.Error(err))
		return nil
	}

	if result, err := database.Cleanup(ctx, cfg.HistoryRetentionDays); err != nil {
		logger.Warn("Run history cleanup failed", zap.Error(err))
	} else if result.RunsDeleted > 0 {
		logger.Info("Pruned expired runs",
			zap.Int64("deleted", result.RunsDeleted),
			zap.Int("retention_days", cfg.HistoryRetentionDays))
	}

	history, err := db.NewRunHistory(ctx, store, db.NewRepository(database), runHistoryCapacity, logger)
	if err != nil {
		database.Close()
		logger.Warn("Run history disabled", zap.String("path", cfg.HistoryDB), zap.Error(err))
		return nil
	}
	return &historyDB{RunHistory: history, database: database}
}
