package shutdown

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
)

// StopHTTPServer gracefully stops srv within the shutdown budget.
func StopHTTPServer(srv *http.Server) CleanupFunc {
	return func(ctx context.Context) error {
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Syncer is satisfied by *zap.Logger and *logging.Logger.
type Syncer interface {
	Sync() error
}

// SyncLogger flushes buffered log entries. Sync errors on terminals
// (EINVAL/ENOTTY on stdout) are ignored.
func SyncLogger(l Syncer) CleanupFunc {
	return func(ctx context.Context) error {
		err := l.Sync()
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
			return nil
		}
		return err
	}
}

// RemoveEmptyRunDirs deletes run directories under outputDir that contain
// no files, left behind by runs that failed before their first round.
func RemoveEmptyRunDirs(logger *zap.Logger, outputDir string) CleanupFunc {
	return func(ctx context.Context) error {
		entries, err := os.ReadDir(outputDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		removed := 0
		for _, entry := range entries {
			if ctx.Err() != nil {
				logger.Warn("Shutdown budget exhausted during run directory cleanup", zap.Int("removed", removed))
				return nil
			}
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(outputDir, entry.Name())
			children, err := os.ReadDir(path)
			if err != nil || len(children) > 0 {
				continue
			}
			if err := os.Remove(path); err != nil {
				logger.Warn("Failed to remove empty run directory", zap.String("path", path), zap.Error(err))
				continue
			}
			removed++
		}

		if removed > 0 {
			logger.Info("Removed empty run directories", zap.Int("count", removed))
		}
		return nil
	}
}
