// Package logging provides structured logging for the diagram generator:
// a zap logger that tees colored console output and a rotated JSON log file,
// with API keys redacted from every entry.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures NewLogger.
type Options struct {
	// Level is the minimum level for both outputs.
	Level zapcore.Level

	// Development switches the console to the colored human-readable encoder.
	Development bool

	// FilePath is the JSON log file. Empty disables file output.
	FilePath string

	// File overrides rotation settings; zero values use defaults.
	File FileWriterConfig

	// Console overrides the console destination (default os.Stdout).
	Console zapcore.WriteSyncer
}

// Logger wraps zap.Logger. Every entry passes through the redacting core, so
// loggers handed out via Zap() redact as well.
//
// Example:
//
//	logger, err := NewLogger(Options{Level: InfoLevel, FilePath: "diagramgen.log"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("run started", RunFields(runID, brief)...)
type Logger struct {
	zap         *zap.Logger
	sugar       *zap.SugaredLogger
	logFilePath string
}

// NewLogger creates a Logger writing to the console and, when FilePath is
// set, to a size-rotated file.
func NewLogger(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = zapcore.Lock(os.Stdout)
	}

	var file zapcore.WriteSyncer
	if opts.FilePath != "" {
		if err := ensureWritable(opts.FilePath); err != nil {
			return nil, fmt.Errorf("logging: cannot open log file: %w", err)
		}
		file = NewFileWriterWithConfig(opts.FilePath, opts.File)
	}

	core := NewMultiCore(opts.Level, console, file, opts.Development)
	return newLogger(core, opts.FilePath), nil
}

// NewLoggerFromCore wraps an existing core (tests use zaptest/observer cores).
func NewLoggerFromCore(core zapcore.Core) *Logger {
	return newLogger(NewRedactingCore(core), "")
}

func newLogger(core zapcore.Core, path string) *Logger {
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{
		zap:         zapLogger,
		sugar:       zapLogger.Sugar(),
		logFilePath: path,
	}
}

func ensureWritable(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel with optional structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

// Info logs a message at InfoLevel with optional structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

// Warn logs a message at WarnLevel with optional structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs a message at ErrorLevel with optional structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, fields...)
}

// Infow logs a message at InfoLevel with loosely-typed key-value pairs.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warnw logs a message at WarnLevel with loosely-typed key-value pairs.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Errorw logs a message at ErrorLevel with loosely-typed key-value pairs.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.zap.With(fields...)
	return &Logger{zap: child, sugar: child.Sugar(), logFilePath: l.logFilePath}
}

// Named adds a sub-logger name.
func (l *Logger) Named(name string) *Logger {
	child := l.zap.Named(name)
	return &Logger{zap: child, sugar: child.Sugar(), logFilePath: l.logFilePath}
}

// Zap returns the underlying zap.Logger for packages that take *zap.Logger.
// The caller skip added for this wrapper is removed.
func (l *Logger) Zap() *zap.Logger {
	return l.zap.WithOptions(zap.AddCallerSkip(-1))
}

// LogFilePath returns the path to the log file.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}
