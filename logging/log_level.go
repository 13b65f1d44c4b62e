package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// InfoLevel is the default LOG_LEVEL.
const InfoLevel = zapcore.InfoLevel

// ParseLogLevelString maps a LOG_LEVEL value (debug, info, warn, error) to a
// zap level, ignoring case. "warning" is an alias for warn. Anything else,
// including the panic and fatal levels, yields defaultLevel.
func ParseLogLevelString(levelStr string, defaultLevel zapcore.Level) zapcore.Level {
	s := strings.ToLower(strings.TrimSpace(levelStr))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		return defaultLevel
	}

	level, err := zapcore.ParseLevel(s)
	if err != nil || level > zapcore.ErrorLevel {
		return defaultLevel
	}
	return level
}
