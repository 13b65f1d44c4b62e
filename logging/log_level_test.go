package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevelString(t *testing.T) {
	tests := []struct {
		in   string
		def  zapcore.Level
		want zapcore.Level
	}{
		{"debug", zapcore.InfoLevel, zapcore.DebugLevel},
		{"INFO", zapcore.DebugLevel, zapcore.InfoLevel},
		{"Warn", zapcore.InfoLevel, zapcore.WarnLevel},
		{"warning", zapcore.InfoLevel, zapcore.WarnLevel},
		{"error", zapcore.InfoLevel, zapcore.ErrorLevel},
		{"  debug  ", zapcore.InfoLevel, zapcore.DebugLevel},
		{"", zapcore.ErrorLevel, zapcore.ErrorLevel},
		{"verbose", zapcore.WarnLevel, zapcore.WarnLevel},
		{"fatal", zapcore.InfoLevel, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevelString(tt.in, tt.def); got != tt.want {
				t.Errorf("ParseLogLevelString(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
			}
		})
	}
}
