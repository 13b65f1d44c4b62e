package logging

import (
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// briefPreviewLen bounds how much of a brief is copied into each log line.
const briefPreviewLen = 80

// RunFields identifies a pipeline run in log output.
func RunFields(runID, brief string) []zap.Field {
	return []zap.Field{
		zap.String("run_id", runID),
		zap.String("brief", Preview(brief, briefPreviewLen)),
	}
}

// StageFields tags a stage call with its round and elapsed time.
func StageFields(stage string, round int, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("stage", stage),
		zap.Int("round", round),
		zap.Duration("elapsed", elapsed),
	}
}

// UsageFields records token usage reported by a chat completion.
func UsageFields(model string, promptTokens, completionTokens int) []zap.Field {
	return []zap.Field{
		zap.String("model", model),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens),
	}
}

// Preview truncates s to at most n runes, appending "..." when cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
