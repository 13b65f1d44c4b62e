package logging

import (
	"go.uber.org/zap/zapcore"
)

// NewMultiCore tees console and file output behind a redacting core.
// The file always gets JSON; the console gets the colored encoder in
// development mode and JSON otherwise. A nil file writer disables file output.
func NewMultiCore(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}

	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, consoleWriter, level)}
	if fileWriter != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(NewEncoderConfig()), fileWriter, level))
	}

	return NewRedactingCore(zapcore.NewTee(cores...))
}
