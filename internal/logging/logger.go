// Package logging builds the structured JSON loggers used by the binaries.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLogFile names a file that receives a copy of every log line.
const EnvLogFile = "LOG_FILE"

// Options configures NewLogger.
type Options struct {
	Service string
	Env     string
	// File receives a copy of the logs. Empty falls back to LOG_FILE.
	File string
	// Quiet drops the stdout sink; only File is written.
	Quiet bool
	Debug bool
}

// NewLogger creates a production zap logger that emits JSON to stdout and,
// when a log file is configured, appends the same lines to it.
func NewLogger(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = nil
	cfg.ErrorOutputPaths = []string{"stderr"}
	if !opts.Quiet {
		cfg.OutputPaths = append(cfg.OutputPaths, "stdout")
	}

	logFile := opts.File
	if logFile == "" {
		logFile = os.Getenv(EnvLogFile)
	}
	if logFile != "" {
		if err := ensureLogFile(logFile); err != nil {
			return nil, fmt.Errorf("prepare log file: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, logFile)
	}
	if len(cfg.OutputPaths) == 0 {
		return zap.NewNop(), nil
	}
	if opts.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	cfg.EncoderConfig = encoderConfig()
	cfg.InitialFields = map[string]any{
		"service": opts.Service,
		"env":     opts.Env,
	}

	return cfg.Build()
}

// NewFileCore opens path for appending and returns a JSON core writing to it,
// with the same encoding and initial fields as NewLogger. The returned func
// closes the file and must be called once the core is no longer used.
func NewFileCore(path string, opts Options) (zapcore.Core, func(), error) {
	if err := ensureLogFile(path); err != nil {
		return nil, nil, fmt.Errorf("prepare log file: %w", err)
	}
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level).With([]zapcore.Field{
		zap.String("service", opts.Service),
		zap.String("env", opts.Env),
	})
	return core, closeSink, nil
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	return enc
}

// MustNewLogger is like NewLogger but panics if the logger cannot be created.
func MustNewLogger(opts Options) *zap.Logger {
	logger, err := NewLogger(opts)
	if err != nil {
		panic(err)
	}
	return logger
}

// WithTrace returns a logger enriched with the call's trace id and action.
// Blank values are logged as "unknown" so the fields are always present.
func WithTrace(logger *zap.Logger, traceID, action string) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	if traceID == "" {
		traceID = "unknown"
	}
	if action == "" {
		action = "unknown"
	}
	return logger.With(
		zap.String("trace_id", traceID),
		zap.String("action", action),
	)
}

func ensureLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
