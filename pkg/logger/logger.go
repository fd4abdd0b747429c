// Package logger provides standardized logging utilities for the Kaleidoscope toolchain
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Global logger instance
var defaultLogger *slog.Logger

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	var handler slog.Handler

	output := cfg.Output
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		output = file
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	return nil
}

// InitDev initializes logging for development (debug level, text format)
func InitDev() {
	_ = Init(Config{
		Level:     LevelDebug,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: true,
	})
}

// ParseLevel maps "debug", "info", "warn" or "error" to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, errors.Errorf("unknown log level %q", s)
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(msg, args...)
	}
}

// With returns a new logger with the given attributes
func With(args ...any) *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger.With(args...)
	}
	return slog.Default().With(args...)
}

// Compiler-specific logging helpers

// LogPhase logs the start of a compilation phase
func LogPhase(phase string) {
	Debug("Starting compilation phase", "phase", phase)
}

// LogPhaseComplete logs the completion of a compilation phase
func LogPhaseComplete(phase string) {
	Debug("Completed compilation phase", "phase", phase)
}

// LogLexing logs lexing activity
func LogLexing(source string, tokenCount int) {
	Debug("Lexing complete", "source", source, "tokens", tokenCount)
}

// LogParsing logs a parsed top-level form
func LogParsing(kind string, name string) {
	Debug("Parsed top-level form", "kind", kind, "name", name)
}

// LogLowering logs lowering of one function
func LogLowering(module string, funcName string, instructionCount int) {
	Debug("Lowering complete",
		"module", module,
		"function", funcName,
		"instructions", instructionCount)
}

// LogOptimization logs optimization passes
func LogOptimization(pass string, changeCount int) {
	Debug("Optimization pass complete", "pass", pass, "changes", changeCount)
}

// LogDiagnostic logs a failed top-level form
func LogDiagnostic(phase string, line int, msg string) {
	Warn("Compilation error",
		"phase", phase,
		"line", line,
		"message", msg)
}

// LogEvaluation logs the result of running an anonymous expression
func LogEvaluation(module string, result float64) {
	Debug("Evaluated expression", "module", module, "result", result)
}

// LogSessionStart logs driver startup
func LogSessionStart(source string) {
	Info("Kaleidoscope session starting", "source", source)
}

// LogSessionComplete logs driver completion
func LogSessionComplete(forms int, failures int, duration string) {
	if failures == 0 {
		Info("Session complete", "forms", forms, "duration", duration)
	} else {
		Warn("Session complete with errors", "forms", forms, "failures", failures, "duration", duration)
	}
}
