// Package logging provides the engine's structured logger: a thin,
// chainable wrapper over zerolog that keeps the ergonomic
// WithComponent/WithField/WithError call style the rest of the codebase
// builds on, while delegating formatting, levels, and output to zerolog
// rather than a hand-rolled encoder.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how a Logger is constructed.
type Config struct {
	Level       string // DEBUG, INFO, WARN, ERROR
	Output      string // "stdout", "stderr", or a file path
	Component   string
	IncludeFile bool // include caller file:line
	JSONFormat  bool // false selects zerolog's ConsoleWriter
}

// Logger wraps a zerolog logger with accumulated fields.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a Logger per Config.
func New(cfg *Config) *Logger {
	var out io.Writer = os.Stdout
	switch {
	case cfg.Output == "stderr":
		out = os.Stderr
	case cfg.Output != "" && cfg.Output != "stdout":
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			out = f
		}
	}
	if !cfg.JSONFormat {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.IncludeFile {
		ctx = ctx.Caller()
	}
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	zl := ctx.Logger().Level(parseLevel(cfg.Level))
	return &Logger{zl: zl}
}

// Default returns the process-wide default logger (INFO, JSON, stdout)
// until SetDefault is called.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(&Config{Level: "INFO", Output: "stdout", Component: "app", JSONFormat: true})
	})
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	defaultOnce.Do(func() {})
	defaultLogger = l
}

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{zl: l.zl.With().Str("trace_id", traceID).Logger()}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

func (l *Logger) WithDuration(d time.Duration) *Logger {
	return &Logger{zl: l.zl.With().Dur("duration", d).Logger()}
}

// withArgs supports loose "key", value, "key", value pairs at call sites
// that don't want a full WithField chain.
func (l *Logger) withArgs(args []interface{}) zerolog.Logger {
	if len(args) < 2 || len(args)%2 != 0 {
		return l.zl
	}
	ctx := l.zl.With()
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			return l.zl
		}
		if err, isErr := args[i+1].(error); isErr {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, args[i+1])
	}
	return ctx.Logger()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.withArgs(args).Debug().Msg(msg) }
func (l *Logger) Info(msg string, args ...interface{})  { l.withArgs(args).Info().Msg(msg) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.withArgs(args).Warn().Msg(msg) }
func (l *Logger) Error(msg string, args ...interface{}) { l.withArgs(args).Error().Msg(msg) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.withArgs(args).Fatal().Msg(msg) }

// Package-level helpers against the default logger.

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { Default().Fatal(msg, args...) }

func WithComponent(component string) *Logger            { return Default().WithComponent(component) }
func WithField(key string, value interface{}) *Logger   { return Default().WithField(key, value) }
func WithFields(fields map[string]interface{}) *Logger { return Default().WithFields(fields) }
func WithError(err error) *Logger                       { return Default().WithError(err) }
