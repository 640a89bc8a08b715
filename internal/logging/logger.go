// Package logging provides the structured logging sink divecore injects
// into a Session instead of relying on process-wide state.
package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors zapcore.Level so callers don't need to import zap.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config holds logging configuration.
type Config struct {
	Level   LogLevel
	Format  string // "text" (console) or "json"; defaults to "text"
	Output  io.Writer
	Sync    bool // flush after every line; useful for tests reading Output
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// Logger wraps a zap.SugaredLogger with the key/value call shape the
// core uses throughout (msg string, alternating key/value pairs).
type Logger struct {
	sugar *zap.SugaredLogger
	sync  bool
}

func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if !config.NoColor && config.Format != "json" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if config.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), config.Level.zapLevel())
	zl := zap.New(core)
	return &Logger{sugar: zl.Sugar(), sync: config.Sync}
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger used by the package-level
// Debug/Info/Warn/Error helpers.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func (l *Logger) maybeSync() {
	if l.sync {
		_ = l.sugar.Sync()
	}
}

func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.sugar.Debugw(msg, kv...)
	l.maybeSync()
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.sugar.Infow(msg, kv...)
	l.maybeSync()
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.sugar.Warnw(msg, kv...)
	l.maybeSync()
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	l.sugar.Errorw(msg, kv...)
	l.maybeSync()
}

// WithSession returns a child logger tagged with a session correlation
// id, so log lines from concurrent Sessions can be told apart.
func (l *Logger) WithSession(id string) *Logger {
	return &Logger{sugar: l.sugar.With("session_id", id), sync: l.sync}
}

// WithFamily tags subsequent log lines with the device family in use.
func (l *Logger) WithFamily(name string) *Logger {
	return &Logger{sugar: l.sugar.With("family", name), sync: l.sync}
}

// WithAttempt tags a single transfer attempt with its correlation id and
// the logical operation being performed (e.g. "READ", "HANDSHAKE").
func (l *Logger) WithAttempt(id string, op string) *Logger {
	return &Logger{sugar: l.sugar.With("attempt_id", id, "op", op), sync: l.sync}
}

// WithError tags subsequent log lines with an error value.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{sugar: l.sugar.With("error", err), sync: l.sync}
}

// Global convenience functions operating on the default logger.
func Debug(msg string, kv ...interface{}) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { Default().Error(msg, kv...) }
