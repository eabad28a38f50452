// Package logger wraps zap with the field names the tracker logs under.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap.Logger with tracker-specific helpers.
type Logger struct {
	*zap.Logger
}

// Options controls how a Logger renders.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Console switches from JSON lines to colored console output.
	Console bool
	// Service is attached to every entry when set.
	Service string
}

// New builds a logger writing to stdout.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var cfg zap.Config
	if opts.Console {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if opts.Service != "" {
		z = z.With(zap.String("service", opts.Service))
	}
	return &Logger{Logger: z}, nil
}

// NewForEnv uses console output in development and JSON everywhere else.
func NewForEnv(env, level string) (*Logger, error) {
	return New(Options{Level: level, Console: env == "development"})
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a child logger for a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// ForWebhook tags entries with the webhook provider and request correlation id.
func (l *Logger) ForWebhook(provider, correlationID string) *Logger {
	return l.With(
		zap.String("provider", provider),
		zap.String("correlation_id", correlationID),
	)
}

// ForConversation tags entries with a conversation id.
func (l *Logger) ForConversation(id string) *Logger {
	return l.With(zap.String("conversation_id", id))
}

var global = NewNop()

func init() {
	if l, err := NewForEnv(os.Getenv("ENV"), os.Getenv("LOG_LEVEL")); err == nil {
		global = l
	}
}

// Global returns the process-wide logger.
func Global() *Logger {
	return global
}

// SetGlobal replaces the process-wide logger and redirects zap's globals to it.
func SetGlobal(l *Logger) {
	global = l
	zap.ReplaceGlobals(l.Logger)
}
