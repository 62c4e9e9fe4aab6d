// Package logging wraps zap with the session/stage-scoped helpers the rest
// of the prover pipeline expects, plus two log levels, Critical and
// Security, that are never filtered regardless of configured level.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a *zap.Logger with pipeline-specific scoping helpers.
type Logger struct {
	z *zap.Logger
}

// Config controls how a Logger is constructed.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Env    string // development, production
}

// New builds a Logger from an explicit Config.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.Level))

	var zcfg zap.Config
	if cfg.Env == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
	} else {
		zcfg.Encoding = "json"
	}

	z, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// NewFromEnv builds a Logger from LOG_LEVEL/LOG_FORMAT/PROVER_ENV.
func NewFromEnv() *Logger {
	l, err := New(Config{
		Level:  envOr("LOG_LEVEL", "info"),
		Format: envOr("LOG_FORMAT", "json"),
		Env:    envOr("PROVER_ENV", "production"),
	})
	if err != nil {
		// Fall back to a bare production logger rather than crash on a
		// malformed LOG_LEVEL.
		fallback, _ := zap.NewProduction()
		return &Logger{z: fallback}
	}
	return l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Critical always logs at error level regardless of configured level,
// for notary signing failures and other events an operator must see.
func (l *Logger) Critical(msg string, fields ...zap.Field) {
	// Writing to the core directly skips its level check.
	_ = l.z.Core().Write(zapcore.Entry{Level: zapcore.ErrorLevel, Time: time.Now(), Message: "CRITICAL: " + msg}, fields)
}

// Security always logs, for SSRF rejections and MPC commitment
// mismatches, which are security-relevant even at a quiet log level.
func (l *Logger) Security(msg string, fields ...zap.Field) {
	_ = l.z.Core().Write(zapcore.Entry{Level: zapcore.WarnLevel, Time: time.Now(), Message: "SECURITY: " + msg}, fields)
}

// WithSession returns a logger scoped to a single session id.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{z: l.z.With(zap.String("session_id", sessionID))}
}

// WithStage returns a logger scoped to a pipeline stage name.
func (l *Logger) WithStage(stage string) *Logger {
	return &Logger{z: l.z.With(zap.String("stage", stage))}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.z.Sync() }

// Raw exposes the underlying zap logger for callers that need zap.Field
// composition beyond what this wrapper provides.
func (l *Logger) Raw() *zap.Logger { return l.z }
