// Package logging configures zerolog for collageview and carries loggers on
// contexts.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Standard field names shared by every layer.
const (
	FieldLayer     = "layer"
	FieldComponent = "component"
	FieldAdapter   = "adapter"
	FieldUseCase   = "usecase"
	FieldHandler   = "handler"
	FieldPath      = "path"
	FieldMethod    = "method"
	FieldStatus    = "status"
	FieldSession   = "session_id"
	FieldDuration  = "duration"
	FieldCount     = "count"
)

// Config describes the logger outputs.
type Config struct {
	Level  string
	Format string // "console" or "json"
	File   FileConfig
}

// FileConfig enables a rotating log file next to the console output.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Setup builds the application logger, installs it as the global zerolog
// logger and returns a cleanup func that closes the log file, if any.
func Setup(cfg Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
		if cfg.Level != "" {
			log.Warn().Str("invalid_level", cfg.Level).Msg("Invalid log level, using info")
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var console io.Writer = os.Stderr
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	cleanup := func() {}
	out := console

	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return zerolog.Nop(), cleanup, fmt.Errorf("logging.file.path is required when file logging is enabled")
		}

		// Owner only: logs may contain request paths and client addresses.
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0700); err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("failed to create logs directory: %w", err)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}

		if err := os.Chmod(cfg.File.Path, 0600); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", cfg.File.Path).Msg("Failed to set secure permissions on log file")
		}

		out = io.MultiWriter(console, fileWriter)
		cleanup = func() {
			_ = fileWriter.Close()
		}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger, cleanup, nil
}

// SetLevel changes the global level at runtime. Invalid levels are ignored.
func SetLevel(level string) bool {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return false
	}
	zerolog.SetGlobalLevel(parsed)
	return true
}

// WithFields returns a context whose logger carries fields on top of the
// logger already attached to ctx (or the global logger).
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := FromCtx(ctx).With().Fields(fields).Logger()
	return logger.WithContext(ctx)
}

// FromCtx returns the logger attached to ctx, falling back to the global logger.
func FromCtx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
