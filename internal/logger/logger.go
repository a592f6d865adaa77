// Package logger wraps log/slog with the small field-based API used across
// morningbrew. Output can be JSON or text and goes to stdout, stderr or a file.
//
//	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: "stdout"})
//	if err != nil {
//	    return err
//	}
//	log.Info("server listening", logger.Field{Key: "addr", Value: ":3000"})
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config описывает настройки логгера
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output string // stdout, stderr или путь к файлу

	// Writer, если задан, имеет приоритет над Output (используется в тестах)
	Writer io.Writer
}

// Logger is a thin wrapper around *slog.Logger.
type Logger struct {
	slog   *slog.Logger
	closer io.Closer
}

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, ok := parseLevel(cfg.Level)
	if !ok {
		return nil, fmt.Errorf("invalid log level: %s (expected: debug, info, warn, error)", cfg.Level)
	}

	writer, closer, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("invalid log format: %s (expected: json, text)", cfg.Format)
	}

	return &Logger{slog: slog.New(handler), closer: closer}, nil
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func openOutput(cfg Config) (io.Writer, io.Closer, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil, nil
	}

	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}

	path := cfg.Output
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, file, nil
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.slog.Debug(msg, toArgs(fields)...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.slog.Info(msg, toArgs(fields)...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.slog.Warn(msg, toArgs(fields)...)
}

// Error логирует сообщение с ошибкой в поле "error"
func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.slog.Error(msg, toArgs(withError(err, fields))...)
}

func (l *Logger) DebugCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.DebugContext(ctx, msg, toArgs(fields)...)
}

func (l *Logger) InfoCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.InfoContext(ctx, msg, toArgs(fields)...)
}

func (l *Logger) WarnCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.WarnContext(ctx, msg, toArgs(fields)...)
}

func (l *Logger) ErrorCtx(ctx context.Context, msg string, err error, fields ...Field) {
	l.slog.ErrorContext(ctx, msg, toArgs(withError(err, fields))...)
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{slog: l.slog.With(toArgs(fields)...), closer: l.closer}
}

// StdLogger exposes the underlying slog logger.
func (l *Logger) StdLogger() *slog.Logger {
	return l.slog
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.slog)
}

func withError(err error, fields []Field) []Field {
	out := make([]Field, 0, len(fields)+1)
	if err != nil {
		out = append(out, Field{Key: "error", Value: err.Error()})
	}
	return append(out, fields...)
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}
