package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Info(msg string, keyvals ...interface{})

	Warn(msg string, keyvals ...interface{})

	Error(msg string, keyvals ...interface{})

	Debug(msg string, keyvals ...interface{})
}

type FileOptions struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func New() Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo, // minimum log level
		AddSource: true,           // include file + line number
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

// NewWithFile logs to stderr and, when a path is given, to a size-rotated log file.
func NewWithFile(fileOpts FileOptions) (Logger, io.Closer) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(fileOpts.Level),
		AddSource: true,
	}

	if fileOpts.Path == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nopCloser{}
	}

	if err := os.MkdirAll(filepath.Dir(fileOpts.Path), 0755); err != nil {
		l := slog.New(slog.NewJSONHandler(os.Stderr, opts))
		l.Warn("could not create log directory, logging to stderr only", "path", fileOpts.Path, "err", err.Error())
		return l, nopCloser{}
	}

	fileWriter := &lumberjack.Logger{
		Filename:   fileOpts.Path,
		MaxSize:    fileOpts.MaxSizeMB,
		MaxBackups: fileOpts.MaxBackups,
		MaxAge:     fileOpts.MaxAgeDays,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stderr, fileWriter), opts)
	return slog.New(handler), fileWriter
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
