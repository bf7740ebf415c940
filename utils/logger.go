package utils

import (
	"log/slog"
	"os"
)

// Logger is the logging surface the library asks for. Any structured
// logger taking slog-style key/value pairs fits.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultLogger writes to stderr through log/slog, tagging every line
// with the library name.
type DefaultLogger struct {
	out *slog.Logger
}

func NewDefaultLogger(level slog.Level) *DefaultLogger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &DefaultLogger{out: slog.New(h)}
}

const prefix = "[decksync] "

func (d *DefaultLogger) Debug(msg string, args ...any) {
	d.out.Debug(prefix+msg, args...)
}

func (d *DefaultLogger) Info(msg string, args ...any) {
	d.out.Info(prefix+msg, args...)
}

func (d *DefaultLogger) Warn(msg string, args ...any) {
	d.out.Warn(prefix+msg, args...)
}

func (d *DefaultLogger) Error(msg string, args ...any) {
	d.out.Error(prefix+msg, args...)
}
