package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

func Init() {
	log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewJSONHandler wraps slog's JSON handler so tests can redirect output.
func NewJSONHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewJSONHandler(w, opts)
}

func New(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

func ensure() *slog.Logger {
	if log == nil {
		Init()
	}
	return log
}

func Info(msg string, args ...interface{}) {
	ensure().Info(msg, args...)
}

func Infof(format string, v ...interface{}) {
	ensure().Info(fmt.Sprintf(format, v...))
}

func Warn(msg string, args ...interface{}) {
	ensure().Warn(msg, args...)
}

func Error(msg string, args ...interface{}) {
	ensure().Error(msg, args...)
}

func Errorf(format string, v ...interface{}) {
	ensure().Error(fmt.Sprintf(format, v...))
}

func Debug(msg string, args ...interface{}) {
	ensure().Debug(msg, args...)
}

func Debugf(format string, v ...interface{}) {
	ensure().Debug(fmt.Sprintf(format, v...))
}

func Fatal(msg string, args ...interface{}) {
	ensure().Error(msg, args...)
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	ensure().Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func WithError(err error) *slog.Logger {
	return ensure().With("error", err)
}

func WithFields(fields map[string]interface{}) *slog.Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return ensure().With(args...)
}
