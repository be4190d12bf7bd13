// Package logging holds the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

var level = func() *slog.LevelVar {
	v := &slog.LevelVar{}
	v.Set(slog.LevelInfo)
	return v
}()

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// SetLevel adjusts the minimum level emitted by the process logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetLogger replaces the process logger. Tests use this to silence or capture output.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}
