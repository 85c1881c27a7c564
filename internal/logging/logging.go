// Package logging owns the process-wide slog logger and carries request-scoped
// loggers through gin and context.Context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

const ginKey = "logger"

var (
	once sync.Once
	base *slog.Logger
	file *lumberjack.Logger
)

// Init builds the global JSON logger on first call; later calls return it
// unchanged. An empty filePath logs to stdout only, otherwise lines are also
// written to a rotated file.
//
//	logging.Init("cart-api", "./logs/app.log", "info")
func Init(component, filePath, level string) *slog.Logger {
	once.Do(func() {
		var out io.Writer = os.Stdout
		if filePath != "" {
			_ = os.MkdirAll(filepath.Dir(filePath), 0o755)
			file = &lumberjack.Logger{
				Filename:   filePath,
				MaxSize:    50, // MB
				MaxBackups: 3,
				MaxAge:     7, // days
			}
			out = io.MultiWriter(os.Stdout, file)
		}
		h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(level)})
		base = slog.New(h).With("component", component)
	})
	return base
}

// Base returns the global logger, defaulting to stdout at info.
func Base() *slog.Logger { return Init("app", "", "info") }

// Close flushes and closes the rotated log file, if any.
func Close() error {
	if file == nil {
		return nil
	}
	return file.Close()
}

// New derives a component logger sharing the global handler.
func New(component string) *slog.Logger {
	return Base().With("component", component)
}

// ParseLevel maps config strings to slog levels; unknown values mean info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx returns the logger stored by WithCtx, or the global one.
func FromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Base()
}

// With makes l the request logger for both c and c.Request's context, so use
// cases called with c.Request.Context() log with the request attributes.
func With(c *gin.Context, l *slog.Logger) {
	c.Set(ginKey, l)
	c.Request = c.Request.WithContext(WithCtx(c.Request.Context(), l))
}

// From returns the request logger set by With, or the global one.
func From(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ginKey); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}
