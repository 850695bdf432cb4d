// Package main is the entry point for the thread history sync service.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/stacklok/toolhive-core/logging"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/thv-history-sync/cmd/thv-history-sync/app"
	"github.com/stacklok/thv-history-sync/internal/config"
)

// getLogLevel reads THV_HISTORY_LOG_LEVEL, falling back to LOG_LEVEL.
// Defaults to info when neither is set or the value is invalid.
func getLogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// traceHandler adds the trace_id and span_id of the active span to every record
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

// newLogHandler builds the shared toolhive JSON handler (written to stderr so
// stdout stays clean for sync and version output) with trace injection
func newLogHandler() slog.Handler {
	base := logging.NewHandler(logging.WithLevel(getLogLevel()))
	return &traceHandler{Handler: base}
}

func main() {
	slog.SetDefault(slog.New(newLogHandler()))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
