// Package obslog provides the slog-based logging conventions shared by the
// engine and its host: a base logger configurable by level/format, and
// context enrichment so a connection_id/request_id travel with every log
// line a handler emits without threading a logger through every call.
package obslog

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/mcpcore/mcpcore-go/internal/ctxkey"
)

// New builds the base *slog.Logger for the process: text for humans,
// json for machine ingestion.
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithLogger returns a context carrying logger under ctxkey.LoggerKey, the
// same key the router enriches with connection_id/request_id before
// invoking a handler.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.LoggerKey{}, logger)
}

// FromContext retrieves the enriched logger from ctx, falling back to base
// if none was attached (or base is nil, to slog.Default()).
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if base != nil {
		return base
	}
	return slog.Default()
}

// Enrich attaches connection_id and, if non-empty, request_id/method
// fields to base and stores the result in ctx. The router calls this once
// per dispatched message so every log line inside a handler is
// automatically correlated.
func Enrich(ctx context.Context, base *slog.Logger, connectionID, requestID, method string) context.Context {
	logger := base
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("connection_id", connectionID)
	if requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if method != "" {
		logger = logger.With("method", method)
	}
	ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, logger)
	ctx = context.WithValue(ctx, ctxkey.ConnectionIDKey{}, connectionID)
	return ctx
}
