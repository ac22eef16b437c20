// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package obslog provides the engine's structured logging and tracing
// glue: a slog.Logger enriched with the active span's trace_id/span_id,
// and a shared tracer used by every component package.
package obslog

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the engine-wide tracer. Component packages start spans named
// "<package>.<operation>" from it.
var Tracer = otel.Tracer("ctxmemory.engine")

// InitTracing installs a process-wide TracerProvider. When enabled it
// samples every span (an operator wires a real exporter via
// OTEL_EXPORTER_OTLP_* env vars through the SDK's env-based batcher
// config); when disabled the SDK provider still runs but never samples,
// keeping span creation cheap without falling back to the otel no-op
// provider. Returns a shutdown func the caller should defer.
func InitTracing(enabled bool) func(context.Context) error {
	sampler := sdktrace.NeverSample()
	if enabled {
		sampler = sdktrace.AlwaysSample()
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	otel.SetTracerProvider(tp)
	Tracer = tp.Tracer("ctxmemory.engine")
	return tp.Shutdown
}

// New builds the root slog.Logger for the engine, honoring the requested
// level and format ("json" or "text").
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

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

// WithTrace returns logger enriched with the active span's trace_id and
// span_id, or logger unchanged if ctx carries no valid span.
func WithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// StartSpan starts a span named "<component>.<op>" and returns the derived
// context alongside it, matching the teacher's convTracer.Start idiom.
func StartSpan(ctx context.Context, component, op string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, component+"."+op)
}
