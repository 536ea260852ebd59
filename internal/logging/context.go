// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// batchIDKey tags every log line produced while handling one packet batch.
	batchIDKey contextKey = "batch_id"

	// requestIDKey tags HTTP requests.
	requestIDKey contextKey = "request_id"
)

// GenerateBatchID returns a short identifier for a packet batch.
func GenerateBatchID() string {
	return uuid.New().String()[:8]
}

// ContextWithBatchID returns a context carrying the given batch ID.
func ContextWithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext returns the batch ID or "" if none is set.
func BatchIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(batchIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID or "" if none is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with batch_id and request_id from ctx.
//
//	logging.Ctx(ctx).Info().Str("src", ip).Msg("alert stored")
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := Logger().With()
	if id := BatchIDFromContext(ctx); id != "" {
		lc = lc.Str("batch_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	l := lc.Logger()
	return &l
}

// WithComponent creates a child logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
