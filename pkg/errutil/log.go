// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package errutil adapts oops errors to structured logging and tests.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error, args ...any) {
	logAt(context.Background(), logger, slog.LevelError, msg, err, args...)
}

// LogWarn is LogError at warning level, for best-effort operations whose
// failure does not fail the request.
func LogWarn(logger *slog.Logger, msg string, err error, args ...any) {
	logAt(context.Background(), logger, slog.LevelWarn, msg, err, args...)
}

// LogErrorContext is LogError with a context, so trace-aware handlers can
// attach span identifiers.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	logAt(ctx, logger, slog.LevelError, msg, err, args...)
}

func logAt(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, args ...any) {
	attrs := make([]any, 0, len(args)+6)
	attrs = append(attrs, args...)
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, "error", oopsErr.Error())
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "context", errCtx)
		}
	} else {
		attrs = append(attrs, "error", err)
	}
	logger.Log(ctx, level, msg, attrs...)
}
