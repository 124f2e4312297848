// Package logctx carries the request or event scoped logger through a
// context.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

func lookup(ctx context.Context) (observability.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	logger, ok := ctx.Value(loggerKey{}).(observability.Logger)
	return logger, ok && logger != nil
}

// From returns the scoped logger, or a no-op logger when none was bound.
func From(ctx context.Context) observability.Logger {
	return FromOr(ctx, observability.NopLogger())
}

// FromOr returns the scoped logger, or fallback when none was bound.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger, ok := lookup(ctx); ok {
		return logger
	}
	return fallback
}
