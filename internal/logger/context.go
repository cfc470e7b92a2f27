package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or fallback when none is set.
func FromContext(ctx context.Context, fallback ...*zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return zap.NewNop()
}

// WithGame returns a context whose logger carries the game ID.
func WithGame(ctx context.Context, gameID string, fallback *zap.Logger) (context.Context, *zap.Logger) {
	l := FromContext(ctx, fallback).With(zap.String("game_id", gameID))
	return ContextWithLogger(ctx, l), l
}
