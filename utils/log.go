package utils

import (
	"context"

	"go.uber.org/zap"
)

type logKeyType struct{}

// LogContext appends fields to the ones already carried by ctx.
func LogContext(ctx context.Context, fields ...zap.Field) context.Context {
	fields = append(GetLogContextFields(ctx), fields...)
	return context.WithValue(ctx, logKeyType{}, fields)
}

func GetLogContextFields(ctx context.Context) []zap.Field {
	fields, ok := ctx.Value(logKeyType{}).([]zap.Field)
	if !ok {
		return nil
	}
	// copy so appends in LogContext never share a backing array between siblings
	return append([]zap.Field(nil), fields...)
}

func GetLogFromContext(ctx context.Context, parentLog *zap.Logger) *zap.Logger {
	return parentLog.With(GetLogContextFields(ctx)...)
}

func LogContextWith(ctx context.Context, parentLog *zap.Logger, fields ...zap.Field) (context.Context, *zap.Logger) {
	ctx = LogContext(ctx, fields...)
	return ctx, parentLog.With(fields...)
}

// DetachLogContext returns a background context carrying the log fields of
// ctx, for work that outlives the event that started it.
func DetachLogContext(ctx context.Context) context.Context {
	return LogContext(context.Background(), GetLogContextFields(ctx)...)
}
