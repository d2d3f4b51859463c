package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLogContextSiblingsDoNotShareFields(t *testing.T) {
	base := LogContext(context.Background(), zap.String("a", "1"))

	left := LogContext(base, zap.String("b", "left"))
	right := LogContext(base, zap.String("b", "right"))

	assert.Equal(t, []zap.Field{zap.String("a", "1"), zap.String("b", "left")}, GetLogContextFields(left))
	assert.Equal(t, []zap.Field{zap.String("a", "1"), zap.String("b", "right")}, GetLogContextFields(right))
}

func TestDetachLogContext(t *testing.T) {
	ctx, cancel := context.WithCancel(LogContext(context.Background(), zap.String("run_id", "x")))
	cancel()

	detached := DetachLogContext(ctx)

	assert.NoError(t, detached.Err())
	assert.Equal(t, []zap.Field{zap.String("run_id", "x")}, GetLogContextFields(detached))
}
