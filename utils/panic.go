package utils

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

func PanicRecovery(log *zap.Logger) {
	if r := recover(); r != nil {
		log.With(zap.String("stack", string(debug.Stack()))).Error("recovered panic")
	}
}

// PanicError converts a recovered value into an error. It must be called
// with the result of recover() from a deferred function.
func PanicError(log *zap.Logger, r any) error {
	log.With(
		zap.Any("panic", r),
		zap.String("stack", string(debug.Stack())),
	).Error("recovered panic")

	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
