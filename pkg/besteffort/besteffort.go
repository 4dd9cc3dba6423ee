// Package besteffort runs side effects whose failure must not fail the
// caller: the error is logged and counted, never returned.
package besteffort

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/metrics"
)

// Run calls fn and swallows its error or panic. It reports whether fn
// succeeded so callers can note the outcome without branching on it.
func Run(ctx context.Context, operation string, fn func(context.Context) error, attrs ...any) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			fail(ctx, operation, fmt.Errorf("panic: %v", rec), attrs)
			ok = false
		}
	}()

	if err := fn(ctx); err != nil {
		fail(ctx, operation, err, attrs)
		return false
	}
	return true
}

func fail(ctx context.Context, operation string, err error, attrs []any) {
	metrics.BestEffortFailures.WithLabelValues(operation).Inc()
	args := append([]any{"operation", operation, "error", err}, attrs...)
	logger.WithCtx(ctx).Warn("best-effort call failed", args...)
}
