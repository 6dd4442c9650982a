// Package must launches background goroutines with a panic boundary, so a
// single failing task never takes the process down (spec.md §7).
package must

import (
	"context"
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine, recovering and logging any panic instead of
// letting it propagate to the scheduler. Every long-running loop in this
// module (maintenance, egress delivery, tariff scans) is launched this way.
func Go(logger *slog.Logger, name string, fn func()) {
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.LogAttrs(context.Background(), slog.LevelError,
					"background task panicked",
					slog.String("task", name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}
