package monitor

import (
	"context"
	"log/slog"
	"time"

	"leadwatch/internal/must"
)

// checkTickInterval is the granularity at which the maintenance loop
// observes the stop flag, independent of reloadInterval (spec.md §4.2).
const checkTickInterval = 60 * time.Second

// ClearCaches is invoked by the maintenance loop before every resync; the
// composition root wires it to dispatch's Processor.ClearCaches.
type CacheClearer interface {
	ClearCaches()
}

// Start launches the maintenance loop: every reloadInterval (default 6h,
// observed at 60s tick granularity) it clears C4's caches and, if running,
// performs a full restart_all_active resync. Cancellable; observes ctx
// within one tick.
func (e *Engine) Start(ctx context.Context, caches CacheClearer) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	if err := e.RestartAllActive(runCtx); err != nil {
		e.logger.Error("monitor: initial restart_all_active failed", slog.String("error", err.Error()))
	}

	e.wg.Add(1)
	must.Go(e.logger, "monitor.maintenance", func() {
		defer e.wg.Done()
		e.runMaintenanceLoop(runCtx, caches)
	})
}

func (e *Engine) runMaintenanceLoop(ctx context.Context, caches CacheClearer) {
	ticker := time.NewTicker(checkTickInterval)
	defer ticker.Stop()

	var sinceReload time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sinceReload += checkTickInterval
			if sinceReload < e.reloadInterval {
				continue
			}
			sinceReload = 0

			if caches != nil {
				caches.ClearCaches()
			}
			if err := e.RestartAllActive(ctx); err != nil {
				e.logger.Error("monitor: periodic restart_all_active failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Stop cancels the maintenance loop and waits for it to exit.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}
