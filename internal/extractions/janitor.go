package extractions

import (
	"context"
	"time"

	"guideline-extractor/internal/shared/telemetry"
)

const defaultJanitorInterval = 5 * time.Minute

// RunJanitor sweeps expired extractions every interval until ctx is done.
func RunJanitor(ctx context.Context, svc *Service, interval time.Duration) {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := svc.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				telemetry.Warn("janitor.sweep_failed", map[string]any{"error": err.Error()})
				continue
			}
			if removed > 0 {
				telemetry.Info("janitor.swept", map[string]any{"removed": removed})
			}
		}
	}
}
