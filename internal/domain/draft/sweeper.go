package draft

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunSweeper removes drafts older than maxAge every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func RunSweeper(ctx context.Context, svc *Service, interval, maxAge time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := svc.Sweep(ctx, maxAge)
			if err != nil {
				logger.Error().Err(err).Msg("draft sweep failed")
				continue
			}
			if n > 0 {
				logger.Info().Int("removed", n).Dur("max_age", maxAge).Msg("stale drafts removed")
			}
		case <-ctx.Done():
			return
		}
	}
}
