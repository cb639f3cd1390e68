package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Schedule dispatches an advisory run immediately and then every interval
// until ctx is done.
func Schedule(ctx context.Context, d *Dispatcher, interval time.Duration, logger zerolog.Logger) {
	run := func() {
		if err := d.Dispatch(ctx, JobMessage{JobType: JobAdvisoryRun}); err != nil {
			logger.Error().Err(err).Msg("scheduled advisory run failed")
		}
	}

	logger.Info().Dur("interval", interval).Msg("advisory scheduler started")
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("advisory scheduler stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}
