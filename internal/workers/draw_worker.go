package workers

import (
	"context"
	"time"

	"steam-giveaway-backend/internal/common/logger"
	claimservice "steam-giveaway-backend/internal/features/claim/service"
	giveawayservice "steam-giveaway-backend/internal/features/giveaway/service"
)

// DrawWorker runs the draw and forfeit passes on a fixed interval as
// an in-process alternative to the cron endpoints. Both paths share
// the same scheduler, so running them together is safe.
type DrawWorker struct {
	scheduler *giveawayservice.DrawScheduler
	claims    *claimservice.ClaimService
	interval  time.Duration
}

func NewDrawWorker(scheduler *giveawayservice.DrawScheduler, claims *claimservice.ClaimService, interval time.Duration) *DrawWorker {
	return &DrawWorker{
		scheduler: scheduler,
		claims:    claims,
		interval:  interval,
	}
}

// Start blocks until ctx is canceled. Intended to run in its own
// goroutine.
func (w *DrawWorker) Start(ctx context.Context) {
	logger.Info().Dur("interval", w.interval).Msg("starting draw worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("stopping draw worker")
			return
		case <-ticker.C:
			if _, err := w.scheduler.RunOnce(ctx, "worker", 0); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("draw pass failed")
			}
			if _, err := w.claims.SweepForfeits(ctx, 0); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("forfeit sweep failed")
			}
		}
	}
}
