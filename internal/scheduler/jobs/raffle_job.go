package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront-hub/internal/service"
)

type RaffleJob struct {
	raffleService *service.RaffleService
	logger        *zap.Logger
}

func NewRaffleJob(raffleService *service.RaffleService, logger *zap.Logger) *RaffleJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RaffleJob{
		raffleService: raffleService,
		logger:        logger,
	}
}

// ActivateDue opens entry for raffles whose window has started.
func (j *RaffleJob) ActivateDue() {
	if j == nil || j.raffleService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if moved := j.raffleService.ActivateDue(ctx); moved > 0 {
		j.logger.Info("raffles activated", zap.Int("count", moved))
	}
}

// CloseDue closes raffles whose entry window has ended.
func (j *RaffleJob) CloseDue() {
	if j == nil || j.raffleService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if moved := j.raffleService.CloseDue(ctx); moved > 0 {
		j.logger.Info("raffles closed", zap.Int("count", moved))
	}
}

// DrawDue runs the draw for closed raffles whose draw time has passed.
func (j *RaffleJob) DrawDue() {
	if j == nil || j.raffleService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if drawn := j.raffleService.DrawDue(ctx); drawn > 0 {
		j.logger.Info("raffles drawn", zap.Int("count", drawn))
	}
}
