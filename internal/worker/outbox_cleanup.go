package worker

import (
	"context"
	"time"

	"github.com/medisched/clinic-api/internal/repository"
	"github.com/medisched/clinic-api/pkg/logger"
)

// OutboxCleanupWorker periodically removes processed outbox rows older
// than the retention window.
type OutboxCleanupWorker struct {
	repo          repository.OutboxRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retentionDays int, interval time.Duration, logger *logger.Logger) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -w.retentionDays)
			deleted, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
			if err != nil {
				w.logger.Error(err, "failed to clean up outbox events")
				continue
			}
			if deleted > 0 {
				w.logger.Info("cleaned up outbox events", "deleted", deleted)
			}
		}
	}
}
