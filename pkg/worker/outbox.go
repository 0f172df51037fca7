package worker

import (
	"context"
	"time"

	"github.com/medisched/clinic-api/internal/repository"
	"github.com/medisched/clinic-api/pkg/logger"
	"github.com/medisched/clinic-api/pkg/messaging"
	"github.com/medisched/clinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Channel      string
}

// OutboxProcessor drains pending appointment events from the outbox table
// and publishes them to the broker. Events are written in the same
// transaction as the appointment mutation, so none are lost; delivery is
// at-least-once.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Channel == "" {
		config.Channel = "appointments"
	}
	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: m,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox batch")
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		start := time.Now()
		err := p.broker.Publish(ctx, p.config.Channel, messaging.Message{
			Type:    event.EventType,
			Payload: event.Payload,
		})
		if p.metrics != nil {
			p.metrics.OutboxProcessingLatency.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if p.metrics != nil {
				p.metrics.OutboxEventsFailed.Inc()
			}
			if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				p.logger.Error(markErr, "failed to mark event failed", "event_id", event.ID.String())
			}
			continue
		}

		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", event.ID.String())
			continue
		}
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
	}
	return nil
}
