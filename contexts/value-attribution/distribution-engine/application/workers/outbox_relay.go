package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "tessera/contexts/value-attribution/distribution-engine/application"
	"tessera/contexts/value-attribution/distribution-engine/ports"
	"tessera/internal/shared/events"
)

// OutboxRelay moves pending distribution outbox rows onto the message bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = "distribution.completed"
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("distribution outbox list pending failed",
			"event", "distribution_outbox_list_failed",
			"module", "value-attribution/distribution-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, message := range pending {
		var envelope events.Envelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			logger.Error("distribution outbox payload decode failed",
				"event", "distribution_outbox_decode_failed",
				"module", "value-attribution/distribution-engine",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("distribution outbox publish failed",
				"event", "distribution_outbox_publish_failed",
				"module", "value-attribution/distribution-engine",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, message.OutboxID, now); err != nil {
			logger.Error("distribution outbox mark published failed",
				"event", "distribution_outbox_mark_published_failed",
				"module", "value-attribution/distribution-engine",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}
	if len(pending) > 0 {
		logger.Info("distribution outbox relay cycle completed",
			"event", "distribution_outbox_relay_cycle_completed",
			"module", "value-attribution/distribution-engine",
			"layer", "worker",
			"published_count", len(pending),
		)
	}
	return nil
}
