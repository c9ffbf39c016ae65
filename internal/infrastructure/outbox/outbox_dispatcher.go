package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/abstractions"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// Dispatcher publishes pending outbox messages to stock.events.
type Dispatcher struct {
	repo      domain.OutboxRepository
	eventBus  abstractions.EventBus
	maxRetry  int
	batchSize int
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewDispatcher(
	repo domain.OutboxRepository,
	eventBus abstractions.EventBus,
	maxRetry, batchSize int,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		eventBus:  eventBus,
		maxRetry:  maxRetry,
		batchSize: batchSize,
		logger:    logger.Named("outbox_dispatcher"),
		tracer:    otel.Tracer("stock-service/outbox"),
	}
}

func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	ctx, span := d.tracer.Start(ctx, "outbox.dispatch_batch")
	defer span.End()

	msgs, err := d.repo.GetPendingBatch(ctx, d.maxRetry, d.batchSize)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("outbox.pending", len(msgs)))
	if len(msgs) == 0 {
		return 0, nil
	}

	processed := 0
	for i := range msgs {
		msg := &msgs[i]
		if d.publish(ctx, msg) {
			processed++
		}
		if err := d.repo.Save(ctx, *msg); err != nil {
			d.logger.Error("failed to save outbox message",
				zap.String("message_id", msg.ID.String()), zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("outbox.processed", processed))
	return processed, nil
}

// publish sends one message and records the outcome on it.
func (d *Dispatcher) publish(ctx context.Context, msg *domain.OutboxMessage) bool {
	if !json.Valid([]byte(msg.PayloadJSON)) {
		d.logger.Warn("outbox payload is not valid JSON",
			zap.String("message_id", msg.ID.String()), zap.String("type", msg.Type))
		msg.RetryCount++
		return false
	}

	// routing key is the event type, e.g. StockAdjusted or StockEventRejected
	envelope := primitives.NewIntegrationEventEnvelope(msg.Type, msg.PayloadJSON)
	envelope.SetRoutingKey(msg.Type)

	if err := d.eventBus.Publish(ctx, &envelope); err != nil {
		d.logger.Warn("failed to publish outbox message",
			zap.String("message_id", msg.ID.String()),
			zap.String("type", msg.Type),
			zap.Int("retry_count", msg.RetryCount+1),
			zap.Error(err))
		msg.RetryCount++
		return false
	}

	now := time.Now().UTC().Unix()
	msg.ProcessedAtUtc = &now
	return true
}
