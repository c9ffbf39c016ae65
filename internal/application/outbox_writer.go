package application

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type OutboxWriter interface {
	Enqueue(ctx context.Context, ev primitives.Event) error
}

type outboxWriter struct {
	repo   domain.OutboxRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewOutboxWriter(repo domain.OutboxRepository, logger *zap.Logger) OutboxWriter {
	return &outboxWriter{
		repo:   repo,
		logger: logger.Named("outbox_writer"),
		now:    time.Now,
	}
}

func (w *outboxWriter) Enqueue(ctx context.Context, ev primitives.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", ev, err)
	}

	eventType := ev.GetRoutingKey()
	if eventType == "" {
		eventType = typeNameOf(ev)
	}

	msg := domain.OutboxMessage{
		ID:             uuid.New(),
		Type:           eventType,
		PayloadJSON:    string(payload),
		OccurredAtUtc:  w.now().UTC().Unix(),
		RetryCount:     0,
		ProcessedAtUtc: nil,
	}
	if err := w.repo.Insert(ctx, msg); err != nil {
		return fmt.Errorf("insert outbox message %s: %w", eventType, err)
	}

	w.logger.Debug("event enqueued",
		zap.String("type", eventType),
		zap.String("message_id", msg.ID.String()))
	return nil
}

func typeNameOf(ev primitives.Event) string {
	if ev == nil {
		return ""
	}
	t := reflect.TypeOf(ev)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
