package messaging

import (
	"context"
	"errors"
	"fmt"

	messaging "github.com/rodolfodevapp/eventshop-messaging-go/rabbitmq"
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
)

const (
	LogisticsExchange   = "logistics.events"
	WithdrawalsExchange = "withdrawals.events"
	StockExchange       = "stock.events"
)

type EventBuses struct {
	LogisticsConsumer   *messaging.RabbitMqEventBus
	WithdrawalsConsumer *messaging.RabbitMqEventBus
	Producer            *messaging.RabbitMqEventBus
}

func busOptions(rabbitURI, exchange, queuePrefix string) messaging.RabbitMqOptions {
	return messaging.RabbitMqOptions{
		URI:          rabbitURI,
		ExchangeName: exchange,
		QueuePrefix:  queuePrefix,
		Prefetch:     32,
		RetryDelayMs: 30000,
	}
}

// NewEventBuses builds consumers for logistics.events and withdrawals.events
// and the producer for stock.events. Bus logs are routed through zap.
func NewEventBuses(rabbitURI, queuePrefix string, logger *zap.Logger) EventBuses {
	stdLog := zap.NewStdLog(logger.Named("rabbitmq"))
	return EventBuses{
		LogisticsConsumer:   messaging.NewRabbitMqEventBus(busOptions(rabbitURI, LogisticsExchange, queuePrefix+".logistics"), nil, stdLog),
		WithdrawalsConsumer: messaging.NewRabbitMqEventBus(busOptions(rabbitURI, WithdrawalsExchange, queuePrefix+".withdrawals"), nil, stdLog),
		Producer:            messaging.NewRabbitMqEventBus(busOptions(rabbitURI, StockExchange, "stock.dispatcher.v1"), nil, stdLog),
	}
}

// Stop closes every bus connection.
func (b EventBuses) Stop() error {
	var err error
	for _, bus := range []*messaging.RabbitMqEventBus{b.LogisticsConsumer, b.WithdrawalsConsumer, b.Producer} {
		err = errors.Join(err, bus.Stop())
	}
	return err
}

func RegisterLogisticsSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	arrivedHandler application.EventHandler,
	dispatchedHandler application.EventHandler,
	logger *zap.Logger,
) error {
	bus.Subscribe("TaxStampsArrived", arrivedHandler)
	bus.Subscribe("TaxStampsDispatched", dispatchedHandler)

	if err := bus.StartConsumers(ctx); err != nil {
		logger.Error("error starting logistics consumers", zap.Error(err))
		return fmt.Errorf("start %s consumers: %w", LogisticsExchange, err)
	}
	return nil
}

func RegisterWithdrawalSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	withdrawalHandler application.EventHandler,
	logger *zap.Logger,
) error {
	bus.Subscribe("WithdrawalRequested", withdrawalHandler)

	if err := bus.StartConsumers(ctx); err != nil {
		logger.Error("error starting withdrawal consumers", zap.Error(err))
		return fmt.Errorf("start %s consumers: %w", WithdrawalsExchange, err)
	}
	return nil
}
