package application

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type EventHandler interface {
	Handle(ctx context.Context, ev primitives.Event) error
}

// StockLedger is what the message handlers drive.
type StockLedger interface {
	HandleArrival(ctx context.Context, payload domain.TaxStampsArrivedPayload) error
	HandleDispatch(ctx context.Context, payload domain.TaxStampsDispatchedPayload) error
	Reserve(ctx context.Context, payload domain.WithdrawalRequestedPayload) error
}

// unwrap extracts and decodes the payload of an integration event envelope.
// Anything that is not a well-formed envelope of one of the accepted types
// is logged and skipped.
func unwrap(logger *zap.Logger, ev primitives.Event, target any, accepted ...string) bool {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		logger.Warn("invalid event type", zap.String("go_type", typeNameOf(ev)))
		return false
	}
	if !contains(accepted, env.Type) {
		return false
	}
	if err := json.Unmarshal([]byte(env.PayloadJSON), target); err != nil {
		logger.Warn("failed to unmarshal payload", zap.String("type", env.Type), zap.Error(err))
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// TaxStampsArrivedHandler

type TaxStampsArrivedHandler struct {
	ledger StockLedger
	logger *zap.Logger
}

func NewTaxStampsArrivedHandler(ledger StockLedger, logger *zap.Logger) *TaxStampsArrivedHandler {
	return &TaxStampsArrivedHandler{ledger: ledger, logger: logger.Named("tax_stamps_arrived_handler")}
}

func (h *TaxStampsArrivedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.TaxStampsArrivedPayload
	if !unwrap(h.logger, ev, &payload, "TaxStampsArrived", "TaxStampsArrivedEvent") {
		return nil
	}
	if payload.EventID == uuid.Nil || payload.ScanningLocationID == uuid.Nil {
		h.logger.Warn("missing eventId or scanningLocationId")
		return nil
	}

	h.logger.Info("received",
		zap.String("event_id", payload.EventID.String()),
		zap.String("location_id", payload.ScanningLocationID.String()),
		zap.Int("lines", len(payload.Lines)))

	return h.ledger.HandleArrival(ctx, payload)
}

// TaxStampsDispatchedHandler

type TaxStampsDispatchedHandler struct {
	ledger StockLedger
	logger *zap.Logger
}

func NewTaxStampsDispatchedHandler(ledger StockLedger, logger *zap.Logger) *TaxStampsDispatchedHandler {
	return &TaxStampsDispatchedHandler{ledger: ledger, logger: logger.Named("tax_stamps_dispatched_handler")}
}

func (h *TaxStampsDispatchedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.TaxStampsDispatchedPayload
	if !unwrap(h.logger, ev, &payload, "TaxStampsDispatched", "TaxStampsDispatchedEvent") {
		return nil
	}
	if payload.EventID == uuid.Nil || payload.ScanningLocationID == uuid.Nil {
		h.logger.Warn("missing eventId or scanningLocationId")
		return nil
	}

	h.logger.Info("received",
		zap.String("event_id", payload.EventID.String()),
		zap.String("location_id", payload.ScanningLocationID.String()),
		zap.String("withdrawal_request_id", payload.WithdrawalRequestID.String()))

	return h.ledger.HandleDispatch(ctx, payload)
}

// WithdrawalRequestedHandler

type WithdrawalRequestedHandler struct {
	ledger StockLedger
	logger *zap.Logger
}

func NewWithdrawalRequestedHandler(ledger StockLedger, logger *zap.Logger) *WithdrawalRequestedHandler {
	return &WithdrawalRequestedHandler{ledger: ledger, logger: logger.Named("withdrawal_requested_handler")}
}

func (h *WithdrawalRequestedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.WithdrawalRequestedPayload
	if !unwrap(h.logger, ev, &payload, "WithdrawalRequested", "WithdrawalRequestedEvent") {
		return nil
	}
	if payload.WithdrawalRequestID == uuid.Nil || payload.ScanningLocationID == uuid.Nil {
		h.logger.Warn("missing withdrawalRequestId or scanningLocationId")
		return nil
	}

	h.logger.Info("received",
		zap.String("withdrawal_request_id", payload.WithdrawalRequestID.String()),
		zap.String("location_id", payload.ScanningLocationID.String()))

	return h.ledger.Reserve(ctx, payload)
}
