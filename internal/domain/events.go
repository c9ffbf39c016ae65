package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
)

// =========== Incoming event payloads ===========

type TaxStampLine struct {
	TaxStampTypeID uuid.UUID `json:"taxStampTypeId"`
	Quantity       int       `json:"quantity"`
}

type TaxStampLines []TaxStampLine

// QuantitySet validates the lines and turns them into a quantity set.
func (ls TaxStampLines) QuantitySet() (TaxStampQuantitySet, error) {
	lines := make([]TaxStampQuantity, 0, len(ls))
	for _, l := range ls {
		if l.TaxStampTypeID == uuid.Nil {
			return TaxStampQuantitySet{}, fmt.Errorf("tax stamp type: %w", ErrMissingIdentity)
		}
		q, err := NewQuantity(l.Quantity)
		if err != nil {
			return TaxStampQuantitySet{}, fmt.Errorf("tax stamp type %s: %w", l.TaxStampTypeID, err)
		}
		lines = append(lines, TaxStampQuantity{TaxStampTypeID: TaxStampTypeID{l.TaxStampTypeID}, Quantity: q})
	}
	return NewTaxStampQuantitySet(lines...)
}

// TaxStampsArrived (from logistics.events)
type TaxStampsArrivedPayload struct {
	EventID            uuid.UUID     `json:"eventId"`
	ScanningLocationID uuid.UUID     `json:"scanningLocationId"`
	Lines              TaxStampLines `json:"lines"`
	OccurredAtUtc      time.Time     `json:"occurredAtUtc"`
}

// TaxStampsDispatched (from logistics.events)
type TaxStampsDispatchedPayload struct {
	EventID             uuid.UUID     `json:"eventId"`
	ScanningLocationID  uuid.UUID     `json:"scanningLocationId"`
	WithdrawalRequestID uuid.UUID     `json:"withdrawalRequestId"`
	Lines               TaxStampLines `json:"lines"`
	OccurredAtUtc       time.Time     `json:"occurredAtUtc"`
}

// WithdrawalRequested (from withdrawals.events)
type WithdrawalRequestedPayload struct {
	WithdrawalRequestID uuid.UUID     `json:"withdrawalRequestId"`
	ScanningLocationID  uuid.UUID     `json:"scanningLocationId"`
	Lines               TaxStampLines `json:"lines"`
}

// =========== Outgoing events Stock -> others ===========

type StockAdjustedEvent struct {
	primitives.BaseEvent
	StockID            uuid.UUID `json:"stockId"`
	ScanningLocationID uuid.UUID `json:"scanningLocationId"`
	TaxStampTypeID     uuid.UUID `json:"taxStampTypeId"`
	Change             int       `json:"change"`
	Quantity           int       `json:"quantity"`
	ReservedQuantity   int       `json:"reservedQuantity"`
	AvailableQuantity  int       `json:"availableQuantity"`
	Reason             string    `json:"reason"`
	LedgerSeq          int64     `json:"ledgerSeq"`
	OccurredAtUtc      time.Time `json:"occurredAtUtc"`
}

func NewStockAdjustedEvent(s *Stock, t StockTransaction, line StockTransactionItem) *StockAdjustedEvent {
	item, _ := s.Item(line.TaxStampTypeID)
	ev := &StockAdjustedEvent{
		BaseEvent:          primitives.NewBaseEvent(),
		StockID:            s.ID().UUID,
		ScanningLocationID: s.ScanningLocationID().UUID,
		TaxStampTypeID:     line.TaxStampTypeID.UUID,
		Change:             line.QuantityChange.Value(),
		Quantity:           item.Quantity.Value(),
		ReservedQuantity:   s.ReservedQuantity(line.TaxStampTypeID).Value(),
		AvailableQuantity:  s.AvailableQuantity(line.TaxStampTypeID).Value(),
		Reason:             string(t.Type),
		LedgerSeq:          t.Seq,
		OccurredAtUtc:      time.Now().UTC(),
	}
	ev.SetRoutingKey("StockAdjusted")
	return ev
}

type StockReservedEvent struct {
	primitives.BaseEvent
	StockID             uuid.UUID     `json:"stockId"`
	ScanningLocationID  uuid.UUID     `json:"scanningLocationId"`
	WithdrawalRequestID uuid.UUID     `json:"withdrawalRequestId"`
	ReservedAtUtc       time.Time     `json:"reservedAtUtc"`
	Lines               TaxStampLines `json:"lines"`
}

func NewStockReservedEvent(s *Stock, withdrawalRequestID WithdrawalRequestID, lines TaxStampLines) *StockReservedEvent {
	ev := &StockReservedEvent{
		BaseEvent:           primitives.NewBaseEvent(),
		StockID:             s.ID().UUID,
		ScanningLocationID:  s.ScanningLocationID().UUID,
		WithdrawalRequestID: withdrawalRequestID.UUID,
		ReservedAtUtc:       time.Now().UTC(),
		Lines:               lines,
	}
	ev.SetRoutingKey("StockReserved")
	return ev
}

type StockReservationFailedEvent struct {
	primitives.BaseEvent
	ScanningLocationID  uuid.UUID `json:"scanningLocationId"`
	WithdrawalRequestID uuid.UUID `json:"withdrawalRequestId"`
	Reason              string    `json:"reason"`
	FailedAtUtc         time.Time `json:"failedAtUtc"`
}

func NewStockReservationFailedEvent(locationID, withdrawalRequestID uuid.UUID, reason string) *StockReservationFailedEvent {
	ev := &StockReservationFailedEvent{
		BaseEvent:           primitives.NewBaseEvent(),
		ScanningLocationID:  locationID,
		WithdrawalRequestID: withdrawalRequestID,
		Reason:              reason,
		FailedAtUtc:         time.Now().UTC(),
	}
	ev.SetRoutingKey("StockReservationFailed")
	return ev
}

type StockReservationCompletedEvent struct {
	primitives.BaseEvent
	StockID             uuid.UUID `json:"stockId"`
	ScanningLocationID  uuid.UUID `json:"scanningLocationId"`
	WithdrawalRequestID uuid.UUID `json:"withdrawalRequestId"`
	CompletedAtUtc      time.Time `json:"completedAtUtc"`
}

func NewStockReservationCompletedEvent(s *Stock, withdrawalRequestID WithdrawalRequestID) *StockReservationCompletedEvent {
	ev := &StockReservationCompletedEvent{
		BaseEvent:           primitives.NewBaseEvent(),
		StockID:             s.ID().UUID,
		ScanningLocationID:  s.ScanningLocationID().UUID,
		WithdrawalRequestID: withdrawalRequestID.UUID,
		CompletedAtUtc:      time.Now().UTC(),
	}
	ev.SetRoutingKey("StockReservationCompleted")
	return ev
}

// StockEventRejected reports an upstream event the ledger refused.
// NeedsReconciliation is set when an earlier delivery of the same event was
// reverted but the corrected payload could not be booked.
type StockEventRejectedEvent struct {
	primitives.BaseEvent
	ScanningLocationID  uuid.UUID `json:"scanningLocationId"`
	SourceEventType     string    `json:"sourceEventType"`
	SourceEventID       uuid.UUID `json:"sourceEventId"`
	Reason              string    `json:"reason"`
	NeedsReconciliation bool      `json:"needsReconciliation"`
	RejectedAtUtc       time.Time `json:"rejectedAtUtc"`
}

func NewStockEventRejectedEvent(locationID uuid.UUID, sourceType string, sourceID uuid.UUID, reason string, needsReconciliation bool) *StockEventRejectedEvent {
	ev := &StockEventRejectedEvent{
		BaseEvent:           primitives.NewBaseEvent(),
		ScanningLocationID:  locationID,
		SourceEventType:     sourceType,
		SourceEventID:       sourceID,
		Reason:              reason,
		NeedsReconciliation: needsReconciliation,
		RejectedAtUtc:       time.Now().UTC(),
	}
	ev.SetRoutingKey("StockEventRejected")
	return ev
}
