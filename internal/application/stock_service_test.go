package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type serviceFixture struct {
	svc      *StockService
	repo     *memStockRepo
	outbox   *recordingOutbox
	lock     *countingLock
	location uuid.UUID
	red      uuid.UUID
}

func newServiceFixture(t *testing.T, mode domain.DispatchMode) *serviceFixture {
	f := &serviceFixture{
		repo:     newMemStockRepo(),
		outbox:   &recordingOutbox{},
		lock:     &countingLock{},
		location: uuid.New(),
		red:      uuid.New(),
	}
	f.svc = NewStockService(f.repo, f.lock, f.outbox, StockServiceOptions{DispatchMode: mode}, zaptest.NewLogger(t))
	return f
}

func (f *serviceFixture) arrival(id uuid.UUID, qty int) domain.TaxStampsArrivedPayload {
	return domain.TaxStampsArrivedPayload{
		EventID:            id,
		ScanningLocationID: f.location,
		Lines:              domain.TaxStampLines{{TaxStampTypeID: f.red, Quantity: qty}},
	}
}

func (f *serviceFixture) dispatch(id, withdrawal uuid.UUID, qty int) domain.TaxStampsDispatchedPayload {
	return domain.TaxStampsDispatchedPayload{
		EventID:             id,
		ScanningLocationID:  f.location,
		WithdrawalRequestID: withdrawal,
		Lines:               domain.TaxStampLines{{TaxStampTypeID: f.red, Quantity: qty}},
	}
}

func (f *serviceFixture) withdrawal(id uuid.UUID, qty int) domain.WithdrawalRequestedPayload {
	return domain.WithdrawalRequestedPayload{
		WithdrawalRequestID: id,
		ScanningLocationID:  f.location,
		Lines:               domain.TaxStampLines{{TaxStampTypeID: f.red, Quantity: qty}},
	}
}

func (f *serviceFixture) locationID() domain.ScanningLocationID {
	return domain.ScanningLocationID{UUID: f.location}
}

func TestHandleArrivalCreatesStockAndEmitsAdjustment(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchLedgerOnly)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 100)))

	assert.Equal(t, int64(1), f.repo.version(f.locationID()))
	adjusted := eventsOf[*domain.StockAdjustedEvent](f.outbox)
	require.Len(t, adjusted, 1)
	assert.Equal(t, f.red, adjusted[0].TaxStampTypeID)
	assert.Equal(t, 100, adjusted[0].Change)
	assert.Equal(t, 100, adjusted[0].Quantity)
	assert.Equal(t, 100, adjusted[0].AvailableQuantity)
	assert.Equal(t, "ARRIVAL", adjusted[0].Reason)
	assert.Equal(t, "StockAdjusted", adjusted[0].GetRoutingKey())

	assert.Equal(t, 1, f.lock.acquired)
	assert.Equal(t, 1, f.lock.released)
}

func TestRedeliveredArrivalEmitsRevertAndReapply(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchLedgerOnly)
	ctx := context.Background()
	ev := uuid.New()

	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(ev, 100)))
	f.outbox.reset()
	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(ev, 80)))

	adjusted := eventsOf[*domain.StockAdjustedEvent](f.outbox)
	require.Len(t, adjusted, 2)
	assert.Equal(t, "REVERT", adjusted[0].Reason)
	assert.Equal(t, -100, adjusted[0].Change)
	assert.Equal(t, "ARRIVAL", adjusted[1].Reason)
	assert.Equal(t, 80, adjusted[1].Quantity)
	assert.Equal(t, int64(2), f.repo.version(f.locationID()))
}

func TestReserveEmitsOutcome(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchLedgerOnly)
	ctx := context.Background()
	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 100)))
	f.outbox.reset()

	wr := uuid.New()
	require.NoError(t, f.svc.Reserve(ctx, f.withdrawal(wr, 60)))
	reserved := eventsOf[*domain.StockReservedEvent](f.outbox)
	require.Len(t, reserved, 1)
	assert.Equal(t, wr, reserved[0].WithdrawalRequestID)

	// same withdrawal request again is a no-op
	f.outbox.reset()
	require.NoError(t, f.svc.Reserve(ctx, f.withdrawal(wr, 60)))
	assert.Empty(t, f.outbox.events)
	assert.Equal(t, int64(2), f.repo.version(f.locationID()))

	require.NoError(t, f.svc.Reserve(ctx, f.withdrawal(uuid.New(), 41)))
	failed := eventsOf[*domain.StockReservationFailedEvent](f.outbox)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Reason, "insufficient quantity to reserve")
}

func TestReserveWithMalformedLinesFails(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchLedgerOnly)

	require.NoError(t, f.svc.Reserve(context.Background(), domain.WithdrawalRequestedPayload{
		WithdrawalRequestID: uuid.New(),
		ScanningLocationID:  f.location,
	}))

	require.Len(t, eventsOf[*domain.StockReservationFailedEvent](f.outbox), 1)
	assert.Zero(t, f.lock.acquired)
}

func TestDispatchCompletesReservation(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchRequiresReservation)
	ctx := context.Background()
	wr := uuid.New()
	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 100)))
	require.NoError(t, f.svc.Reserve(ctx, f.withdrawal(wr, 50)))
	f.outbox.reset()

	require.NoError(t, f.svc.HandleDispatch(ctx, f.dispatch(uuid.New(), wr, 50)))

	completed := eventsOf[*domain.StockReservationCompletedEvent](f.outbox)
	require.Len(t, completed, 1)
	assert.Equal(t, wr, completed[0].WithdrawalRequestID)

	adjusted := eventsOf[*domain.StockAdjustedEvent](f.outbox)
	require.Len(t, adjusted, 1)
	assert.Equal(t, 50, adjusted[0].Quantity)
	assert.Equal(t, 0, adjusted[0].ReservedQuantity)
}

func TestDispatchWithoutReservationIsRejectedWhenRequired(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchRequiresReservation)
	ctx := context.Background()
	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 100)))
	f.outbox.reset()

	ev := uuid.New()
	require.NoError(t, f.svc.HandleDispatch(ctx, f.dispatch(ev, uuid.New(), 10)))

	rejected := eventsOf[*domain.StockEventRejectedEvent](f.outbox)
	require.Len(t, rejected, 1)
	assert.Equal(t, ev, rejected[0].SourceEventID)
	assert.Equal(t, "TaxStampsDispatched", rejected[0].SourceEventType)
	assert.False(t, rejected[0].NeedsReconciliation)
	assert.Empty(t, eventsOf[*domain.StockAdjustedEvent](f.outbox))
	assert.Equal(t, int64(1), f.repo.version(f.locationID()), "rejection is not saved")
}

func TestFailedCorrectionIsSavedAndFlaggedForReconciliation(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchLedgerOnly)
	ctx := context.Background()
	ev, wr := uuid.New(), uuid.New()
	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 100)))
	require.NoError(t, f.svc.HandleDispatch(ctx, f.dispatch(ev, wr, 10)))
	f.outbox.reset()

	require.NoError(t, f.svc.HandleDispatch(ctx, f.dispatch(ev, wr, 200)))

	assert.Equal(t, int64(3), f.repo.version(f.locationID()))
	adjusted := eventsOf[*domain.StockAdjustedEvent](f.outbox)
	require.Len(t, adjusted, 1)
	assert.Equal(t, "REVERT", adjusted[0].Reason)
	assert.Equal(t, 100, adjusted[0].Quantity)

	rejected := eventsOf[*domain.StockEventRejectedEvent](f.outbox)
	require.Len(t, rejected, 1)
	assert.True(t, rejected[0].NeedsReconciliation)
}

func TestSaveConflictIsRetried(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchLedgerOnly)
	ctx := context.Background()
	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 100)))
	f.outbox.reset()

	f.repo.conflicts = 2
	require.NoError(t, f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 5)))

	assert.Equal(t, int64(2), f.repo.version(f.locationID()))
	assert.Len(t, eventsOf[*domain.StockAdjustedEvent](f.outbox), 1)

	f.repo.conflicts = 3
	err := f.svc.HandleArrival(ctx, f.arrival(uuid.New(), 5))
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestLockFailureIsReturned(t *testing.T) {
	f := newServiceFixture(t, domain.DispatchLedgerOnly)
	f.lock.err = domain.ErrLockNotAcquired

	err := f.svc.HandleArrival(context.Background(), f.arrival(uuid.New(), 1))
	assert.True(t, errors.Is(err, domain.ErrLockNotAcquired))
	assert.Zero(t, f.repo.saves)
}
