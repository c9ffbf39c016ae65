package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

func roundTrip(t *testing.T, s *domain.Stock) *domain.Stock {
	t.Helper()
	raw, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)

	var snap domain.StockSnapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	restored, err := domain.RestoreStock(snap)
	require.NoError(t, err)
	return restored
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := domain.CreateStock(domain.NewScanningLocationID(), domain.WithDispatchMode(domain.DispatchRequiresReservation))
	a, b := domain.NewTaxStampTypeID(), domain.NewTaxStampTypeID()
	arrival := domain.NewArrivalEventID()
	require.NoError(t, s.HandleArrival(arrival, set(t, line(a, 100), line(b, 40))))
	require.NoError(t, s.HandleArrival(arrival, set(t, line(a, 90), line(b, 40))))

	wr := domain.NewWithdrawalRequestID()
	require.NoError(t, s.Reserve(wr, set(t, line(a, 50))))
	require.NoError(t, s.HandleDispatch(domain.NewDispatchEventID(), wr, set(t, line(a, 20))))
	s.MarkPersisted(7)

	restored := roundTrip(t, s)

	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, s.ScanningLocationID(), restored.ScanningLocationID())
	assert.Equal(t, int64(7), restored.Version())
	assert.Equal(t, domain.DispatchRequiresReservation, restored.DispatchMode())
	assert.Equal(t, s.Items(), restored.Items())
	assert.Equal(t, s.Transactions(), restored.Transactions())
	assert.Equal(t, s.Reservations(), restored.Reservations())
	assert.Equal(t, 30, restored.ReservedQuantity(a).Value())
}

func TestRestoredStockKeepsIdempotency(t *testing.T) {
	s, a := stocked(t, 100)
	arrival := domain.NewArrivalEventID()
	require.NoError(t, s.HandleArrival(arrival, set(t, line(a, 10))))

	wr := domain.NewWithdrawalRequestID()
	dispatch := domain.NewDispatchEventID()
	require.NoError(t, s.Reserve(wr, set(t, line(a, 50))))
	require.NoError(t, s.HandleDispatch(dispatch, wr, set(t, line(a, 20))))

	restored := roundTrip(t, s)

	require.NoError(t, restored.HandleArrival(arrival, set(t, line(a, 10))))
	require.NoError(t, restored.HandleDispatch(dispatch, wr, set(t, line(a, 20))))

	assert.Equal(t, 90, balance(t, restored, a))
	r, _ := restored.Reservation(wr)
	assert.Equal(t, 30, r.Remaining(a).Value())

	// the next entry continues the sequence
	txs := restored.TransactionsNewestFirst()
	assert.Equal(t, txs[1].Seq+1, txs[0].Seq)
}

func TestRestoreStockRejectsInconsistentSnapshot(t *testing.T) {
	s, a := stocked(t, 100)
	require.NoError(t, s.HandleDispatch(domain.NewDispatchEventID(), domain.NewWithdrawalRequestID(), set(t, line(a, 10))))

	t.Run("balance does not match ledger", func(t *testing.T) {
		snap := s.Snapshot()
		snap.Items[0].Quantity = 95
		_, err := domain.RestoreStock(snap)
		assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)
	})

	t.Run("sequence out of order", func(t *testing.T) {
		snap := s.Snapshot()
		snap.Transactions[1].Seq = snap.Transactions[0].Seq
		_, err := domain.RestoreStock(snap)
		assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)
	})

	t.Run("unknown dispatch mode", func(t *testing.T) {
		snap := s.Snapshot()
		snap.DispatchMode = "sometimes"
		_, err := domain.RestoreStock(snap)
		assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)
	})
}
