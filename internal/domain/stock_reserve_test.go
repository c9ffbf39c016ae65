package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

func TestReserve(t *testing.T) {
	s, a := stocked(t, 100)
	wr := domain.NewWithdrawalRequestID()

	require.NoError(t, s.Reserve(wr, set(t, line(a, 60))))

	assert.Equal(t, 100, balance(t, s, a), "reserving does not move stock")
	assert.Equal(t, 60, s.ReservedQuantity(a).Value())
	assert.Equal(t, 40, s.AvailableQuantity(a).Value())
	assert.Len(t, s.Transactions(), 1)

	r, ok := s.Reservation(wr)
	require.True(t, ok)
	assert.Equal(t, domain.ReservationCreated, r.Status)
	assert.Equal(t, 60, r.Remaining(a).Value())
}

func TestReserveRejections(t *testing.T) {
	t.Run("missing type", func(t *testing.T) {
		s, _ := stocked(t, 100)
		err := s.Reserve(domain.NewWithdrawalRequestID(), set(t, line(domain.NewTaxStampTypeID(), 1)))
		assert.ErrorIs(t, err, domain.ErrUnknownTaxStampType)
		assert.Empty(t, s.Reservations())
	})

	t.Run("too much", func(t *testing.T) {
		s, a := stocked(t, 100)
		err := s.Reserve(domain.NewWithdrawalRequestID(), set(t, line(a, 101)))
		assert.ErrorIs(t, err, domain.ErrInsufficientReservable)
	})

	t.Run("already fully reserved", func(t *testing.T) {
		s, a := stocked(t, 100)
		require.NoError(t, s.Reserve(domain.NewWithdrawalRequestID(), set(t, line(a, 100))))

		err := s.Reserve(domain.NewWithdrawalRequestID(), set(t, line(a, 1)))
		assert.ErrorIs(t, err, domain.ErrInsufficientReservable)
		assert.Len(t, s.Reservations(), 1)
	})

	t.Run("duplicate withdrawal request", func(t *testing.T) {
		s, a := stocked(t, 100)
		wr := domain.NewWithdrawalRequestID()
		require.NoError(t, s.Reserve(wr, set(t, line(a, 10))))

		err := s.Reserve(wr, set(t, line(a, 10)))
		assert.ErrorIs(t, err, domain.ErrReservationExists)
		assert.Equal(t, 10, s.ReservedQuantity(a).Value())
	})

	t.Run("all lines or nothing", func(t *testing.T) {
		s, a := stocked(t, 100)
		err := s.Reserve(domain.NewWithdrawalRequestID(), set(t, line(a, 10), line(domain.NewTaxStampTypeID(), 1)))
		assert.ErrorIs(t, err, domain.ErrUnknownTaxStampType)
		assert.Equal(t, 0, s.ReservedQuantity(a).Value())
	})
}

func TestCompletedReservationsNoLongerCount(t *testing.T) {
	s, a := stocked(t, 100)
	wr := domain.NewWithdrawalRequestID()
	require.NoError(t, s.Reserve(wr, set(t, line(a, 100))))
	require.NoError(t, s.HandleDispatch(domain.NewDispatchEventID(), wr, set(t, line(a, 100))))
	require.NoError(t, s.HandleArrival(domain.NewArrivalEventID(), set(t, line(a, 30))))

	require.NoError(t, s.Reserve(domain.NewWithdrawalRequestID(), set(t, line(a, 30))))
	assert.Equal(t, 30, s.ReservedQuantity(a).Value())
	assert.Len(t, s.Reservations(), 2)
}

func TestReserveBoundHoldsAtMaxInt(t *testing.T) {
	s, a := stocked(t, math.MaxInt)
	first := domain.NewWithdrawalRequestID()
	require.NoError(t, s.Reserve(first, set(t, line(a, math.MaxInt))))

	err := s.Reserve(domain.NewWithdrawalRequestID(), set(t, line(a, 1)))
	assert.ErrorIs(t, err, domain.ErrInsufficientReservable)
	assert.Len(t, s.Reservations(), 1)

	assert.Equal(t, math.MaxInt, s.ReservedQuantity(a).Value())
	assert.Equal(t, 0, s.AvailableQuantity(a).Value())

	// a dispatch for another withdrawal would eat into the claim
	err = s.HandleDispatch(domain.NewDispatchEventID(), domain.NewWithdrawalRequestID(), set(t, line(a, 1)))
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.Equal(t, math.MaxInt, balance(t, s, a))

	require.NoError(t, s.HandleDispatch(domain.NewDispatchEventID(), first, set(t, line(a, 1))))
	assert.Equal(t, math.MaxInt-1, s.ReservedQuantity(a).Value())
}
