package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

func line(typeID domain.TaxStampTypeID, qty int) domain.TaxStampQuantity {
	return domain.TaxStampQuantity{TaxStampTypeID: typeID, Quantity: domain.MustQuantity(qty)}
}

func set(t *testing.T, lines ...domain.TaxStampQuantity) domain.TaxStampQuantitySet {
	t.Helper()
	s, err := domain.NewTaxStampQuantitySet(lines...)
	require.NoError(t, err)
	return s
}

func balance(t *testing.T, s *domain.Stock, typeID domain.TaxStampTypeID) int {
	t.Helper()
	item, ok := s.Item(typeID)
	require.True(t, ok, "expected item %s", typeID)
	return item.Quantity.Value()
}

// stocked returns a stock holding qty of a fresh tax stamp type.
func stocked(t *testing.T, qty int, opts ...domain.Option) (*domain.Stock, domain.TaxStampTypeID) {
	t.Helper()
	s := domain.CreateStock(domain.NewScanningLocationID(), opts...)
	typeID := domain.NewTaxStampTypeID()
	require.NoError(t, s.HandleArrival(domain.NewArrivalEventID(), set(t, line(typeID, qty))))
	return s, typeID
}

func changes(tx domain.StockTransaction) []int {
	var out []int
	for _, it := range tx.Items() {
		out = append(out, it.QuantityChange.Value())
	}
	return out
}

func types(txs []domain.StockTransaction) []domain.StockTransactionType {
	out := make([]domain.StockTransactionType, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Type)
	}
	return out
}
