package domain

import "fmt"

// StockItem is the running balance of one tax stamp type at a location.
type StockItem struct {
	TaxStampTypeID TaxStampTypeID
	Quantity       Quantity
}

func NewStockItem(typeID TaxStampTypeID) *StockItem {
	return &StockItem{
		TaxStampTypeID: typeID,
		Quantity:       ZeroQuantity,
	}
}

func (s *StockItem) CanApply(change QuantityChange) bool {
	return s.Quantity.CanAdd(change)
}

// Apply must only be called after CanApply; anything else is a bug in the engine.
func (s *StockItem) Apply(change QuantityChange) {
	if !s.CanApply(change) {
		panic(fmt.Sprintf("domain: stock item %s: apply %s on balance %s without CanApply",
			s.TaxStampTypeID, change, s.Quantity))
	}
	s.Quantity = s.Quantity.Add(change)
}

func (s *StockItem) CanReserve(requested Quantity, alreadyReserved int) bool {
	balance := s.Quantity.Value()
	return alreadyReserved <= balance && requested.Value() <= balance-alreadyReserved
}
