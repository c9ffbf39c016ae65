package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuantitySet      = errors.New("quantity set must contain at least one line")
	ErrDuplicateTaxStampType = errors.New("quantity set must not repeat a tax stamp type")
	ErrZeroQuantity          = errors.New("quantity set lines must be positive")
)

type TaxStampQuantity struct {
	TaxStampTypeID TaxStampTypeID
	Quantity       Quantity
}

// TaxStampQuantitySet is an immutable, non-empty set of quantities keyed by
// tax stamp type. Lines keep their insertion order.
type TaxStampQuantitySet struct {
	lines []TaxStampQuantity
	index map[TaxStampTypeID]int
}

func NewTaxStampQuantitySet(lines ...TaxStampQuantity) (TaxStampQuantitySet, error) {
	if len(lines) == 0 {
		return TaxStampQuantitySet{}, ErrEmptyQuantitySet
	}

	set := TaxStampQuantitySet{
		lines: make([]TaxStampQuantity, 0, len(lines)),
		index: make(map[TaxStampTypeID]int, len(lines)),
	}
	for _, l := range lines {
		if _, dup := set.index[l.TaxStampTypeID]; dup {
			return TaxStampQuantitySet{}, fmt.Errorf("%w: %s", ErrDuplicateTaxStampType, l.TaxStampTypeID)
		}
		if l.Quantity.IsZero() {
			return TaxStampQuantitySet{}, fmt.Errorf("%w: %s", ErrZeroQuantity, l.TaxStampTypeID)
		}
		set.index[l.TaxStampTypeID] = len(set.lines)
		set.lines = append(set.lines, l)
	}
	return set, nil
}

func (s TaxStampQuantitySet) Len() int { return len(s.lines) }

// Lines returns a copy of the set lines.
func (s TaxStampQuantitySet) Lines() []TaxStampQuantity {
	out := make([]TaxStampQuantity, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s TaxStampQuantitySet) Get(typeID TaxStampTypeID) (Quantity, bool) {
	i, ok := s.index[typeID]
	if !ok {
		return Quantity{}, false
	}
	return s.lines[i].Quantity, true
}
