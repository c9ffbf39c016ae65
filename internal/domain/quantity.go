package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNegativeQuantity   = errors.New("quantity must not be negative")
	ErrZeroQuantityChange = errors.New("quantity change must not be zero")
)

// Quantity is an absolute, non-negative amount of tax stamps.
type Quantity struct {
	value int
}

var ZeroQuantity = Quantity{}

func NewQuantity(value int) (Quantity, error) {
	if value < 0 {
		return Quantity{}, fmt.Errorf("%w: %d", ErrNegativeQuantity, value)
	}
	return Quantity{value: value}, nil
}

// MustQuantity is NewQuantity for literals known to be valid.
func MustQuantity(value int) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Value() int     { return q.value }
func (q Quantity) IsZero() bool   { return q.value == 0 }
func (q Quantity) String() string { return fmt.Sprintf("%d", q.value) }

// CanAdd reports whether q+change stays non-negative and does not overflow.
func (q Quantity) CanAdd(change QuantityChange) bool {
	if change.value > 0 {
		return q.value <= math.MaxInt-change.value
	}
	return q.value+change.value >= 0
}

// Add panics when CanAdd is false.
func (q Quantity) Add(change QuantityChange) Quantity {
	if !q.CanAdd(change) {
		panic(fmt.Sprintf("domain: quantity %d cannot absorb change %d", q.value, change.value))
	}
	return Quantity{value: q.value + change.value}
}

// Sub floors at zero.
func (q Quantity) Sub(other Quantity) Quantity {
	if other.value >= q.value {
		return ZeroQuantity
	}
	return Quantity{value: q.value - other.value}
}

// QuantityChange is a signed, non-zero delta applied to a Quantity.
type QuantityChange struct {
	value int
}

func NewQuantityChange(value int) (QuantityChange, error) {
	if value == 0 {
		return QuantityChange{}, ErrZeroQuantityChange
	}
	return QuantityChange{value: value}, nil
}

func PositiveChange(q Quantity) QuantityChange {
	if q.value == 0 {
		panic(ErrZeroQuantityChange)
	}
	return QuantityChange{value: q.value}
}

func NegativeChange(q Quantity) QuantityChange {
	if q.value == 0 {
		panic(ErrZeroQuantityChange)
	}
	return QuantityChange{value: -q.value}
}

func (c QuantityChange) Value() int       { return c.value }
func (c QuantityChange) IsPositive() bool { return c.value > 0 }
func (c QuantityChange) String() string   { return fmt.Sprintf("%+d", c.value) }

func (c QuantityChange) Negate() QuantityChange {
	return QuantityChange{value: -c.value}
}
