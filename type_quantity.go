package capgains

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// QtyFactor is the scale of a Quantity: 4 decimal places.
const QtyFactor = 10000

// qtyExp is log10(QtyFactor).
const qtyExp = 4

// Quantity is an exact number of units, stored as units × QtyFactor.
//
// Quantities are never decimals: they must remain exact across repeated
// proportional splits of a lot.
type Quantity struct {
	scaled int64
}

// Q returns the quantity from its scaled integer representation.
func Q(scaled int64) Quantity { return Quantity{scaled: scaled} }

// Units returns the quantity of whole units, i.e. Units(10) is ten units.
func Units(n int64) Quantity { return Quantity{scaled: n * QtyFactor} }

// ParseQuantity parses a unit count like "12.5". It fails if the value has
// more precision than the fixed scale can represent exactly.
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return QuantityFromDecimal(d)
}

// QuantityFromDecimal converts a unit count to a Quantity, failing rather than rounding.
func QuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	scaled := d.Shift(qtyExp)
	if !scaled.IsInteger() {
		return Quantity{}, fmt.Errorf("quantity %s has more than %d decimals", d, qtyExp)
	}
	if !scaled.BigInt().IsInt64() {
		return Quantity{}, fmt.Errorf("quantity %s is out of range", d)
	}
	return Quantity{scaled: scaled.IntPart()}, nil
}

// Scaled returns the internal scaled integer.
func (q Quantity) Scaled() int64 { return q.scaled }

// Decimal returns the unit count as an exact decimal.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(q.scaled, -qtyExp) }

func (q Quantity) Add(p Quantity) Quantity     { return Quantity{q.scaled + p.scaled} }
func (q Quantity) Sub(p Quantity) Quantity     { return Quantity{q.scaled - p.scaled} }
func (q Quantity) Equal(p Quantity) bool       { return q.scaled == p.scaled }
func (q Quantity) LessThan(p Quantity) bool    { return q.scaled < p.scaled }
func (q Quantity) GreaterThan(p Quantity) bool { return q.scaled > p.scaled }
func (q Quantity) IsNegative() bool            { return q.scaled < 0 }
func (q Quantity) IsPositive() bool            { return q.scaled > 0 }
func (q Quantity) IsZero() bool                { return q.scaled == 0 }

// Min returns the smallest of q and p.
func (q Quantity) Min(p Quantity) Quantity {
	if p.scaled < q.scaled {
		return p
	}
	return q
}

// String returns the unit count with 4 decimals.
func (q Quantity) String() string { return q.Decimal().StringFixed(qtyExp) }

// MarshalJSON writes the unit count as an exact json number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := QuantityFromDecimal(d)
	if err != nil {
		return err
	}
	*q = v
	return nil
}
