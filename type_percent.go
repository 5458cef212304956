package fxledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a percentage (12.5 means 12.5%).
type Percent float64

// percentOf returns num/den*100, 0 when den is zero or near zero.
func percentOf(num, den decimal.Decimal) Percent {
	ratio := safeDiv(num, den, "percent")
	return Percent(ratio.Mul(decimal.NewFromInt(100)).InexactFloat64())
}

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" {
		return "-"
	}
	return res
}
