package fxledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// msgNotPositive is the user facing message for non-positive amounts.
const msgNotPositive = "amount/price must be greater than zero"

// ValidationError reports an input rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func notPositive(field string, got fmt.Stringer) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("%s, got %s", msgNotPositive, got)}
}

// InsufficientBalanceError reports a request for more units than available.
type InsufficientBalanceError struct {
	Requested Quantity
	Available Quantity
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for this sale: requested %s, available %s", e.Requested, e.Available)
}

// PersistenceError reports a failed save after the in-memory mutation was applied.
//
// The ledger does not roll back: the change is visible in memory but may not
// survive a reload until a later save succeeds.
type PersistenceError struct {
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not save %s, the change may not survive a reload: %v", e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ComputationError describes a guarded numeric edge case. It is logged, never returned.
type ComputationError struct {
	Op          string
	Numerator   decimal.Decimal
	Denominator decimal.Decimal
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: division of %s by near-zero %s resolved to 0", e.Op, e.Numerator, e.Denominator)
}

// divisionEpsilon is the magnitude under which a denominator is treated as zero.
var divisionEpsilon = decimal.New(1, -12)

// safeDiv returns num/den, or 0 with a logged warning when den is zero or near zero.
func safeDiv(num, den decimal.Decimal, op string) decimal.Decimal {
	if den.Abs().LessThan(divisionEpsilon) {
		if !num.IsZero() {
			logger.WithFields(logrus.Fields{
				"op":          op,
				"numerator":   num.String(),
				"denominator": den.String(),
			}).Warn((&ComputationError{Op: op, Numerator: num, Denominator: den}).Error())
		}
		return decimal.Zero
	}
	return num.Div(den)
}
