package risk

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidStep  = errors.New("quantity step must be positive")
	ErrInvalidPrice = errors.New("reference price must be positive")
	ErrZeroQuantity = errors.New("quantity rounds to zero")
)

// Sized is a quantity snapped to the venue step, with its wire representation.
type Sized struct {
	Quantity decimal.Decimal
	Text     string
}

// EffectiveLeverage caps the requested leverage. Anything below 1 counts as 1.
func EffectiveLeverage(requested, max int) int {
	if requested < 1 {
		requested = 1
	}
	if max > 0 && requested > max {
		return max
	}
	return requested
}

// Quantity sizes a position worth amount*leverage at price, snapped to step.
func Quantity(amount decimal.Decimal, leverage int, price, step decimal.Decimal) (Sized, error) {
	if !price.IsPositive() {
		return Sized{}, ErrInvalidPrice
	}
	raw := amount.Mul(decimal.NewFromInt(int64(leverage))).Div(price)
	return RoundToStep(raw, step)
}

// RoundToStep computes round(qty/step)*step with round-half-to-even on the step count,
// then formats with the number of decimals the step carries (integers for step >= 1).
func RoundToStep(qty, step decimal.Decimal) (Sized, error) {
	if !step.IsPositive() {
		return Sized{}, ErrInvalidStep
	}

	steps := qty.Div(step).RoundBank(0)
	places := StepPrecision(step)
	rounded := steps.Mul(step).Round(places)

	if !rounded.IsPositive() {
		return Sized{Quantity: decimal.Zero, Text: decimal.Zero.StringFixed(places)}, ErrZeroQuantity
	}
	return Sized{Quantity: rounded, Text: rounded.StringFixed(places)}, nil
}

// StepPrecision is the number of decimal places implied by step.
func StepPrecision(step decimal.Decimal) int32 {
	if step.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return 0
	}
	s := step.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return int32(len(s) - i - 1)
	}
	return 0
}

// PercentOf returns qty*pct/100.
func PercentOf(qty decimal.Decimal, pct float64) decimal.Decimal {
	return qty.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
}
