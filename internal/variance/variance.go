package variance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Balanced Status = "balanced"
	Over     Status = "over"
	Short    Status = "short"
)

// Tolerance is the smallest difference that counts as a variance.
var Tolerance = decimal.New(1, -2)

// Parse reads a counted or expected amount as typed by staff. An empty
// string is zero; thousands separators and surrounding spaces are ignored.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// Of returns actual - expected rounded to two places.
func Of(actual, expected decimal.Decimal) decimal.Decimal {
	return actual.Sub(expected).Round(2)
}

// Compute parses both sides and returns their variance.
func Compute(actual, expected string) (decimal.Decimal, error) {
	a, err := Parse(actual)
	if err != nil {
		return decimal.Zero, err
	}
	e, err := Parse(expected)
	if err != nil {
		return decimal.Zero, err
	}
	return Of(a, e), nil
}

func Classify(v decimal.Decimal) Status {
	switch {
	case v.Abs().LessThan(Tolerance):
		return Balanced
	case v.IsPositive():
		return Over
	default:
		return Short
	}
}

// Any reports whether at least one of the variances is outside tolerance.
func Any(variances ...decimal.Decimal) bool {
	for _, v := range variances {
		if Classify(v) != Balanced {
			return true
		}
	}
	return false
}

// Result is a variance paired with its classification.
type Result struct {
	Amount decimal.Decimal `json:"amount"`
	Status Status          `json:"status"`
}

func NewResult(actual, expected decimal.Decimal) Result {
	v := Of(actual, expected)
	return Result{Amount: v, Status: Classify(v)}
}
