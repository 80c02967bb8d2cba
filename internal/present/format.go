package present

import (
	"strconv"

	"github.com/shopspring/decimal"

	"stability-dashboard/frontend/internal/predict"
)

const (
	confidencePlaces = 2
	weightPlaces     = 3
)

// fixed renders v with exactly places decimals. Rounding happens on the exact
// binary value of v with ties going away from zero, so 1.005 stays 1.00 while
// 0.125 becomes 0.13.
func fixed(v float64, places int32) string {
	exact, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 40, 64))
	if err != nil {
		return strconv.FormatFloat(v, 'f', int(places), 64)
	}
	return exact.StringFixed(places)
}

// FormatConfidence renders a confidence score with two decimals.
func FormatConfidence(v float64) string {
	return fixed(v, confidencePlaces)
}

// FormatWeight renders a factor weight: three decimals when numeric, verbatim otherwise.
func FormatWeight(f predict.Factor) string {
	if v, ok := f.Numeric(); ok {
		return fixed(v, weightPlaces)
	}
	return f.WeightText()
}

// FormatFactor renders one bullet as "<name> (<weight>)".
func FormatFactor(f predict.Factor) string {
	return f.Name + " (" + FormatWeight(f) + ")"
}
