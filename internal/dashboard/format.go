package dashboard

import (
	"math"

	"github.com/shopspring/decimal"
)

// Display precision per value
const (
	compositePlaces   = 2
	eviPlaces         = 5
	ratioPlaces       = 4
	qualityPlaces     = 2
	integrityPlaces   = 3
	percentPlaces     = 1
	inclusivityPlaces = 2
)

// notAvailable is rendered for values JSON cannot carry but a caller might still pass in
const notAvailable = "n/a"

// FormatFixed renders v with exactly places decimals, rounding half away from zero.
// The value is taken at its shortest decimal representation, so 12.345 renders as 12.35.
func FormatFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatPercent renders a probability as a percentage, e.g. 0.4321 as "43.2%"
func FormatPercent(p float64, places int32) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(p).Shift(2).StringFixed(places) + "%"
}
