// Package validator checks that a municipality's vote percentages sum to 100.
//
// Upstream percentages are rounded independently, so three canonical totals
// are tolerated. Any other total is reported as a mismatch, never adjusted.
package validator

import (
	"strings"

	"github.com/shopspring/decimal"

	"muniresults/internal/models"
)

// ToleratedTotals are the canonical sums accepted as 100%.
var ToleratedTotals = []string{"100", "100.000000001", "99.999999999"}

// Accumulator is the running high-precision sum of one municipality.
// The zero value is an empty sum.
type Accumulator struct {
	total decimal.Decimal
	count int
}

// Add folds one percentage into the sum.
func (a *Accumulator) Add(share decimal.Decimal) {
	a.total = a.total.Add(share)
	a.count++
}

// Total returns the current sum.
func (a *Accumulator) Total() decimal.Decimal {
	return a.total
}

// Count returns how many values were added.
func (a *Accumulator) Count() int {
	return a.count
}

// Reset empties the accumulator.
func (a *Accumulator) Reset() {
	a.total = decimal.Zero
	a.count = 0
}

// Tolerated reports whether total renders to one of the accepted literals.
func Tolerated(total decimal.Decimal) bool {
	s := total.String()
	for _, ok := range ToleratedTotals {
		if s == ok {
			return true
		}
	}
	return false
}

// Check compares the sum held by acc for municipality m against the tolerated
// totals. A MismatchRecord is returned with ok=false when it is not tolerated.
func Check(m models.MunicipalityDescriptor, acc *Accumulator) (models.MismatchRecord, bool) {
	if Tolerated(acc.Total()) {
		return models.MismatchRecord{}, true
	}
	return models.MismatchRecord{
		MunicipalityName: m.DisplayName,
		StateCode:        strings.ToUpper(m.StateCode),
		ComputedTotal:    acc.Total(),
	}, false
}

// Validate sums shares for municipality m and checks the total.
func Validate(m models.MunicipalityDescriptor, shares []decimal.Decimal) (models.MismatchRecord, bool) {
	var acc Accumulator
	for _, s := range shares {
		acc.Add(s)
	}
	return Check(m, &acc)
}
