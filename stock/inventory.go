/*
inventory.go - Physical count helpers

PURPOSE:
  Pure helpers for building up a physical inventory: recording a count on a
  line and computing document totals. The submit/validate/reject lifecycle
  lives in lifecycle.go; discrepancy classification lives in reconcile.go.

TOTALS:
  TotalVariance and VarianceValue are sums of ABSOLUTE line variances and
  variance values: an inventory where one product is over by 3 and another
  short by 3 has a total variance of 6, not zero.
*/
package stock

import "github.com/shopspring/decimal"

// CountLine returns a copy of the line with the physical quantity recorded
// and variance fields computed. unitCost values the variance (CUMP of the
// product at the counted store).
func CountLine(l InventoryLine, physical, unitCost decimal.Decimal) InventoryLine {
	p := physical
	l.PhysicalQuantity = &p
	l.Variance = physical.Sub(l.TheoreticalQuantity)
	l.VarianceValue = l.Variance.Mul(unitCost)
	return l
}

// InventoryTotals sums absolute variances and variance values across lines.
// Uncounted lines contribute nothing.
func InventoryTotals(lines []InventoryLine) (totalVariance, varianceValue decimal.Decimal) {
	totalVariance = decimal.Zero
	varianceValue = decimal.Zero
	for _, l := range lines {
		if !l.Counted() {
			continue
		}
		totalVariance = totalVariance.Add(l.Variance.Abs())
		varianceValue = varianceValue.Add(l.VarianceValue.Abs())
	}
	return totalVariance, varianceValue
}
