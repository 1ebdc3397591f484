/*
valuation.go - Weighted-average unit cost (CUMP) recomputation

PURPOSE:
  Recomputes the weighted-average unit cost for each receipt line against
  the current on-hand quantity and cost, without committing anything. The
  caller applies the new costs when the receipt is actually posted.

FORMULA:
  newCUMP = (currentQty*currentCUMP + qtyReceived*unitCost) / (currentQty + qtyReceived)
  With no current stock, the new CUMP is simply the incoming unit cost.

ROUNDING:
  Results are rounded to 2 decimal units of currency, half away from zero
  (decimal.Round semantics).
*/
package stock

import "github.com/shopspring/decimal"

// CUMPImpact is the effect of one receipt line on a product's average cost.
type CUMPImpact struct {
	ProductID      ProductID       `json:"productId"`
	OldAverageCost decimal.Decimal `json:"oldAverageCost"`
	NewAverageCost decimal.Decimal `json:"newAverageCost"`
}

// CalculateCUMPImpact computes the new weighted-average unit cost each line
// of the receipt would produce at the receiving store. Pure and safe to call
// speculatively; nothing is committed.
func CalculateCUMPImpact(doc *Receipt, stockLevels []StockLevel) []CUMPImpact {
	current := make(map[ProductID]StockLevel, len(stockLevels))
	for _, sl := range stockLevels {
		if sl.StoreID == doc.StoreID {
			current[sl.ProductID] = sl
		}
	}

	impacts := make([]CUMPImpact, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		sl := current[line.ProductID] // zero-valued when the product is new to the store
		impacts = append(impacts, CUMPImpact{
			ProductID:      line.ProductID,
			OldAverageCost: sl.AverageCost,
			NewAverageCost: weightedAverageCost(sl.Quantity, sl.AverageCost, line.Quantity, line.UnitCost),
		})
	}
	return impacts
}

func weightedAverageCost(currentQty, currentCost, receivedQty, unitCost decimal.Decimal) decimal.Decimal {
	if !currentQty.IsPositive() {
		return unitCost.Round(2)
	}
	totalValue := currentQty.Mul(currentCost).Add(receivedQty.Mul(unitCost))
	totalQty := currentQty.Add(receivedQty)
	return totalValue.Div(totalQty).Round(2)
}
