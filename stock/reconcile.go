/*
reconcile.go - Detection and classification of stock discrepancies

PURPOSE:
  Compares theoretical stock (the StockLevel snapshot) against physical
  counts, classifies each discrepancy into a severity band, attaches
  heuristic causes and remediation steps, and derives non-committing
  reconciliation actions. Applying an adjustment is the responsibility of
  an external ledger/posting system.

SEVERITY BANDS (tolerance = BusinessRules.InventoryTolerancePercent):
  |variance%| <= tolerance        no inconsistency emitted
  tolerance   <  .. <= 2x         minor
  2x          <  .. <= 5x         major
  5x          <  ..               critical
  theoretical == 0, physical != 0 always critical (phantom stock)

SEE ALSO:
  - inventory.go: Per-line count helpers and totals
  - api/scheduler.go: Periodic drift sweep using this engine
*/
package stock

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TYPES
// =============================================================================

type InconsistencySeverity string

const (
	SeverityMinor    InconsistencySeverity = "minor"
	SeverityMajor    InconsistencySeverity = "major"
	SeverityCritical InconsistencySeverity = "critical"
)

// PhysicalCount is one counted product/store pair, as recorded during a
// physical inventory.
type PhysicalCount struct {
	StoreID   StoreID
	ProductID ProductID
	Quantity  decimal.Decimal
}

// Inconsistency is one classified discrepancy between recorded and counted
// stock.
type Inconsistency struct {
	StoreID            StoreID               `json:"storeId"`
	ProductID          ProductID             `json:"productId"`
	Severity           InconsistencySeverity `json:"severity"`
	Theoretical        decimal.Decimal       `json:"theoretical"`
	Physical           decimal.Decimal       `json:"physical"`
	Variance           decimal.Decimal       `json:"variance"`           // physical - theoretical, signed
	VariancePercent    decimal.Decimal       `json:"variancePercentage"` // signed; 100 when theoretical is zero
	PossibleCauses     []string              `json:"possibleCauses"`
	RecommendedActions []string              `json:"recommendedActions"`
}

// ReconciliationAction is a recommended, non-committing adjustment. The
// suggested adjustment is signed: positive adds stock, negative removes it.
type ReconciliationAction struct {
	StoreID             StoreID               `json:"storeId"`
	ProductID           ProductID             `json:"productId"`
	Severity            InconsistencySeverity `json:"severity"`
	SuggestedAdjustment decimal.Decimal       `json:"suggestedAdjustment"`
	Reason              string                `json:"reason"`
}

// =============================================================================
// DETECTION
// =============================================================================

// DetectInventoryInconsistencies compares each physical count against the
// stock snapshot and returns the discrepancies exceeding tolerance, in count
// order. Pure: operates only on the snapshot passed in.
func DetectInventoryInconsistencies(stockLevels []StockLevel, counts []PhysicalCount, rules BusinessRules) []Inconsistency {
	theoretical := make(map[stockKey]decimal.Decimal, len(stockLevels))
	for _, sl := range stockLevels {
		theoretical[stockKey{sl.StoreID, sl.ProductID}] = sl.Quantity
	}

	var out []Inconsistency
	for _, c := range counts {
		theo := theoretical[stockKey{c.StoreID, c.ProductID}]
		variance := c.Quantity.Sub(theo)

		if theo.IsZero() {
			if variance.IsZero() {
				continue
			}
			// Phantom stock: anything counted where the system records
			// nothing is critical regardless of tolerance.
			out = append(out, buildInconsistency(c, theo, variance, decimal.NewFromInt(100), SeverityCritical))
			continue
		}

		pct := variance.Div(theo).Mul(decimal.NewFromInt(100))
		severity, flagged := classifyVariance(pct, rules.InventoryTolerancePercent)
		if !flagged {
			continue
		}
		out = append(out, buildInconsistency(c, theo, variance, pct, severity))
	}
	return out
}

type stockKey struct {
	store   StoreID
	product ProductID
}

// classifyVariance maps an absolute variance percentage onto a severity
// band. Returns flagged=false within tolerance.
func classifyVariance(pct, tolerance decimal.Decimal) (InconsistencySeverity, bool) {
	abs := pct.Abs()
	switch {
	case !abs.GreaterThan(tolerance):
		return "", false
	case !abs.GreaterThan(tolerance.Mul(decimal.NewFromInt(2))):
		return SeverityMinor, true
	case !abs.GreaterThan(tolerance.Mul(decimal.NewFromInt(5))):
		return SeverityMajor, true
	default:
		return SeverityCritical, true
	}
}

func buildInconsistency(c PhysicalCount, theo, variance, pct decimal.Decimal, severity InconsistencySeverity) Inconsistency {
	return Inconsistency{
		StoreID:            c.StoreID,
		ProductID:          c.ProductID,
		Severity:           severity,
		Theoretical:        theo,
		Physical:           c.Quantity,
		Variance:           variance,
		VariancePercent:    pct,
		PossibleCauses:     possibleCauses(severity, variance),
		RecommendedActions: recommendedActions(severity),
	}
}

// possibleCauses selects heuristic explanations by severity and sign.
// A shortage points toward loss or theft; an excess toward unrecorded
// receipts or counting errors.
func possibleCauses(severity InconsistencySeverity, variance decimal.Decimal) []string {
	causes := []string{"counting error during the physical inventory"}

	if variance.IsNegative() {
		causes = append(causes, "unrecorded outgoing movement (sale, transfer, breakage)")
		if severity != SeverityMinor {
			causes = append(causes, "loss or theft")
		}
	} else {
		causes = append(causes, "unrecorded incoming movement (receipt, transfer return)")
	}

	if severity == SeverityCritical {
		causes = append(causes, "system lag: movements recorded after the snapshot was taken")
	}
	return causes
}

// recommendedActions escalates with severity. Critical discrepancies need a
// supervisor before any adjustment is posted.
func recommendedActions(severity InconsistencySeverity) []string {
	actions := []string{"recount the product to rule out a counting error"}
	switch severity {
	case SeverityMinor:
		actions = append(actions, "post a stock adjustment entry if the recount confirms")
	case SeverityMajor:
		actions = append(actions,
			"post a stock adjustment entry if the recount confirms",
			"investigate recent movements for the product")
	case SeverityCritical:
		actions = append(actions,
			"investigate recent movements for the product",
			"obtain supervisor approval before posting the adjustment")
	}
	return actions
}

// =============================================================================
// ACTIONS
// =============================================================================

// GenerateReconciliationActions maps each inconsistency to a non-committing
// action whose suggested adjustment equals the signed variance. Applying the
// adjustment belongs to the external posting system.
func GenerateReconciliationActions(inconsistencies []Inconsistency) []ReconciliationAction {
	actions := make([]ReconciliationAction, 0, len(inconsistencies))
	for _, inc := range inconsistencies {
		actions = append(actions, ReconciliationAction{
			StoreID:             inc.StoreID,
			ProductID:           inc.ProductID,
			Severity:            inc.Severity,
			SuggestedAdjustment: inc.Variance,
			Reason: fmt.Sprintf("physical count %s vs theoretical %s (%s%% variance, %s)",
				inc.Physical, inc.Theoretical, inc.VariancePercent.Round(1), inc.Severity),
		})
	}
	return actions
}
