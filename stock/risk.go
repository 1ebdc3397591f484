/*
risk.go - Multi-factor risk assessment for candidate operations

PURPOSE:
  Layers heuristic risk scoring on top of structural validation. A candidate
  operation (receipt, transfer, or inventory) is evaluated against the
  BusinessRules thresholds and the actor's recent history, producing a risk
  level, the factors that triggered it, and an advisory approval flag.

DESIGN:
  The assessor is an ordered pipeline of independent rule evaluators. Each
  rule inspects the operation and context and yields zero or more factors
  at a severity. The overall level is the MAXIMUM severity among triggered
  factors (CRITICAL > HIGH > MEDIUM > LOW); no factors means LOW.

  Risk factors are advisory and NEVER block execution. RequiresApproval is
  a signal; enforcement is a policy decision left to the caller.

TAGGED OPERATIONS:
  Candidate operations are a tagged variant (Operation) dispatched by
  exhaustive matching on Kind, never by probing struct fields.

PURITY:
  ValidateComprehensive is read-only and idempotent: safe to call
  repeatedly against the same inputs, e.g. for a speculative preview
  before committing a transition.

SEE ALSO:
  - receipt.go / transfer.go: Structural validators the assessor seeds from
  - types.go: BusinessRules, OperationContext
*/
package stock

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RISK LEVELS - Ordinal severity
// =============================================================================

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Exceeds reports whether r is strictly more severe than other.
func (r RiskLevel) Exceeds(other RiskLevel) bool {
	return riskRank[r] > riskRank[other]
}

func maxRisk(a, b RiskLevel) RiskLevel {
	if b.Exceeds(a) {
		return b
	}
	return a
}

// =============================================================================
// OPERATION - Tagged variant over the three document shapes
// =============================================================================

type OperationKind string

const (
	OpReceipt   OperationKind = "receipt"
	OpTransfer  OperationKind = "transfer"
	OpInventory OperationKind = "inventory"
)

// Operation is a candidate stock-affecting operation. Exactly one of the
// document pointers is set, matching Kind.
type Operation struct {
	Kind      OperationKind
	Receipt   *Receipt
	Transfer  *Transfer
	Inventory *Inventory
}

func ReceiptOperation(r *Receipt) Operation     { return Operation{Kind: OpReceipt, Receipt: r} }
func TransferOperation(t *Transfer) Operation   { return Operation{Kind: OpTransfer, Transfer: t} }
func InventoryOperation(i *Inventory) Operation { return Operation{Kind: OpInventory, Inventory: i} }

// value returns the monetary magnitude of the operation. Transfers carry no
// unit cost, so their lines are valued at the source store's average cost
// from the snapshot. Inventories are valued by their absolute variance value.
func (op Operation) value(stockLevels []StockLevel) decimal.Decimal {
	switch op.Kind {
	case OpReceipt:
		return op.Receipt.TotalValue
	case OpTransfer:
		cost := make(map[ProductID]decimal.Decimal)
		for _, sl := range stockLevels {
			if sl.StoreID == op.Transfer.SourceStore {
				cost[sl.ProductID] = sl.AverageCost
			}
		}
		total := decimal.Zero
		for _, l := range op.Transfer.Lines {
			total = total.Add(l.QuantitySent.Mul(cost[l.ProductID]))
		}
		return total
	case OpInventory:
		_, value := InventoryTotals(op.Inventory.Lines)
		return value
	}
	return decimal.Zero
}

// quantities returns the per-line quantities the operation moves.
func (op Operation) quantities() []decimal.Decimal {
	var out []decimal.Decimal
	switch op.Kind {
	case OpReceipt:
		for _, l := range op.Receipt.Lines {
			out = append(out, l.Quantity)
		}
	case OpTransfer:
		for _, l := range op.Transfer.Lines {
			out = append(out, l.QuantitySent)
		}
	case OpInventory:
		for _, l := range op.Inventory.Lines {
			if l.Counted() {
				out = append(out, l.Variance.Abs())
			}
		}
	}
	return out
}

// =============================================================================
// ASSESSMENT RESULT
// =============================================================================

// RiskFactor is one triggered heuristic: what fired, how severe, and what
// the operator should do about it.
type RiskFactor struct {
	Severity       RiskLevel
	Description    string
	Recommendation string
}

// AdvancedValidationResult combines structural validation with risk scoring.
// Structural errors and risk factors are independent: a structurally valid
// document can still be CRITICAL, and vice versa.
type AdvancedValidationResult struct {
	ValidationResult
	RiskLevel        RiskLevel `json:"riskLevel"`
	RiskFactors      []string  `json:"riskFactors"`
	Recommendations  []string  `json:"recommendations"`
	RequiresApproval bool      `json:"requiresApproval"`
}

// =============================================================================
// RULE PIPELINE
// =============================================================================

// riskRule is one independent evaluator. Rules run in a fixed order and
// each may contribute any number of factors.
type riskRule func(op Operation, opCtx OperationContext, stockLevels []StockLevel, rules BusinessRules, structural ValidationResult) []RiskFactor

// Pipeline order is fixed so factor lists are deterministic for identical
// inputs. Adding a rule means appending here and writing its own test.
var riskPipeline = []riskRule{
	ruleOperationValue,
	ruleLineQuantities,
	ruleCostVariance,
	ruleOperationRate,
	ruleBusinessHours,
	ruleTransferStock,
}

// ruleOperationValue flags operations whose total value exceeds the ceiling.
func ruleOperationValue(op Operation, _ OperationContext, stockLevels []StockLevel, rules BusinessRules, _ ValidationResult) []RiskFactor {
	if rules.MaxValuePerOperation.IsZero() {
		return nil
	}
	value := op.value(stockLevels)
	if value.GreaterThan(rules.MaxValuePerOperation) {
		return []RiskFactor{{
			Severity:       RiskHigh,
			Description:    fmt.Sprintf("operation value %s exceeds the %s ceiling", value, rules.MaxValuePerOperation),
			Recommendation: "split the operation or obtain supervisor approval",
		}}
	}
	return nil
}

// ruleLineQuantities flags lines above the per-operation quantity ceiling.
// Up to twice the ceiling is MEDIUM; beyond that, HIGH.
func ruleLineQuantities(op Operation, _ OperationContext, _ []StockLevel, rules BusinessRules, _ ValidationResult) []RiskFactor {
	if rules.MaxQuantityPerOperation.IsZero() {
		return nil
	}
	var factors []RiskFactor
	double := rules.MaxQuantityPerOperation.Mul(decimal.NewFromInt(2))
	for _, q := range op.quantities() {
		if !q.GreaterThan(rules.MaxQuantityPerOperation) {
			continue
		}
		severity := RiskMedium
		if q.GreaterThan(double) {
			severity = RiskHigh
		}
		factors = append(factors, RiskFactor{
			Severity:       severity,
			Description:    fmt.Sprintf("line quantity %s exceeds the %s ceiling", q, rules.MaxQuantityPerOperation),
			Recommendation: "verify the quantity entered and split across several operations if genuine",
		})
	}
	return factors
}

// ruleCostVariance flags receipt lines whose unit cost strays too far from
// the historical average cost.
func ruleCostVariance(op Operation, opCtx OperationContext, _ []StockLevel, rules BusinessRules, _ ValidationResult) []RiskFactor {
	if op.Kind != OpReceipt || rules.MaxCostVariancePercent.IsZero() {
		return nil
	}
	avg := opCtx.Historical.AverageCost
	if avg.IsZero() {
		return nil // no history to deviate from
	}
	var factors []RiskFactor
	hundred := decimal.NewFromInt(100)
	for _, l := range op.Receipt.Lines {
		deviation := l.UnitCost.Sub(avg).Div(avg).Mul(hundred).Abs()
		if deviation.GreaterThan(rules.MaxCostVariancePercent) {
			factors = append(factors, RiskFactor{
				Severity: RiskMedium,
				Description: fmt.Sprintf("unit cost %s deviates %s%% from historical average %s (tolerance %s%%)",
					l.UnitCost, deviation.Round(1), avg, rules.MaxCostVariancePercent),
				Recommendation: "confirm the supplier price against the purchase order",
			})
		}
	}
	return factors
}

// ruleOperationRate flags bursts: too many operations in the rolling hour,
// or an operation following the previous one too quickly.
func ruleOperationRate(_ Operation, opCtx OperationContext, _ []StockLevel, rules BusinessRules, _ ValidationResult) []RiskFactor {
	var factors []RiskFactor

	if rules.MaxOperationsPerHour > 0 {
		windowStart := opCtx.At.Add(-time.Hour)
		inWindow := 0
		for _, rec := range opCtx.RecentOperations {
			if rec.At.After(windowStart) && !rec.At.After(opCtx.At) {
				inWindow++
			}
		}
		if inWindow >= rules.MaxOperationsPerHour {
			factors = append(factors, RiskFactor{
				Severity:       RiskMedium,
				Description:    fmt.Sprintf("%d operations in the last hour (limit %d)", inWindow, rules.MaxOperationsPerHour),
				Recommendation: "unusual activity rate; verify the operations are intentional",
			})
		}
	}

	if rules.MinTimeBetweenOperations > 0 && len(opCtx.RecentOperations) > 0 {
		var last time.Time
		for _, rec := range opCtx.RecentOperations {
			if rec.At.After(last) && !rec.At.After(opCtx.At) {
				last = rec.At
			}
		}
		if !last.IsZero() && opCtx.At.Sub(last) < rules.MinTimeBetweenOperations {
			factors = append(factors, RiskFactor{
				Severity:       RiskMedium,
				Description:    fmt.Sprintf("only %s since the previous operation (minimum %s)", opCtx.At.Sub(last), rules.MinTimeBetweenOperations),
				Recommendation: "possible double entry; check the previous operation",
			})
		}
	}

	return factors
}

// ruleBusinessHours flags operations outside the business-hours window.
// Evening/early-morning is LOW; the middle of the night is MEDIUM.
func ruleBusinessHours(_ Operation, opCtx OperationContext, _ []StockLevel, rules BusinessRules, _ ValidationResult) []RiskFactor {
	if rules.BusinessHoursStart == 0 && rules.BusinessHoursEnd == 0 {
		return nil
	}
	hour := opCtx.At.Hour()
	if hour >= rules.BusinessHoursStart && hour < rules.BusinessHoursEnd {
		return nil
	}
	severity := RiskLow
	if hour >= 22 || hour < 5 {
		severity = RiskMedium
	}
	return []RiskFactor{{
		Severity: severity,
		Description: fmt.Sprintf("operation at %02d:00, outside business hours (%02d:00-%02d:00)",
			hour, rules.BusinessHoursStart, rules.BusinessHoursEnd),
		Recommendation: "confirm the operation was intended outside opening hours",
	}}
}

// ruleTransferStock escalates insufficient stock on a transfer. The shortage
// is already a structural error; it is ALSO a risk factor because shipping
// more than is on hand usually means the snapshot and reality disagree.
func ruleTransferStock(op Operation, _ OperationContext, _ []StockLevel, _ BusinessRules, structural ValidationResult) []RiskFactor {
	if op.Kind != OpTransfer {
		return nil
	}
	var factors []RiskFactor
	for _, e := range structural.Errors {
		if e.Kind == KindInsufficientStock {
			factors = append(factors, RiskFactor{
				Severity:       RiskHigh,
				Description:    e.Message,
				Recommendation: "recount the source stock before shipping",
			})
		}
	}
	return factors
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// ValidateComprehensive runs the structural validator matching the operation
// kind, then the risk pipeline, and folds the triggered factors to an overall
// level. Read-only and idempotent.
func ValidateComprehensive(op Operation, opCtx OperationContext, stockLevels []StockLevel, rules BusinessRules) AdvancedValidationResult {
	var structural ValidationResult
	switch op.Kind {
	case OpReceipt:
		structural = ValidateBonReception(op.Receipt, true)
	case OpTransfer:
		structural = ValidateTransfert(op.Transfer, stockLevels)
	case OpInventory:
		// Counts have no structural document validator; completeness is
		// enforced by the lifecycle controller at submission.
		structural = newResult(nil)
	default:
		structural = newResult([]ValidationError{{
			Field:   "kind",
			Kind:    "UNKNOWN_OPERATION",
			Message: fmt.Sprintf("unknown operation kind %q", op.Kind),
		}})
	}

	result := AdvancedValidationResult{
		ValidationResult: structural,
		RiskLevel:        RiskLow,
	}

	for _, rule := range riskPipeline {
		for _, f := range rule(op, opCtx, stockLevels, rules, structural) {
			result.RiskLevel = maxRisk(result.RiskLevel, f.Severity)
			result.RiskFactors = append(result.RiskFactors, f.Description)
			result.Recommendations = append(result.Recommendations, f.Recommendation)
		}
	}

	result.RequiresApproval = result.RiskLevel == RiskHigh || result.RiskLevel == RiskCritical
	return result
}
