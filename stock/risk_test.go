package stock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// standardRules mirrors the default preset: quantity ceiling 1000, value
// ceiling 50000, 20% cost variance, business hours 8-20.
func standardRules() stock.BusinessRules {
	return stock.BusinessRules{
		MaxQuantityPerOperation:   dec(1000),
		MaxValuePerOperation:      dec(50000),
		MaxCostVariancePercent:    dec(20),
		InventoryTolerancePercent: dec(5),
		MaxOperationsPerHour:      30,
		MinTimeBetweenOperations:  10 * time.Second,
		BusinessHoursStart:        8,
		BusinessHoursEnd:          20,
	}
}

// atHour builds an operation context at the given local hour on a fixed day.
func atHour(hour int) stock.OperationContext {
	return stock.OperationContext{
		UserID:  "user-1",
		StoreID: "store-paris",
		At:      time.Date(2025, time.March, 12, hour, 30, 0, 0, time.UTC),
	}
}

func smallReceiptOp() stock.Operation {
	return stock.ReceiptOperation(&stock.Receipt{
		SupplierID: "sup-1",
		StoreID:    "store-paris",
		Lines:      []stock.ReceiptLine{line("farine", 10, 100, 1000)},
		TotalValue: dec(1000),
	})
}

// =============================================================================
// BASELINE
// =============================================================================

func TestValidateComprehensive_QuietOperation_IsLow(t *testing.T) {
	// GIVEN: A small, valid receipt during business hours with no history
	// THEN: LOW risk, no factors, no approval needed
	result := stock.ValidateComprehensive(smallReceiptOp(), atHour(10), nil, standardRules())

	assert.True(t, result.IsValid)
	assert.Equal(t, stock.RiskLow, result.RiskLevel)
	assert.Empty(t, result.RiskFactors)
	assert.False(t, result.RequiresApproval)
}

func TestValidateComprehensive_Idempotent(t *testing.T) {
	// Speculative previews call the assessor repeatedly with the same inputs.
	op := smallReceiptOp()
	first := stock.ValidateComprehensive(op, atHour(10), nil, standardRules())
	second := stock.ValidateComprehensive(op, atHour(10), nil, standardRules())
	assert.Equal(t, first, second)
}

// =============================================================================
// VALUE AND QUANTITY CEILINGS
// =============================================================================

func TestRisk_ValueAboveCeiling_HighAndNeedsApproval(t *testing.T) {
	// GIVEN: A receipt worth 60000 against a 50000 ceiling
	op := stock.ReceiptOperation(&stock.Receipt{
		SupplierID: "sup-1",
		StoreID:    "store-paris",
		Lines:      []stock.ReceiptLine{line("farine", 100, 600, 60000)},
		TotalValue: dec(60000),
	})

	result := stock.ValidateComprehensive(op, atHour(10), nil, standardRules())
	assert.Equal(t, stock.RiskHigh, result.RiskLevel)
	assert.True(t, result.RequiresApproval)
	require.NotEmpty(t, result.RiskFactors)
	assert.Contains(t, result.RiskFactors[0], "ceiling")
}

func TestRisk_QuantityBands(t *testing.T) {
	// Quantity between 1x and 2x the ceiling is MEDIUM; above 2x, HIGH.
	mk := func(qty float64) stock.Operation {
		return stock.ReceiptOperation(&stock.Receipt{
			SupplierID: "sup-1", StoreID: "store-paris",
			Lines:      []stock.ReceiptLine{line("farine", qty, 1, qty)},
			TotalValue: dec(qty),
		})
	}

	medium := stock.ValidateComprehensive(mk(1500), atHour(10), nil, standardRules())
	assert.Equal(t, stock.RiskMedium, medium.RiskLevel)
	assert.False(t, medium.RequiresApproval)

	high := stock.ValidateComprehensive(mk(2500), atHour(10), nil, standardRules())
	assert.Equal(t, stock.RiskHigh, high.RiskLevel)
	assert.True(t, high.RequiresApproval)
}

func TestRisk_StructuralErrorsAndFactorsAreIndependent(t *testing.T) {
	// GIVEN: A receipt that is structurally broken AND over the value ceiling
	// THEN: Both the findings and the risk factors are reported
	op := stock.ReceiptOperation(&stock.Receipt{
		StoreID:    "store-paris", // supplier missing
		Lines:      []stock.ReceiptLine{line("farine", 100, 600, 60000)},
		TotalValue: dec(60000),
	})

	result := stock.ValidateComprehensive(op, atHour(10), nil, standardRules())
	assert.False(t, result.IsValid)
	assert.Equal(t, stock.RiskHigh, result.RiskLevel)
}

// =============================================================================
// COST VARIANCE
// =============================================================================

func TestRisk_CostVariance_AgainstHistoricalAverage(t *testing.T) {
	// GIVEN: Historical average cost 100, incoming at 130 (30% deviation,
	//        tolerance 20%)
	opCtx := atHour(10)
	opCtx.Historical.AverageCost = dec(100)

	op := stock.ReceiptOperation(&stock.Receipt{
		SupplierID: "sup-1", StoreID: "store-paris",
		Lines:      []stock.ReceiptLine{line("farine", 10, 130, 1300)},
		TotalValue: dec(1300),
	})

	result := stock.ValidateComprehensive(op, opCtx, nil, standardRules())
	assert.Equal(t, stock.RiskMedium, result.RiskLevel)
	require.NotEmpty(t, result.RiskFactors)
	assert.Contains(t, result.RiskFactors[0], "deviates")
}

func TestRisk_CostVariance_NoHistory_Skipped(t *testing.T) {
	// With no historical average there is nothing to deviate from.
	opCtx := atHour(10) // Historical.AverageCost is zero
	op := stock.ReceiptOperation(&stock.Receipt{
		SupplierID: "sup-1", StoreID: "store-paris",
		Lines:      []stock.ReceiptLine{line("farine", 10, 9999, 99990)},
		TotalValue: dec(99990),
	})

	result := stock.ValidateComprehensive(op, opCtx, nil, standardRules())
	for _, f := range result.RiskFactors {
		assert.NotContains(t, f, "deviates")
	}
}

// =============================================================================
// OPERATION RATE
// =============================================================================

func TestRisk_TooManyOperationsInRollingHour(t *testing.T) {
	opCtx := atHour(10)
	for i := 0; i < 30; i++ {
		opCtx.RecentOperations = append(opCtx.RecentOperations, stock.OperationRecord{
			Type: "receipt",
			At:   opCtx.At.Add(-time.Duration(i+1) * time.Minute),
		})
	}

	result := stock.ValidateComprehensive(smallReceiptOp(), opCtx, nil, standardRules())
	assert.Equal(t, stock.RiskMedium, result.RiskLevel)
}

func TestRisk_OperationsOutsideWindow_NotCounted(t *testing.T) {
	// GIVEN: 30 operations, all more than an hour old
	opCtx := atHour(10)
	for i := 0; i < 30; i++ {
		opCtx.RecentOperations = append(opCtx.RecentOperations, stock.OperationRecord{
			Type: "receipt",
			At:   opCtx.At.Add(-2 * time.Hour),
		})
	}

	result := stock.ValidateComprehensive(smallReceiptOp(), opCtx, nil, standardRules())
	assert.Equal(t, stock.RiskLow, result.RiskLevel)
}

func TestRisk_TooSoonAfterPreviousOperation(t *testing.T) {
	// GIVEN: The previous operation was 3 seconds ago, minimum gap 10s
	opCtx := atHour(10)
	opCtx.RecentOperations = []stock.OperationRecord{{
		Type: "receipt",
		At:   opCtx.At.Add(-3 * time.Second),
	}}

	result := stock.ValidateComprehensive(smallReceiptOp(), opCtx, nil, standardRules())
	assert.Equal(t, stock.RiskMedium, result.RiskLevel)
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[0], "double entry")
}

// =============================================================================
// BUSINESS HOURS
// =============================================================================

func TestRisk_BusinessHours(t *testing.T) {
	rules := standardRules()

	// Inside the window: nothing fires.
	inside := stock.ValidateComprehensive(smallReceiptOp(), atHour(14), nil, rules)
	assert.Equal(t, stock.RiskLow, inside.RiskLevel)
	assert.Empty(t, inside.RiskFactors)

	// Just after closing (21h): flagged at LOW.
	evening := stock.ValidateComprehensive(smallReceiptOp(), atHour(21), nil, rules)
	assert.Equal(t, stock.RiskLow, evening.RiskLevel)
	assert.NotEmpty(t, evening.RiskFactors)

	// Middle of the night (3h): MEDIUM.
	night := stock.ValidateComprehensive(smallReceiptOp(), atHour(3), nil, rules)
	assert.Equal(t, stock.RiskMedium, night.RiskLevel)
}

func TestRisk_BusinessHours_DisabledWindow(t *testing.T) {
	// A zeroed window (0-0) means the check is off entirely.
	rules := standardRules()
	rules.BusinessHoursStart = 0
	rules.BusinessHoursEnd = 0

	result := stock.ValidateComprehensive(smallReceiptOp(), atHour(3), nil, rules)
	assert.Equal(t, stock.RiskLow, result.RiskLevel)
}

// =============================================================================
// TRANSFERS AND INVENTORIES
// =============================================================================

func TestRisk_TransferInsufficientStock_EscalatesToHigh(t *testing.T) {
	// GIVEN: A transfer shipping more than the snapshot says is on hand
	// THEN: The shortage is both a structural error AND a HIGH risk factor
	op := stock.TransferOperation(transferOf("store-paris", "store-lyon", sent("farine", 50)))
	snapshot := []stock.StockLevel{level("store-paris", "farine", 10, 0)}

	result := stock.ValidateComprehensive(op, atHour(10), snapshot, standardRules())
	assert.False(t, result.IsValid)
	assert.True(t, hasKind(result.ValidationResult, stock.KindInsufficientStock))
	assert.Equal(t, stock.RiskHigh, result.RiskLevel)
	assert.True(t, result.RequiresApproval)
}

func TestRisk_TransferValuedAtSourceAverageCost(t *testing.T) {
	// GIVEN: 100 units at a source CUMP of 600 -> value 60000 > 50000 ceiling
	op := stock.TransferOperation(transferOf("store-paris", "store-lyon", sent("farine", 100)))
	snapshot := []stock.StockLevel{{
		StoreID: "store-paris", ProductID: "farine",
		Quantity: dec(500), AverageCost: dec(600),
	}}

	result := stock.ValidateComprehensive(op, atHour(10), snapshot, standardRules())
	assert.True(t, result.IsValid)
	assert.Equal(t, stock.RiskHigh, result.RiskLevel)
}

func TestRisk_InventoryOperation_NoStructuralValidator(t *testing.T) {
	// Counts have no document validator; an inventory with huge variances can
	// still trip the quantity rule through its absolute line variances.
	inv := &stock.Inventory{Store: "store-paris", Lines: []stock.InventoryLine{
		stock.CountLine(stock.InventoryLine{ProductID: "farine", TheoreticalQuantity: dec(100)}, dec(1700), dec(2)),
	}}

	result := stock.ValidateComprehensive(stock.InventoryOperation(inv), atHour(10), nil, standardRules())
	assert.True(t, result.IsValid)
	assert.Equal(t, stock.RiskMedium, result.RiskLevel)
}

func TestRisk_UnknownKind_Rejected(t *testing.T) {
	result := stock.ValidateComprehensive(stock.Operation{Kind: "audit"}, atHour(10), nil, standardRules())
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "UNKNOWN_OPERATION", result.Errors[0].Kind)
}

// =============================================================================
// RISK LEVEL ORDERING
// =============================================================================

func TestRiskLevel_Exceeds(t *testing.T) {
	assert.True(t, stock.RiskCritical.Exceeds(stock.RiskHigh))
	assert.True(t, stock.RiskHigh.Exceeds(stock.RiskMedium))
	assert.True(t, stock.RiskMedium.Exceeds(stock.RiskLow))
	assert.False(t, stock.RiskLow.Exceeds(stock.RiskLow))
	assert.False(t, stock.RiskMedium.Exceeds(stock.RiskHigh))
}
