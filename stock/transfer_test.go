package stock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func level(store, product string, qty, reserved float64) stock.StockLevel {
	return stock.StockLevel{
		StoreID:   stock.StoreID(store),
		ProductID: stock.ProductID(product),
		Quantity:  dec(qty),
		Reserved:  dec(reserved),
	}
}

func transferOf(source, dest string, lines ...stock.TransferLine) *stock.Transfer {
	return &stock.Transfer{
		SourceStore: stock.StoreID(source),
		DestStore:   stock.StoreID(dest),
		Lines:       lines,
	}
}

func sent(product string, qty float64) stock.TransferLine {
	return stock.TransferLine{ProductID: stock.ProductID(product), QuantitySent: dec(qty)}
}

// =============================================================================
// STRUCTURAL TESTS
// =============================================================================

func TestValidateTransfert_Valid(t *testing.T) {
	doc := transferOf("store-paris", "store-lyon", sent("farine", 10))
	snapshot := []stock.StockLevel{level("store-paris", "farine", 50, 0)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.True(t, result.IsValid)
}

func TestValidateTransfert_SameSourceAndDestination(t *testing.T) {
	// GIVEN: A transfer from a store to itself
	// THEN: SAME_SOURCE_DESTINATION
	doc := transferOf("store-paris", "store-paris", sent("farine", 10))
	snapshot := []stock.StockLevel{level("store-paris", "farine", 50, 0)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.False(t, result.IsValid)
	assert.True(t, hasKind(result, stock.KindSameSourceDest))
}

func TestValidateTransfert_BothStoresBlank_Rejected(t *testing.T) {
	// GIVEN: A transfer with empty source AND destination
	// THEN: Identical stores are flagged even when both are blank, and each
	//       missing store gets its own finding; stock under the empty store
	//       ID cannot make the document valid
	doc := transferOf("", "", sent("farine", 5))
	snapshot := []stock.StockLevel{level("", "farine", 100, 0)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.False(t, result.IsValid)
	assert.True(t, hasKind(result, stock.KindSameSourceDest))
	assert.True(t, hasKind(result, stock.KindMissingStore))
}

func TestValidateTransfert_MissingSourceStore_Rejected(t *testing.T) {
	doc := transferOf("", "store-lyon", sent("farine", 5))
	snapshot := []stock.StockLevel{level("", "farine", 100, 0)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.False(t, result.IsValid)
	assert.True(t, hasKind(result, stock.KindMissingStore))
	assert.False(t, hasKind(result, stock.KindSameSourceDest))
}

func TestValidateTransfert_NoLines(t *testing.T) {
	doc := transferOf("store-paris", "store-lyon")
	result := stock.ValidateTransfert(doc, nil)
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{stock.KindMissingLines}, resultKinds(result))
}

// =============================================================================
// AVAILABILITY TESTS
// =============================================================================

func TestValidateTransfert_ExactlyAvailable_Valid(t *testing.T) {
	// GIVEN: 30 on hand, 10 reserved -> 20 available
	// WHEN: Requesting exactly 20
	// THEN: Valid; the boundary itself is allowed
	doc := transferOf("store-paris", "store-lyon", sent("farine", 20))
	snapshot := []stock.StockLevel{level("store-paris", "farine", 30, 10)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.True(t, result.IsValid)
}

func TestValidateTransfert_OneOverAvailable_Rejected(t *testing.T) {
	doc := transferOf("store-paris", "store-lyon", sent("farine", 21))
	snapshot := []stock.StockLevel{level("store-paris", "farine", 30, 10)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, stock.KindInsufficientStock, result.Errors[0].Kind)
	require.NotNil(t, result.Errors[0].Line)
	assert.Equal(t, 0, *result.Errors[0].Line)
}

func TestValidateTransfert_ReservedReducesAvailability(t *testing.T) {
	// The on-hand quantity alone would cover the request, but most of it is
	// already promised to another transfer.
	doc := transferOf("store-paris", "store-lyon", sent("farine", 10))
	snapshot := []stock.StockLevel{level("store-paris", "farine", 12, 5)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.False(t, result.IsValid)
	assert.True(t, hasKind(result, stock.KindInsufficientStock))
}

func TestValidateTransfert_UnknownProduct_ZeroAvailable(t *testing.T) {
	// GIVEN: A product with no stock level at the source
	// THEN: Treated as zero available, so any positive request fails
	doc := transferOf("store-paris", "store-lyon", sent("inconnu", 1))
	snapshot := []stock.StockLevel{level("store-paris", "farine", 100, 0)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.False(t, result.IsValid)
	assert.True(t, hasKind(result, stock.KindInsufficientStock))
}

func TestValidateTransfert_OtherStoresLevelsIgnored(t *testing.T) {
	// Availability is judged at the SOURCE store only; plentiful stock at the
	// destination does not help.
	doc := transferOf("store-paris", "store-lyon", sent("farine", 10))
	snapshot := []stock.StockLevel{level("store-lyon", "farine", 1000, 0)}

	result := stock.ValidateTransfert(doc, snapshot)
	assert.False(t, result.IsValid)
	assert.True(t, hasKind(result, stock.KindInsufficientStock))
}

// =============================================================================
// VARIANCE HELPERS
// =============================================================================

func TestTransferLine_Variance(t *testing.T) {
	l := sent("farine", 10)
	assert.True(t, l.Variance().IsZero(), "pending reception has zero variance")

	received := dec(8)
	l.QuantityReceived = &received
	assert.True(t, l.Variance().Equal(dec(-2)))
}

func TestTransfer_HasVariance(t *testing.T) {
	full := dec(10)
	short := dec(7)
	doc := transferOf("a", "b",
		stock.TransferLine{ProductID: "x", QuantitySent: dec(10), QuantityReceived: &full},
		stock.TransferLine{ProductID: "y", QuantitySent: dec(10), QuantityReceived: &short},
	)
	assert.True(t, doc.HasVariance())

	doc.Lines[1].QuantityReceived = &full
	assert.False(t, doc.HasVariance())
}
