package stock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/stock"
)

func TestCalculateCUMPImpact_WeightedAverage(t *testing.T) {
	// GIVEN: 10 units on hand at 100, receiving 10 more at 200
	// THEN: New CUMP is (10*100 + 10*200) / 20 = 150
	doc := &stock.Receipt{
		StoreID: "store-paris",
		Lines:   []stock.ReceiptLine{line("farine", 10, 200, 2000)},
	}
	snapshot := []stock.StockLevel{{
		StoreID: "store-paris", ProductID: "farine",
		Quantity: dec(10), AverageCost: dec(100),
	}}

	impacts := stock.CalculateCUMPImpact(doc, snapshot)
	require.Len(t, impacts, 1)
	assert.Equal(t, stock.ProductID("farine"), impacts[0].ProductID)
	assert.True(t, impacts[0].OldAverageCost.Equal(dec(100)))
	assert.True(t, impacts[0].NewAverageCost.Equal(dec(150)))
}

func TestCalculateCUMPImpact_NoCurrentStock_TakesIncomingCost(t *testing.T) {
	// GIVEN: A product new to the store (no stock level at all)
	// THEN: The new CUMP is simply the incoming unit cost
	doc := &stock.Receipt{
		StoreID: "store-paris",
		Lines:   []stock.ReceiptLine{line("nouveau", 5, 42.37, 211.85)},
	}

	impacts := stock.CalculateCUMPImpact(doc, nil)
	require.Len(t, impacts, 1)
	assert.True(t, impacts[0].OldAverageCost.IsZero())
	assert.True(t, impacts[0].NewAverageCost.Equal(dec(42.37)))
}

func TestCalculateCUMPImpact_RoundsToTwoDecimals(t *testing.T) {
	// GIVEN: 3 on hand at 1.00, receiving 1 at 2.00
	// THEN: (3 + 2) / 4 = 1.25 exactly; and a non-terminating case rounds
	doc := &stock.Receipt{
		StoreID: "s",
		Lines:   []stock.ReceiptLine{line("p", 1, 2, 2)},
	}
	snapshot := []stock.StockLevel{{StoreID: "s", ProductID: "p", Quantity: dec(3), AverageCost: dec(1)}}

	impacts := stock.CalculateCUMPImpact(doc, snapshot)
	require.Len(t, impacts, 1)
	assert.True(t, impacts[0].NewAverageCost.Equal(dec(1.25)))

	// 1 on hand at 1.00, receiving 2 at 2.00 -> 5/3 = 1.666... -> 1.67
	doc.Lines = []stock.ReceiptLine{line("p", 2, 2, 4)}
	snapshot[0].Quantity = dec(1)
	impacts = stock.CalculateCUMPImpact(doc, snapshot)
	assert.True(t, impacts[0].NewAverageCost.Equal(dec(1.67)),
		"got %s", impacts[0].NewAverageCost)
}

func TestCalculateCUMPImpact_OtherStoresIgnored(t *testing.T) {
	// The snapshot may span stores; only the receiving store's levels count.
	doc := &stock.Receipt{
		StoreID: "store-paris",
		Lines:   []stock.ReceiptLine{line("farine", 10, 200, 2000)},
	}
	snapshot := []stock.StockLevel{{
		StoreID: "store-lyon", ProductID: "farine",
		Quantity: dec(1000), AverageCost: dec(1),
	}}

	impacts := stock.CalculateCUMPImpact(doc, snapshot)
	require.Len(t, impacts, 1)
	assert.True(t, impacts[0].NewAverageCost.Equal(dec(200)))
}

func TestCalculateCUMPImpact_OneImpactPerLine(t *testing.T) {
	doc := &stock.Receipt{
		StoreID: "s",
		Lines: []stock.ReceiptLine{
			line("a", 1, 10, 10),
			line("b", 2, 20, 40),
		},
	}
	impacts := stock.CalculateCUMPImpact(doc, nil)
	require.Len(t, impacts, 2)
	assert.Equal(t, stock.ProductID("a"), impacts[0].ProductID)
	assert.Equal(t, stock.ProductID("b"), impacts[1].ProductID)
}
