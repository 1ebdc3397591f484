/*
handlers_test.go - End-to-end tests for the HTTP layer

Exercises the full wiring (router -> handlers -> lifecycle -> repository)
against the in-memory repository:
- Receipt creation, validation, and stock/CUMP posting
- Transfer reservation, reception, and cancellation
- Reconciliation endpoint
- Error mapping (404 / 400)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/factory"
	"github.com/warp/stock-engine/stock"
	memstore "github.com/warp/stock-engine/stock/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAPI(t *testing.T) (http.Handler, *memstore.Memory) {
	t.Helper()
	rules, err := factory.NewRulesFactory().ParseRules(factory.DefaultRulesJSON())
	require.NoError(t, err)

	repo := memstore.NewMemory()
	return NewRouter(NewHandler(repo, rules)), repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func seedLevel(t *testing.T, repo *memstore.Memory, store, product string, qty, cost float64) {
	t.Helper()
	require.NoError(t, repo.UpsertLevel(context.Background(), stock.StockLevel{
		StoreID:     stock.StoreID(store),
		ProductID:   stock.ProductID(product),
		Quantity:    decimal.NewFromFloat(qty),
		AverageCost: decimal.NewFromFloat(cost),
	}))
}

func levelFor(t *testing.T, repo *memstore.Memory, store, product string) stock.StockLevel {
	t.Helper()
	levels, err := repo.Levels(context.Background(), stock.StoreID(store))
	require.NoError(t, err)
	for _, l := range levels {
		if l.ProductID == stock.ProductID(product) {
			return l
		}
	}
	t.Fatalf("no level for %s/%s", store, product)
	return stock.StockLevel{}
}

// =============================================================================
// RECEIPTS
// =============================================================================

func TestAPI_CreateReceipt_NumbersTheDraft(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doJSON(t, router, http.MethodPost, "/api/receipts", CreateReceiptRequest{
		SupplierID: "sup-1",
		StoreID:    "store-paris",
		Lines: []ReceiptLineDTO{
			{ProductID: "farine", Quantity: 10, UnitCost: 5000, Subtotal: 50000},
		},
		TotalValue: 50000,
		CreatedBy:  "emp-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[ReceiptDTO](t, rec)
	assert.Equal(t, fmt.Sprintf("BR-%d-0001", time.Now().Year()), dto.Number)
	assert.Equal(t, string(stock.ReceiptDraft), dto.Status)
	assert.NotEmpty(t, dto.ID)
}

func TestAPI_CreateReceipt_BrokenArithmetic_Rejected(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doJSON(t, router, http.MethodPost, "/api/receipts", CreateReceiptRequest{
		SupplierID: "sup-1",
		StoreID:    "store-paris",
		Lines: []ReceiptLineDTO{
			{ProductID: "farine", Quantity: 10, UnitCost: 5000, Subtotal: 49999},
		},
		TotalValue: 49999,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), stock.KindCalculationError)
}

func TestAPI_ValidateReceipt_PostsStockAndCUMP(t *testing.T) {
	// GIVEN: 10 units of farine at CUMP 100 and a draft receiving 10 at 200
	// WHEN: Validating the receipt
	// THEN: Quantity doubles and the CUMP lands at 150
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "store-paris", "farine", 10, 100)

	created := decode[ReceiptDTO](t, doJSON(t, router, http.MethodPost, "/api/receipts", CreateReceiptRequest{
		SupplierID: "sup-1",
		StoreID:    "store-paris",
		Lines:      []ReceiptLineDTO{{ProductID: "farine", Quantity: 10, UnitCost: 200, Subtotal: 2000}},
		TotalValue: 2000,
	}))

	rec := doJSON(t, router, http.MethodPost, "/api/receipts/"+created.ID+"/validate?user=chef-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ValidateReceiptResponse](t, rec)
	assert.Equal(t, string(stock.ReceiptValidated), resp.Receipt.Status)
	require.Len(t, resp.Impacts, 1)
	assert.Equal(t, 150.0, resp.Impacts[0].NewAverageCost)

	level := levelFor(t, repo, "store-paris", "farine")
	assert.True(t, level.Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, level.AverageCost.Equal(decimal.NewFromInt(150)))

	// Validation is terminal: a second attempt maps to 400.
	rec = doJSON(t, router, http.MethodPost, "/api/receipts/"+created.ID+"/validate?user=chef-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CreateReceipt_MalformedDate_Rejected(t *testing.T) {
	// A bad date field is a 400, never silently replaced with the current time.
	router, _ := newTestAPI(t)

	rec := doJSON(t, router, http.MethodPost, "/api/receipts", CreateReceiptRequest{
		SupplierID: "sup-1",
		StoreID:    "store-paris",
		Date:       "12/03/2025",
		Lines: []ReceiptLineDTO{
			{ProductID: "farine", Quantity: 10, UnitCost: 5000, Subtotal: 50000},
		},
		TotalValue: 50000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid date")
}

func TestAPI_GetMissingReceipt_404(t *testing.T) {
	router, _ := newTestAPI(t)
	rec := doJSON(t, router, http.MethodGet, "/api/receipts/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestAPI_CreateTransfer_InsufficientStock_Rejected(t *testing.T) {
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "store-paris", "farine", 5, 100)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", CreateTransferRequest{
		SourceStoreID: "store-paris",
		DestStoreID:   "store-lyon",
		Lines:         []TransferLineDTO{{ProductID: "farine", QuantitySent: 50}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), stock.KindInsufficientStock)
}

func TestAPI_TransferLifecycle_MovesStock(t *testing.T) {
	// GIVEN: 50 farine at the source
	// WHEN: Transferring 10 and receiving 8 (with a comment)
	// THEN: Source ends at 40 with no reservation, destination at 8,
	//       and the transfer lands in termine_avec_ecart
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "store-paris", "farine", 50, 100)

	created := decode[TransferDTO](t, doJSON(t, router, http.MethodPost, "/api/transfers", CreateTransferRequest{
		SourceStoreID: "store-paris",
		DestStoreID:   "store-lyon",
		Lines:         []TransferLineDTO{{ProductID: "farine", QuantitySent: 10}},
	}))
	assert.Equal(t, string(stock.TransferEnTransit), created.Status)

	// The shipped quantity is held at the source while in transit.
	level := levelFor(t, repo, "store-paris", "farine")
	assert.True(t, level.Reserved.Equal(decimal.NewFromInt(10)))

	rec := doJSON(t, router, http.MethodPost, "/api/transfers/"+created.ID+"/receive", ReceiveTransferRequest{
		ReceivedBy: "resp-lyon",
		Received:   map[string]float64{"farine": 8},
		Comment:    "deux sacs abîmés",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	received := decode[TransferDTO](t, rec)
	assert.Equal(t, string(stock.TransferTermineAvecEcart), received.Status)

	source := levelFor(t, repo, "store-paris", "farine")
	assert.True(t, source.Quantity.Equal(decimal.NewFromInt(40)))
	assert.True(t, source.Reserved.IsZero())

	dest := levelFor(t, repo, "store-lyon", "farine")
	assert.True(t, dest.Quantity.Equal(decimal.NewFromInt(8)))
}

func TestAPI_CreateTransfer_RepeatedProduct_ReservesTheSum(t *testing.T) {
	// GIVEN: 100 farine at the source
	// WHEN: One transfer carries two lines for farine, 30 and 40
	// THEN: The hold covers both lines, not just the last one written
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "store-paris", "farine", 100, 100)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", CreateTransferRequest{
		SourceStoreID: "store-paris",
		DestStoreID:   "store-lyon",
		Lines: []TransferLineDTO{
			{ProductID: "farine", QuantitySent: 30},
			{ProductID: "farine", QuantitySent: 40},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	level := levelFor(t, repo, "store-paris", "farine")
	assert.True(t, level.Reserved.Equal(decimal.NewFromInt(70)), "reserved: %s", level.Reserved)
	assert.True(t, level.Quantity.Equal(decimal.NewFromInt(100)), "creation must not touch on-hand stock")
}

func TestAPI_CreateTransfer_BlankStores_Rejected(t *testing.T) {
	// A level seeded under a blank store ID must not let a transfer with
	// empty (and therefore identical) stores through.
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "", "farine", 100, 100)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", CreateTransferRequest{
		Lines: []TransferLineDTO{{ProductID: "farine", QuantitySent: 5}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), stock.KindSameSourceDest)
}

func TestAPI_CancelTransfer_ReleasesReservation(t *testing.T) {
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "store-paris", "farine", 50, 100)

	created := decode[TransferDTO](t, doJSON(t, router, http.MethodPost, "/api/transfers", CreateTransferRequest{
		SourceStoreID: "store-paris",
		DestStoreID:   "store-lyon",
		Lines:         []TransferLineDTO{{ProductID: "farine", QuantitySent: 10}},
	}))

	rec := doJSON(t, router, http.MethodPost, "/api/transfers/"+created.ID+"/cancel?user=chef-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	level := levelFor(t, repo, "store-paris", "farine")
	assert.True(t, level.Quantity.Equal(decimal.NewFromInt(50)), "cancel must not touch on-hand stock")
	assert.True(t, level.Reserved.IsZero())
}

// =============================================================================
// INVENTORIES
// =============================================================================

func TestAPI_InventoryFlow(t *testing.T) {
	// Open a session, count both products, submit, approve.
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "store-paris", "farine", 50, 2)
	seedLevel(t, repo, "store-paris", "sucre", 20, 3)

	created := decode[InventoryDTO](t, doJSON(t, router, http.MethodPost, "/api/inventories", CreateInventoryRequest{
		StoreID:   "store-paris",
		CreatedBy: "emp-1",
	}))
	require.Len(t, created.Lines, 2)
	assert.Equal(t, string(stock.InventoryEnCours), created.Status)

	// Submitting before every product is counted is rejected.
	rec := doJSON(t, router, http.MethodPost, "/api/inventories/"+created.ID+"/submit?user=emp-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, line := range created.Lines {
		rec = doJSON(t, router, http.MethodPost, "/api/inventories/"+created.ID+"/count", CountRequest{
			ProductID: line.ProductID,
			Quantity:  line.TheoreticalQuantity - 1,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	submitted := decode[InventoryDTO](t, doJSON(t, router, http.MethodPost, "/api/inventories/"+created.ID+"/submit?user=emp-1", nil))
	assert.Equal(t, string(stock.InventoryEnAttenteValidation), submitted.Status)
	assert.Equal(t, 2.0, submitted.TotalVariance) // |-1| + |-1|

	resolved := decode[InventoryDTO](t, doJSON(t, router, http.MethodPost, "/api/inventories/"+created.ID+"/resolve", ResolveInventoryRequest{
		ValidatedBy: "chef-1",
		Approved:    true,
	}))
	assert.Equal(t, string(stock.InventoryValide), resolved.Status)
}

// =============================================================================
// ANALYSIS
// =============================================================================

func TestAPI_RiskPreview(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doJSON(t, router, http.MethodPost, "/api/risk/preview", RiskPreviewRequest{
		Kind: "receipt",
		Receipt: &CreateReceiptRequest{
			SupplierID: "sup-1",
			StoreID:    "store-paris",
			Lines:      []ReceiptLineDTO{{ProductID: "farine", Quantity: 100, UnitCost: 600, Subtotal: 60000}},
			TotalValue: 60000,
		},
		Context: ContextDTO{UserID: "emp-1", StoreID: "store-paris", At: "2025-03-12T10:30:00Z"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[stock.AdvancedValidationResult](t, rec)
	assert.Equal(t, stock.RiskHigh, result.RiskLevel)
	assert.True(t, result.RequiresApproval)
}

func TestAPI_RiskPreview_MismatchedPayload_Rejected(t *testing.T) {
	router, _ := newTestAPI(t)
	rec := doJSON(t, router, http.MethodPost, "/api/risk/preview", RiskPreviewRequest{Kind: "transfer"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Reconciliation(t *testing.T) {
	// GIVEN: 10 on the books, 8 counted (20% at 5% tolerance -> major)
	router, repo := newTestAPI(t)
	seedLevel(t, repo, "store-paris", "farine", 10, 100)

	rec := doJSON(t, router, http.MethodPost, "/api/reconciliation", ReconciliationRequest{
		Counts: []CountEntryDTO{{StoreID: "store-paris", ProductID: "farine", Quantity: 8}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ReconciliationResponse](t, rec)
	require.Len(t, resp.Inconsistencies, 1)
	assert.Equal(t, stock.SeverityMajor, resp.Inconsistencies[0].Severity)
	require.Len(t, resp.Actions, 1)
	assert.True(t, resp.Actions[0].SuggestedAdjustment.Equal(decimal.NewFromInt(-2)))
}
