/*
Package stock provides the core validation, risk-scoring, and reconciliation
engine for a multi-location retail stock operation.

PURPOSE:
  This package contains the domain types and algorithms that guard every
  stock-affecting operation: goods receipts, inter-location transfers, and
  physical inventory counts. It enforces arithmetic invariants on documents,
  scores candidate operations against configurable business thresholds,
  classifies discrepancies between recorded and counted stock, and recomputes
  weighted-average unit cost (CUMP) on receipt.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product/StockLevel: Catalog and per-store stock snapshot
  - BusinessRules: Static numeric thresholds governing risk and tolerance
  - OperationContext: Who is acting, where, and their recent history
  - Receipt/Transfer/Inventory: The three stock-affecting documents

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all quantities, costs, and values
  2. Purity: Validators and assessors never mutate their inputs
  3. Snapshots: All checks run against the StockLevel snapshot passed in;
     freshness is the caller's responsibility
  4. Auditability: Documents carry created/validated/received audit fields

USAGE:
  doc := stock.Receipt{
      Number:  "BR-2025-0001",
      StoreID: "store-paris",
      Lines:   []stock.ReceiptLine{{ProductID: "p1", Quantity: qty, UnitCost: cost, Subtotal: sub}},
  }
  result := stock.ValidateBonReception(&doc, true)

SEE ALSO:
  - validate.go: Field and supplier validators, ValidationResult
  - risk.go: Multi-factor risk assessment
  - reconcile.go: Inventory discrepancy detection
  - lifecycle.go: Guarded status transitions
*/
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type StoreID string
type SupplierID string
type UserID string
type DocumentID string

// =============================================================================
// CATALOG AND STOCK SNAPSHOT
// =============================================================================

// Product is a catalog entry. The catalog itself is owned by a collaborator;
// the engine only reads product data attached to documents and stock levels.
type Product struct {
	ID        ProductID
	Name      string
	Unit      string
	UnitPrice decimal.Decimal
	Category  string
}

// StockLevel is a point-in-time snapshot of one product at one store.
type StockLevel struct {
	StoreID   StoreID
	ProductID ProductID
	Quantity  decimal.Decimal
	Reserved  decimal.Decimal

	// AverageCost is the current weighted-average unit cost (CUMP) for the
	// product at this store. Used by the cost valuation engine.
	AverageCost decimal.Decimal

	UpdatedAt time.Time
}

// Available returns the quantity free for transfer: on-hand minus reserved.
func (s StockLevel) Available() decimal.Decimal {
	return s.Quantity.Sub(s.Reserved)
}

// Supplier is the party a receipt is sourced from.
type Supplier struct {
	ID    SupplierID
	Name  string
	Email string
	Phone string
}

// =============================================================================
// BUSINESS RULES - Static threshold configuration
// =============================================================================

// BusinessRules holds the numeric thresholds that drive risk scoring and
// reconciliation tolerance. Loaded once at startup (see factory package)
// and treated as immutable afterwards.
type BusinessRules struct {
	// Per-operation ceilings
	MaxQuantityPerOperation decimal.Decimal
	MaxValuePerOperation    decimal.Decimal

	// Stock level alerts
	CriticalStockThreshold decimal.Decimal
	OverstockThreshold     decimal.Decimal

	// Cost variance tolerance, in percent, against historical average cost
	MaxCostVariancePercent decimal.Decimal

	// Inventory count tolerance, in percent, before a discrepancy is flagged
	InventoryTolerancePercent decimal.Decimal

	// Operation rate limits
	MaxOperationsPerHour     int
	MinTimeBetweenOperations time.Duration

	// Business hours window (local hours, [Start, End))
	BusinessHoursStart int
	BusinessHoursEnd   int
}

// =============================================================================
// OPERATION CONTEXT - History the risk assessor scores against
// =============================================================================

// OperationRecord is one past operation by the acting user, as sourced from
// the audit/journal subsystem.
type OperationRecord struct {
	Type     string
	At       time.Time
	Value    decimal.Decimal
	Quantity decimal.Decimal
}

// HistoricalData aggregates past behavior for the product/store involved.
type HistoricalData struct {
	AverageCost        decimal.Decimal
	AverageQuantity    decimal.Decimal
	OperationFrequency decimal.Decimal // operations per day
}

// OperationContext describes who is attempting an operation and the recent
// history the risk assessor evaluates it against.
type OperationContext struct {
	UserID           UserID
	Role             string
	StoreID          StoreID
	At               time.Time
	RecentOperations []OperationRecord
	Historical       HistoricalData
}

// =============================================================================
// RECEIPT (bon de réception)
// =============================================================================

type ReceiptStatus string

const (
	ReceiptDraft     ReceiptStatus = "draft"
	ReceiptValidated ReceiptStatus = "validated"
)

// ReceiptLine is one product received from a supplier.
type ReceiptLine struct {
	ProductID ProductID
	Quantity  decimal.Decimal // quantity received, must be > 0
	UnitCost  decimal.Decimal // must be > 0
	Subtotal  decimal.Decimal // must equal Quantity * UnitCost exactly
}

// Receipt records goods received from a supplier into one store.
// Created in draft by the caller, mutated only through the lifecycle
// controller, immutable once validated.
type Receipt struct {
	ID         DocumentID
	Number     string // BR-YYYY-NNNN
	Date       time.Time
	SupplierID SupplierID
	StoreID    StoreID
	Lines      []ReceiptLine
	TotalValue decimal.Decimal // must equal the sum of line subtotals

	Status ReceiptStatus

	// Audit fields
	CreatedBy   UserID
	CreatedAt   time.Time
	ValidatedBy UserID
	ValidatedAt *time.Time
}

// =============================================================================
// TRANSFER (inter-location movement)
// =============================================================================

type TransferStatus string

const (
	TransferEnTransit        TransferStatus = "en_transit"
	TransferTermine          TransferStatus = "termine"
	TransferTermineAvecEcart TransferStatus = "termine_avec_ecart"
	TransferAnnule           TransferStatus = "annule"
)

// TransferLine is one product moved between stores. QuantityReceived stays
// nil until the destination confirms reception.
type TransferLine struct {
	ProductID        ProductID
	QuantitySent     decimal.Decimal
	QuantityReceived *decimal.Decimal
}

// Variance returns received minus sent. Zero while reception is pending.
func (l TransferLine) Variance() decimal.Decimal {
	if l.QuantityReceived == nil {
		return decimal.Zero
	}
	return l.QuantityReceived.Sub(l.QuantitySent)
}

// Transfer moves stock from one store to another.
type Transfer struct {
	ID          DocumentID
	Number      string // TR-YYYY-NNNN
	Date        time.Time
	SourceStore StoreID
	DestStore   StoreID
	Lines       []TransferLine

	Status TransferStatus

	// ReceptionComment is mandatory whenever any line has a variance.
	ReceptionComment string

	// Audit fields
	CreatedBy   UserID
	CreatedAt   time.Time
	ReceivedBy  UserID
	ReceivedAt  *time.Time
	CancelledBy UserID
	CancelledAt *time.Time
}

// HasVariance reports whether any received line differs from what was sent.
func (t *Transfer) HasVariance() bool {
	for _, l := range t.Lines {
		if !l.Variance().IsZero() {
			return true
		}
	}
	return false
}

// =============================================================================
// PHYSICAL INVENTORY (count)
// =============================================================================

type InventoryStatus string

const (
	InventoryEnCours             InventoryStatus = "en_cours"
	InventoryEnAttenteValidation InventoryStatus = "en_attente_validation"
	InventoryValide              InventoryStatus = "valide"
)

// InventoryLine is one product being counted. PhysicalQuantity stays nil
// until the count for that product is recorded.
type InventoryLine struct {
	ProductID           ProductID
	TheoreticalQuantity decimal.Decimal
	PhysicalQuantity    *decimal.Decimal
	Variance            decimal.Decimal // physical - theoretical, set when counted
	VarianceValue       decimal.Decimal // variance * unit cost
}

// Counted reports whether a physical quantity has been recorded for the line.
func (l InventoryLine) Counted() bool {
	return l.PhysicalQuantity != nil
}

// Inventory is a physical count session for one store.
type Inventory struct {
	ID     DocumentID
	Number string // INV-YYYY-NNNN
	Date   time.Time
	Store  StoreID
	Lines  []InventoryLine

	Status InventoryStatus

	// Totals computed on submission: sums of absolute variances/values.
	TotalVariance decimal.Decimal
	VarianceValue decimal.Decimal

	// Set when a validation is rejected back to en_cours.
	RejectionReason string

	// Audit fields
	CreatedBy   UserID
	CreatedAt   time.Time
	SubmittedBy UserID
	SubmittedAt *time.Time
	ValidatedBy UserID
	ValidatedAt *time.Time
}

// Complete reports whether every line has a recorded physical count.
func (inv *Inventory) Complete() bool {
	for _, l := range inv.Lines {
		if !l.Counted() {
			return false
		}
	}
	return true
}
