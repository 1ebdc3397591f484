/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model (decimal.Decimal, typed IDs) from the external
  API contract (plain JSON numbers and strings).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation happens in the stock package, not here. DTOs are
  pure data carriers; the handlers convert and delegate.

SEE ALSO:
  - handlers.go: Uses these types
  - stock/validate.go: ValidationResult serialized into responses
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// RECEIPTS
// =============================================================================

type ReceiptLineDTO struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	UnitCost  float64 `json:"unitCost"`
	Subtotal  float64 `json:"subtotal"`
}

type CreateReceiptRequest struct {
	SupplierID string           `json:"supplierId"`
	StoreID    string           `json:"storeId"`
	Date       string           `json:"date,omitempty"` // RFC 3339; defaults to now
	Lines      []ReceiptLineDTO `json:"lines"`
	TotalValue float64          `json:"totalValue"`
	CreatedBy  string           `json:"createdBy"`
}

type ReceiptDTO struct {
	ID          string           `json:"id"`
	Number      string           `json:"number"`
	Date        string           `json:"date"`
	SupplierID  string           `json:"supplierId"`
	StoreID     string           `json:"storeId"`
	Lines       []ReceiptLineDTO `json:"lines"`
	TotalValue  float64          `json:"totalValue"`
	Status      string           `json:"status"`
	CreatedBy   string           `json:"createdBy,omitempty"`
	ValidatedBy string           `json:"validatedBy,omitempty"`
	ValidatedAt string           `json:"validatedAt,omitempty"`
}

// ValidateReceiptResponse carries the validated document plus the cost
// impacts the posting layer applied.
type ValidateReceiptResponse struct {
	Receipt ReceiptDTO      `json:"receipt"`
	Impacts []CUMPImpactDTO `json:"cumpImpacts"`
}

type CUMPImpactDTO struct {
	ProductID      string  `json:"productId"`
	OldAverageCost float64 `json:"oldAverageCost"`
	NewAverageCost float64 `json:"newAverageCost"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

type TransferLineDTO struct {
	ProductID        string   `json:"productId"`
	QuantitySent     float64  `json:"quantitySent"`
	QuantityReceived *float64 `json:"quantityReceived,omitempty"`
	Variance         float64  `json:"variance"`
}

type CreateTransferRequest struct {
	SourceStoreID string            `json:"sourceStoreId"`
	DestStoreID   string            `json:"destinationStoreId"`
	Date          string            `json:"date,omitempty"`
	Lines         []TransferLineDTO `json:"lines"`
	CreatedBy     string            `json:"createdBy"`
}

type ReceiveTransferRequest struct {
	ReceivedBy string             `json:"receivedBy"`
	Received   map[string]float64 `json:"received"` // productId -> quantity; absent = received in full
	Comment    string             `json:"comment,omitempty"`
}

type TransferDTO struct {
	ID               string            `json:"id"`
	Number           string            `json:"number"`
	Date             string            `json:"date"`
	SourceStoreID    string            `json:"sourceStoreId"`
	DestStoreID      string            `json:"destinationStoreId"`
	Lines            []TransferLineDTO `json:"lines"`
	Status           string            `json:"status"`
	ReceptionComment string            `json:"receptionComment,omitempty"`
}

// =============================================================================
// INVENTORIES
// =============================================================================

type InventoryLineDTO struct {
	ProductID           string   `json:"productId"`
	TheoreticalQuantity float64  `json:"theoreticalQuantity"`
	PhysicalQuantity    *float64 `json:"physicalQuantity,omitempty"`
	Variance            float64  `json:"variance"`
	VarianceValue       float64  `json:"varianceValue"`
}

type CreateInventoryRequest struct {
	StoreID   string `json:"storeId"`
	Date      string `json:"date,omitempty"`
	CreatedBy string `json:"createdBy"`
}

type CountRequest struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

type ResolveInventoryRequest struct {
	ValidatedBy string `json:"validatedBy"`
	Approved    bool   `json:"approved"`
	Reason      string `json:"reason,omitempty"`
}

type InventoryDTO struct {
	ID              string             `json:"id"`
	Number          string             `json:"number"`
	Date            string             `json:"date"`
	StoreID         string             `json:"storeId"`
	Lines           []InventoryLineDTO `json:"lines"`
	Status          string             `json:"status"`
	TotalVariance   float64            `json:"totalVariance"`
	VarianceValue   float64            `json:"varianceValue"`
	RejectionReason string             `json:"rejectionReason,omitempty"`
}

// =============================================================================
// RISK AND RECONCILIATION
// =============================================================================

type OperationRecordDTO struct {
	Type     string  `json:"type"`
	At       string  `json:"at"`
	Value    float64 `json:"value"`
	Quantity float64 `json:"quantity"`
}

type ContextDTO struct {
	UserID           string               `json:"userId"`
	Role             string               `json:"role"`
	StoreID          string               `json:"storeId"`
	At               string               `json:"at,omitempty"` // defaults to now
	RecentOperations []OperationRecordDTO `json:"recentOperations,omitempty"`
	AverageCost      float64              `json:"averageCost,omitempty"`
	AverageQuantity  float64              `json:"averageQuantity,omitempty"`
}

// RiskPreviewRequest evaluates a candidate operation without committing it.
// Exactly one of Receipt/Transfer must be set, matching Kind.
type RiskPreviewRequest struct {
	Kind     string                 `json:"kind"` // "receipt" | "transfer"
	Receipt  *CreateReceiptRequest  `json:"receipt,omitempty"`
	Transfer *CreateTransferRequest `json:"transfer,omitempty"`
	Context  ContextDTO             `json:"context"`
}

type ReconciliationRequest struct {
	Counts []CountEntryDTO `json:"counts"`
}

type CountEntryDTO struct {
	StoreID   string  `json:"storeId"`
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

type ReconciliationResponse struct {
	Inconsistencies []stock.Inconsistency        `json:"inconsistencies"`
	Actions         []stock.ReconciliationAction `json:"actions"`
}

// =============================================================================
// STOCK LEVELS
// =============================================================================

type StockLevelDTO struct {
	StoreID     string  `json:"storeId"`
	ProductID   string  `json:"productId"`
	Quantity    float64 `json:"quantity"`
	Reserved    float64 `json:"reservedQuantity"`
	Available   float64 `json:"availableQuantity"`
	AverageCost float64 `json:"averageCost"`
	UpdatedAt   string  `json:"updatedAt"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toReceiptDTO(doc *stock.Receipt) ReceiptDTO {
	dto := ReceiptDTO{
		ID:          string(doc.ID),
		Number:      doc.Number,
		Date:        doc.Date.Format(time.RFC3339),
		SupplierID:  string(doc.SupplierID),
		StoreID:     string(doc.StoreID),
		TotalValue:  doc.TotalValue.InexactFloat64(),
		Status:      string(doc.Status),
		CreatedBy:   string(doc.CreatedBy),
		ValidatedBy: string(doc.ValidatedBy),
	}
	if doc.ValidatedAt != nil {
		dto.ValidatedAt = doc.ValidatedAt.Format(time.RFC3339)
	}
	dto.Lines = make([]ReceiptLineDTO, len(doc.Lines))
	for i, l := range doc.Lines {
		dto.Lines[i] = ReceiptLineDTO{
			ProductID: string(l.ProductID),
			Quantity:  l.Quantity.InexactFloat64(),
			UnitCost:  l.UnitCost.InexactFloat64(),
			Subtotal:  l.Subtotal.InexactFloat64(),
		}
	}
	return dto
}

func toTransferDTO(doc *stock.Transfer) TransferDTO {
	dto := TransferDTO{
		ID:               string(doc.ID),
		Number:           doc.Number,
		Date:             doc.Date.Format(time.RFC3339),
		SourceStoreID:    string(doc.SourceStore),
		DestStoreID:      string(doc.DestStore),
		Status:           string(doc.Status),
		ReceptionComment: doc.ReceptionComment,
	}
	dto.Lines = make([]TransferLineDTO, len(doc.Lines))
	for i, l := range doc.Lines {
		line := TransferLineDTO{
			ProductID:    string(l.ProductID),
			QuantitySent: l.QuantitySent.InexactFloat64(),
			Variance:     l.Variance().InexactFloat64(),
		}
		if l.QuantityReceived != nil {
			q := l.QuantityReceived.InexactFloat64()
			line.QuantityReceived = &q
		}
		dto.Lines[i] = line
	}
	return dto
}

func toInventoryDTO(doc *stock.Inventory) InventoryDTO {
	dto := InventoryDTO{
		ID:              string(doc.ID),
		Number:          doc.Number,
		Date:            doc.Date.Format(time.RFC3339),
		StoreID:         string(doc.Store),
		Status:          string(doc.Status),
		TotalVariance:   doc.TotalVariance.InexactFloat64(),
		VarianceValue:   doc.VarianceValue.InexactFloat64(),
		RejectionReason: doc.RejectionReason,
	}
	dto.Lines = make([]InventoryLineDTO, len(doc.Lines))
	for i, l := range doc.Lines {
		line := InventoryLineDTO{
			ProductID:           string(l.ProductID),
			TheoreticalQuantity: l.TheoreticalQuantity.InexactFloat64(),
			Variance:            l.Variance.InexactFloat64(),
			VarianceValue:       l.VarianceValue.InexactFloat64(),
		}
		if l.PhysicalQuantity != nil {
			q := l.PhysicalQuantity.InexactFloat64()
			line.PhysicalQuantity = &q
		}
		dto.Lines[i] = line
	}
	return dto
}

func toStockLevelDTO(l stock.StockLevel) StockLevelDTO {
	return StockLevelDTO{
		StoreID:     string(l.StoreID),
		ProductID:   string(l.ProductID),
		Quantity:    l.Quantity.InexactFloat64(),
		Reserved:    l.Reserved.InexactFloat64(),
		Available:   l.Available().InexactFloat64(),
		AverageCost: l.AverageCost.InexactFloat64(),
		UpdatedAt:   l.UpdatedAt.Format(time.RFC3339),
	}
}

func receiptFromRequest(req CreateReceiptRequest) (*stock.Receipt, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	doc := &stock.Receipt{
		SupplierID: stock.SupplierID(req.SupplierID),
		StoreID:    stock.StoreID(req.StoreID),
		TotalValue: decimal.NewFromFloat(req.TotalValue),
		Status:     stock.ReceiptDraft,
		CreatedBy:  stock.UserID(req.CreatedBy),
		Date:       date,
	}
	doc.Lines = make([]stock.ReceiptLine, len(req.Lines))
	for i, l := range req.Lines {
		doc.Lines[i] = stock.ReceiptLine{
			ProductID: stock.ProductID(l.ProductID),
			Quantity:  decimal.NewFromFloat(l.Quantity),
			UnitCost:  decimal.NewFromFloat(l.UnitCost),
			Subtotal:  decimal.NewFromFloat(l.Subtotal),
		}
	}
	return doc, nil
}

func transferFromRequest(req CreateTransferRequest) (*stock.Transfer, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	doc := &stock.Transfer{
		SourceStore: stock.StoreID(req.SourceStoreID),
		DestStore:   stock.StoreID(req.DestStoreID),
		Status:      stock.TransferEnTransit,
		CreatedBy:   stock.UserID(req.CreatedBy),
		Date:        date,
	}
	doc.Lines = make([]stock.TransferLine, len(req.Lines))
	for i, l := range req.Lines {
		doc.Lines[i] = stock.TransferLine{
			ProductID:    stock.ProductID(l.ProductID),
			QuantitySent: decimal.NewFromFloat(l.QuantitySent),
		}
	}
	return doc, nil
}

func contextFromDTO(dto ContextDTO) (stock.OperationContext, error) {
	at, err := parseDate(dto.At)
	if err != nil {
		return stock.OperationContext{}, err
	}
	opCtx := stock.OperationContext{
		UserID:  stock.UserID(dto.UserID),
		Role:    dto.Role,
		StoreID: stock.StoreID(dto.StoreID),
		At:      at,
		Historical: stock.HistoricalData{
			AverageCost:     decimal.NewFromFloat(dto.AverageCost),
			AverageQuantity: decimal.NewFromFloat(dto.AverageQuantity),
		},
	}
	for _, rec := range dto.RecentOperations {
		recAt, err := parseDate(rec.At)
		if err != nil {
			return stock.OperationContext{}, err
		}
		opCtx.RecentOperations = append(opCtx.RecentOperations, stock.OperationRecord{
			Type:     rec.Type,
			At:       recAt,
			Value:    decimal.NewFromFloat(rec.Value),
			Quantity: decimal.NewFromFloat(rec.Quantity),
		})
	}
	return opCtx, nil
}

// parseDate parses an RFC 3339 timestamp. Empty means "now"; anything else
// malformed is the caller's 400, not a silent reinterpretation.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, s)
}
