/*
handlers.go - HTTP API handlers for the stock engine

PURPOSE:
  Exposes the engine's in-process operations over REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Receipts:
    GET    /api/receipts                    List receipts
    POST   /api/receipts                    Create draft (draft-validated)
    GET    /api/receipts/{id}               Get receipt
    DELETE /api/receipts/{id}               Delete draft
    POST   /api/receipts/{id}/validate      Validate + post stock/CUMP
    GET    /api/receipts/{id}/cump          Speculative CUMP preview

  Transfers:
    GET    /api/transfers                   List transfers
    POST   /api/transfers                   Create (validated vs source stock)
    GET    /api/transfers/{id}              Get transfer
    POST   /api/transfers/{id}/receive      Record reception
    POST   /api/transfers/{id}/cancel       Cancel while in transit

  Inventories:
    GET    /api/inventories                 List count sessions
    POST   /api/inventories                 Open session (theoretical from stock)
    GET    /api/inventories/{id}            Get session
    POST   /api/inventories/{id}/count      Record one product's count
    POST   /api/inventories/{id}/submit     Submit for validation
    POST   /api/inventories/{id}/resolve    Approve or reject

  Analysis:
    POST   /api/risk/preview                Speculative risk assessment
    POST   /api/reconciliation              Drift detection over counts
    GET    /api/stock                       Stock level snapshot

ERROR HANDLING:
  Errors map to JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, illegal transitions
  - 404: Document not found
  - 409: Lost compare-and-set race (reload and retry)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo      stock.Repository
	Lifecycle *stock.Lifecycle
	Rules     stock.BusinessRules
}

// NewHandler creates a new handler over the given repository and rules.
func NewHandler(repo stock.Repository, rules stock.BusinessRules) *Handler {
	return &Handler{
		Repo:      repo,
		Lifecycle: stock.NewLifecycle(repo),
		Rules:     rules,
	}
}

// =============================================================================
// RECEIPT HANDLERS
// =============================================================================

// CreateReceipt creates a draft receipt. The draft validator runs (zero
// lines permitted); a structurally broken draft is rejected outright.
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	doc, err := receiptFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	if result := stock.ValidateBonReceptionDraft(doc); !result.IsValid {
		writeValidationFailure(w, result)
		return
	}

	number, err := stock.NextDocumentNumber(r.Context(), h.Repo, stock.PrefixReceipt, doc.Date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to number receipt", err)
		return
	}
	doc.ID = stock.DocumentID(uuid.NewString())
	doc.Number = number
	doc.CreatedAt = time.Now()

	if err := h.Repo.SaveReceipt(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save receipt", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptDTO(doc))
}

func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Repo.ListReceipts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list receipts", err)
		return
	}
	dtos := make([]ReceiptDTO, len(docs))
	for i, doc := range docs {
		dtos[i] = toReceiptDTO(doc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Repo.GetReceipt(r.Context(), stock.DocumentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(doc))
}

// ValidateReceipt runs the draft -> validated transition and, on success,
// posts the stock increments and CUMP updates. The posting happens HERE,
// outside the engine, which only reports what to apply.
func (h *Handler) ValidateReceipt(w http.ResponseWriter, r *http.Request) {
	id := stock.DocumentID(chi.URLParam(r, "id"))
	validator := stock.UserID(r.URL.Query().Get("user"))

	doc, err := h.Repo.GetReceipt(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	levels, err := h.Repo.Levels(r.Context(), doc.StoreID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}

	validated, impacts, err := h.Lifecycle.ValidateReceipt(r.Context(), id, validator, time.Now(), levels)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	for i, line := range validated.Lines {
		cost := impacts[i].NewAverageCost
		if err := h.Repo.AdjustLevel(r.Context(), validated.StoreID, line.ProductID, line.Quantity, &cost); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to post stock increment", err)
			return
		}
	}

	resp := ValidateReceiptResponse{Receipt: toReceiptDTO(validated)}
	for _, imp := range impacts {
		resp.Impacts = append(resp.Impacts, CUMPImpactDTO{
			ProductID:      string(imp.ProductID),
			OldAverageCost: imp.OldAverageCost.InexactFloat64(),
			NewAverageCost: imp.NewAverageCost.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := h.Lifecycle.DeleteReceipt(r.Context(), stock.DocumentID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewCUMP returns the cost impacts validating the receipt would have,
// without committing anything.
func (h *Handler) PreviewCUMP(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Repo.GetReceipt(r.Context(), stock.DocumentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	levels, err := h.Repo.Levels(r.Context(), doc.StoreID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}

	var dtos []CUMPImpactDTO
	for _, imp := range stock.CalculateCUMPImpact(doc, levels) {
		dtos = append(dtos, CUMPImpactDTO{
			ProductID:      string(imp.ProductID),
			OldAverageCost: imp.OldAverageCost.InexactFloat64(),
			NewAverageCost: imp.NewAverageCost.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// CreateTransfer creates a transfer in en_transit after validating it
// against the source store's current stock.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	doc, err := transferFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	levels, err := h.Repo.Levels(r.Context(), doc.SourceStore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}
	if result := stock.ValidateTransfert(doc, levels); !result.IsValid {
		writeValidationFailure(w, result)
		return
	}

	number, err := stock.NextDocumentNumber(r.Context(), h.Repo, stock.PrefixTransfer, doc.Date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to number transfer", err)
		return
	}
	doc.ID = stock.DocumentID(uuid.NewString())
	doc.Number = number
	doc.CreatedAt = time.Now()

	if err := h.Repo.SaveTransfer(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save transfer", err)
		return
	}

	// Hold the shipped quantities at the source so a second transfer can't
	// promise the same stock. Quantities are summed per product first: a
	// transfer may carry several lines for the same product, and each upsert
	// replaces the level row.
	holds := make(map[stock.ProductID]decimal.Decimal, len(doc.Lines))
	order := make([]stock.ProductID, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		if _, seen := holds[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		holds[line.ProductID] = holds[line.ProductID].Add(line.QuantitySent)
	}
	for _, product := range order {
		level := findLevel(levels, product)
		level.Reserved = level.Reserved.Add(holds[product])
		level.StoreID = doc.SourceStore
		level.ProductID = product
		if err := h.Repo.UpsertLevel(r.Context(), level); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to reserve stock", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toTransferDTO(doc))
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Repo.ListTransfers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transfers", err)
		return
	}
	dtos := make([]TransferDTO, len(docs))
	for i, doc := range docs {
		dtos[i] = toTransferDTO(doc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Repo.GetTransfer(r.Context(), stock.DocumentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(doc))
}

// ReceiveTransfer records reception and posts the stock movement: the sent
// quantity leaves the source (release + decrement) and the received
// quantity enters the destination.
func (h *Handler) ReceiveTransfer(w http.ResponseWriter, r *http.Request) {
	var req ReceiveTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	received := make(map[stock.ProductID]decimal.Decimal, len(req.Received))
	for pid, qty := range req.Received {
		received[stock.ProductID(pid)] = decimal.NewFromFloat(qty)
	}

	id := stock.DocumentID(chi.URLParam(r, "id"))
	doc, err := h.Lifecycle.ReceiveTransfer(r.Context(), id, stock.UserID(req.ReceivedBy), time.Now(), received, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	for _, line := range doc.Lines {
		if err := h.releaseReservation(r, doc.SourceStore, line.ProductID, line.QuantitySent); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to release reservation", err)
			return
		}
		if err := h.Repo.AdjustLevel(r.Context(), doc.SourceStore, line.ProductID, line.QuantitySent.Neg(), nil); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to post source decrement", err)
			return
		}
		if err := h.Repo.AdjustLevel(r.Context(), doc.DestStore, line.ProductID, *line.QuantityReceived, nil); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to post destination increment", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toTransferDTO(doc))
}

// CancelTransfer aborts an in-transit transfer and releases the source hold.
func (h *Handler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	id := stock.DocumentID(chi.URLParam(r, "id"))
	by := stock.UserID(r.URL.Query().Get("user"))

	doc, err := h.Lifecycle.CancelTransfer(r.Context(), id, by, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	for _, line := range doc.Lines {
		if err := h.releaseReservation(r, doc.SourceStore, line.ProductID, line.QuantitySent); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to release reservation", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toTransferDTO(doc))
}

func (h *Handler) releaseReservation(r *http.Request, store stock.StoreID, product stock.ProductID, qty decimal.Decimal) error {
	levels, err := h.Repo.Levels(r.Context(), store)
	if err != nil {
		return err
	}
	level := findLevel(levels, product)
	level.StoreID = store
	level.ProductID = product
	level.Reserved = level.Reserved.Sub(qty)
	if level.Reserved.IsNegative() {
		level.Reserved = decimal.Zero
	}
	return h.Repo.UpsertLevel(r.Context(), level)
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// CreateInventory opens a count session with theoretical quantities taken
// from the current stock snapshot for the store.
func (h *Handler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var req CreateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.StoreID == "" {
		writeError(w, http.StatusBadRequest, "storeId is required", nil)
		return
	}

	levels, err := h.Repo.Levels(r.Context(), stock.StoreID(req.StoreID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	doc := &stock.Inventory{
		Store:     stock.StoreID(req.StoreID),
		Status:    stock.InventoryEnCours,
		CreatedBy: stock.UserID(req.CreatedBy),
		Date:      date,
		CreatedAt: time.Now(),
	}
	for _, l := range levels {
		doc.Lines = append(doc.Lines, stock.InventoryLine{
			ProductID:           l.ProductID,
			TheoreticalQuantity: l.Quantity,
		})
	}

	number, err := stock.NextDocumentNumber(r.Context(), h.Repo, stock.PrefixInventory, doc.Date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to number inventory", err)
		return
	}
	doc.ID = stock.DocumentID(uuid.NewString())
	doc.Number = number

	if err := h.Repo.SaveInventory(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save inventory", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryDTO(doc))
}

func (h *Handler) ListInventories(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Repo.ListInventories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list inventories", err)
		return
	}
	dtos := make([]InventoryDTO, len(docs))
	for i, doc := range docs {
		dtos[i] = toInventoryDTO(doc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Repo.GetInventory(r.Context(), stock.DocumentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryDTO(doc))
}

// RecordCount stores one product's physical count on an open session.
func (h *Handler) RecordCount(w http.ResponseWriter, r *http.Request) {
	var req CountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if errs := stock.ValidateQuantity(req.Quantity); len(errs) > 0 && errs[0].Kind != stock.KindZeroQuantity {
		// zero is a legitimate count; negative or non-finite is not
		writeValidationFailure(w, stock.ValidationResult{IsValid: false, Errors: errs})
		return
	}

	id := stock.DocumentID(chi.URLParam(r, "id"))
	doc, err := h.Repo.GetInventory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if doc.Status != stock.InventoryEnCours {
		writeError(w, http.StatusBadRequest, "counts can only be recorded on an open session", nil)
		return
	}

	levels, err := h.Repo.Levels(r.Context(), doc.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}

	found := false
	for i, line := range doc.Lines {
		if line.ProductID == stock.ProductID(req.ProductID) {
			unitCost := findLevel(levels, line.ProductID).AverageCost
			doc.Lines[i] = stock.CountLine(line, decimal.NewFromFloat(req.Quantity), unitCost)
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "product is not part of this inventory", nil)
		return
	}

	if err := h.Repo.SaveInventory(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save count", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryDTO(doc))
}

func (h *Handler) SubmitInventory(w http.ResponseWriter, r *http.Request) {
	id := stock.DocumentID(chi.URLParam(r, "id"))
	by := stock.UserID(r.URL.Query().Get("user"))

	doc, err := h.Lifecycle.SubmitInventory(r.Context(), id, by, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryDTO(doc))
}

// ResolveInventory approves a submitted count (terminal) or rejects it back
// to counting with a reason.
func (h *Handler) ResolveInventory(w http.ResponseWriter, r *http.Request) {
	var req ResolveInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	id := stock.DocumentID(chi.URLParam(r, "id"))
	doc, err := h.Lifecycle.ValidateInventory(r.Context(), id, stock.UserID(req.ValidatedBy), time.Now(), req.Approved, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryDTO(doc))
}

// =============================================================================
// ANALYSIS HANDLERS
// =============================================================================

// PreviewRisk runs the comprehensive assessment on a candidate operation
// without committing anything.
func (h *Handler) PreviewRisk(w http.ResponseWriter, r *http.Request) {
	var req RiskPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var op stock.Operation
	var store stock.StoreID
	switch {
	case req.Kind == string(stock.OpReceipt) && req.Receipt != nil:
		doc, err := receiptFromRequest(*req.Receipt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date", err)
			return
		}
		op = stock.ReceiptOperation(doc)
		store = doc.StoreID
	case req.Kind == string(stock.OpTransfer) && req.Transfer != nil:
		doc, err := transferFromRequest(*req.Transfer)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date", err)
			return
		}
		op = stock.TransferOperation(doc)
		store = doc.SourceStore
	default:
		writeError(w, http.StatusBadRequest, "kind must be receipt or transfer, with a matching payload", nil)
		return
	}

	opCtx, err := contextFromDTO(req.Context)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	levels, err := h.Repo.Levels(r.Context(), store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}

	result := stock.ValidateComprehensive(op, opCtx, levels, h.Rules)
	writeJSON(w, http.StatusOK, result)
}

// RunReconciliation detects drift between the stock snapshot and the given
// physical counts, and proposes (non-committing) adjustment actions.
func (h *Handler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	var req ReconciliationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	levels, err := h.Repo.AllLevels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}

	counts := make([]stock.PhysicalCount, len(req.Counts))
	for i, c := range req.Counts {
		counts[i] = stock.PhysicalCount{
			StoreID:   stock.StoreID(c.StoreID),
			ProductID: stock.ProductID(c.ProductID),
			Quantity:  decimal.NewFromFloat(c.Quantity),
		}
	}

	inconsistencies := stock.DetectInventoryInconsistencies(levels, counts, h.Rules)
	writeJSON(w, http.StatusOK, ReconciliationResponse{
		Inconsistencies: inconsistencies,
		Actions:         stock.GenerateReconciliationActions(inconsistencies),
	})
}

// GetStockLevels returns the snapshot, optionally filtered by ?store=.
func (h *Handler) GetStockLevels(w http.ResponseWriter, r *http.Request) {
	var levels []stock.StockLevel
	var err error
	if store := r.URL.Query().Get("store"); store != "" {
		levels, err = h.Repo.Levels(r.Context(), stock.StoreID(store))
	} else {
		levels, err = h.Repo.AllLevels(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock levels", err)
		return
	}

	dtos := make([]StockLevelDTO, len(levels))
	for i, l := range levels {
		dtos[i] = toStockLevelDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertStockLevel seeds or replaces one product's level at a store.
func (h *Handler) UpsertStockLevel(w http.ResponseWriter, r *http.Request) {
	var dto StockLevelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	level := stock.StockLevel{
		StoreID:     stock.StoreID(dto.StoreID),
		ProductID:   stock.ProductID(dto.ProductID),
		Quantity:    decimal.NewFromFloat(dto.Quantity),
		Reserved:    decimal.NewFromFloat(dto.Reserved),
		AverageCost: decimal.NewFromFloat(dto.AverageCost),
		UpdatedAt:   time.Now(),
	}
	if err := h.Repo.UpsertLevel(r.Context(), level); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save stock level", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockLevelDTO(level))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func findLevel(levels []stock.StockLevel, product stock.ProductID) stock.StockLevel {
	for _, l := range levels {
		if l.ProductID == product {
			return l
		}
	}
	return stock.StockLevel{}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]any{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

// writeValidationFailure returns the structured findings with a 400 so the
// client can surface them field by field.
func writeValidationFailure(w http.ResponseWriter, result stock.ValidationResult) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":      "validation failed",
		"validation": result,
	})
}

// writeDomainError maps engine errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case stock.IsNotFound(err):
		writeError(w, http.StatusNotFound, "document not found", err)
	case stock.IsRetryable(err):
		writeError(w, http.StatusConflict, "concurrent modification, reload and retry", err)
	case stock.IsClientError(err):
		var stateErr *stock.StateError
		if errors.As(err, &stateErr) && stateErr.Validation != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":      stateErr.Error(),
				"validation": stateErr.Validation,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "operation rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
