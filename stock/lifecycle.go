/*
lifecycle.go - Guarded status transitions for the three document kinds

PURPOSE:
  The single write path for documents. Every transition:
  1. Loads the document
  2. Checks the current status allows the transition (else StateError)
  3. Runs the relevant validator as a guard (else StateError with findings)
  4. Stamps audit fields
  5. Persists via compare-and-set on the expected status (ConflictError on
     a lost race; caller reloads and retries)

STATE MACHINES:
  Receipt:   draft --validate--> validated (terminal)
  Transfer:  en_transit --receive--> termine | termine_avec_ecart
             en_transit --cancel---> annule
  Inventory: en_cours --submit--> en_attente_validation
             en_attente_validation --approve--> valide
             en_attente_validation --reject(reason)--> en_cours

  Every transition is monotonic except inventory rejection. Terminal
  documents (validated / termine* / annule / valide) are immutable.

SIDE EFFECTS:
  The controller persists document state ONLY. Stock increments and CUMP
  updates are returned to the caller (see ValidateReceipt) and applied by
  the external posting layer; this core never writes stock levels.

SEE ALSO:
  - store.go: Compare-and-set contract
  - receipt.go / transfer.go: Validation guards
*/
package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lifecycle enforces the per-document state machines over an injected store.
type Lifecycle struct {
	Store DocumentStore
}

func NewLifecycle(store DocumentStore) *Lifecycle {
	return &Lifecycle{Store: store}
}

// =============================================================================
// RECEIPT
// =============================================================================

// ValidateReceipt moves a draft receipt to validated. The full (non-draft)
// validator runs as the guard. On success the receipt is stamped and the
// CUMP impacts against the given snapshot are returned; applying them, and
// incrementing stock, is the caller's job.
func (lc *Lifecycle) ValidateReceipt(ctx context.Context, id DocumentID, validator UserID, at time.Time, stockLevels []StockLevel) (*Receipt, []CUMPImpact, error) {
	doc, err := lc.Store.GetReceipt(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.Status != ReceiptDraft {
		return nil, nil, &StateError{Document: id, From: string(doc.Status), To: string(ReceiptValidated)}
	}

	if result := ValidateBonReception(doc, true); !result.IsValid {
		return nil, nil, &StateError{
			Document:   id,
			From:       string(ReceiptDraft),
			To:         string(ReceiptValidated),
			Reason:     fmt.Sprintf("%d validation errors", len(result.Errors)),
			Validation: &result,
		}
	}

	stamped := *doc
	stamped.Status = ReceiptValidated
	stamped.ValidatedBy = validator
	stamped.ValidatedAt = &at

	if err := lc.Store.TransitionReceipt(ctx, &stamped, ReceiptDraft); err != nil {
		return nil, nil, err
	}
	return &stamped, CalculateCUMPImpact(&stamped, stockLevels), nil
}

// DeleteReceipt removes a draft. Validated receipts are immutable.
func (lc *Lifecycle) DeleteReceipt(ctx context.Context, id DocumentID) error {
	doc, err := lc.Store.GetReceipt(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != ReceiptDraft {
		return &StateError{Document: id, From: string(doc.Status), To: "deleted", Reason: "validated receipts are immutable"}
	}
	return lc.Store.DeleteReceipt(ctx, id)
}

// =============================================================================
// TRANSFER
// =============================================================================

// ReceiveTransfer records reception at the destination. received maps each
// product to the quantity actually received; a product absent from the map
// is treated as received in full. Any line variance makes the reception
// comment mandatory and lands the transfer in termine_avec_ecart.
func (lc *Lifecycle) ReceiveTransfer(ctx context.Context, id DocumentID, receiver UserID, at time.Time, received map[ProductID]decimal.Decimal, comment string) (*Transfer, error) {
	doc, err := lc.Store.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != TransferEnTransit {
		return nil, &StateError{Document: id, From: string(doc.Status), To: string(TransferTermine)}
	}

	stamped := *doc
	stamped.Lines = make([]TransferLine, len(doc.Lines))
	copy(stamped.Lines, doc.Lines)

	for i := range stamped.Lines {
		qty, ok := received[stamped.Lines[i].ProductID]
		if !ok {
			qty = stamped.Lines[i].QuantitySent
		}
		q := qty
		stamped.Lines[i].QuantityReceived = &q
	}

	target := TransferTermine
	if stamped.HasVariance() {
		if comment == "" {
			return nil, &StateError{
				Document: id,
				From:     string(TransferEnTransit),
				To:       string(TransferTermineAvecEcart),
				Reason:   ErrCommentRequired.Error(),
			}
		}
		target = TransferTermineAvecEcart
	}

	stamped.Status = target
	stamped.ReceptionComment = comment
	stamped.ReceivedBy = receiver
	stamped.ReceivedAt = &at

	if err := lc.Store.TransitionTransfer(ctx, &stamped, TransferEnTransit); err != nil {
		return nil, err
	}
	return &stamped, nil
}

// CancelTransfer aborts a transfer still in transit.
func (lc *Lifecycle) CancelTransfer(ctx context.Context, id DocumentID, by UserID, at time.Time) (*Transfer, error) {
	doc, err := lc.Store.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != TransferEnTransit {
		return nil, &StateError{Document: id, From: string(doc.Status), To: string(TransferAnnule)}
	}

	stamped := *doc
	stamped.Status = TransferAnnule
	stamped.CancelledBy = by
	stamped.CancelledAt = &at

	if err := lc.Store.TransitionTransfer(ctx, &stamped, TransferEnTransit); err != nil {
		return nil, err
	}
	return &stamped, nil
}

// =============================================================================
// INVENTORY
// =============================================================================

// SubmitInventory moves a count session to en_attente_validation. Every line
// must have a recorded physical quantity; totals are computed on the way.
func (lc *Lifecycle) SubmitInventory(ctx context.Context, id DocumentID, by UserID, at time.Time) (*Inventory, error) {
	doc, err := lc.Store.GetInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != InventoryEnCours {
		return nil, &StateError{Document: id, From: string(doc.Status), To: string(InventoryEnAttenteValidation)}
	}
	if !doc.Complete() {
		return nil, &StateError{
			Document: id,
			From:     string(InventoryEnCours),
			To:       string(InventoryEnAttenteValidation),
			Reason:   ErrIncompleteInventory.Error(),
		}
	}

	stamped := *doc
	stamped.Status = InventoryEnAttenteValidation
	stamped.TotalVariance, stamped.VarianceValue = InventoryTotals(doc.Lines)
	stamped.SubmittedBy = by
	stamped.SubmittedAt = &at

	if err := lc.Store.TransitionInventory(ctx, &stamped, InventoryEnCours); err != nil {
		return nil, err
	}
	return &stamped, nil
}

// ValidateInventory resolves a submitted count: approved moves it to valide
// (terminal); rejected sends it back to en_cours with a mandatory reason.
// Rejection is the only non-monotonic transition in the system.
func (lc *Lifecycle) ValidateInventory(ctx context.Context, id DocumentID, by UserID, at time.Time, approved bool, reason string) (*Inventory, error) {
	doc, err := lc.Store.GetInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != InventoryEnAttenteValidation {
		return nil, &StateError{Document: id, From: string(doc.Status), To: string(InventoryValide)}
	}

	stamped := *doc
	if approved {
		stamped.Status = InventoryValide
		stamped.ValidatedBy = by
		stamped.ValidatedAt = &at
	} else {
		if reason == "" {
			return nil, &StateError{
				Document: id,
				From:     string(InventoryEnAttenteValidation),
				To:       string(InventoryEnCours),
				Reason:   "rejection requires a reason",
			}
		}
		stamped.Status = InventoryEnCours
		stamped.RejectionReason = reason
	}

	if err := lc.Store.TransitionInventory(ctx, &stamped, InventoryEnAttenteValidation); err != nil {
		return nil, err
	}
	return &stamped, nil
}
