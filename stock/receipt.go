/*
receipt.go - Structural and arithmetic validation of goods receipts

PURPOSE:
  Cross-line checks for a Receipt: required references, per-line field
  validation, exact subtotal arithmetic, duplicate product detection, and
  the document total. Built on the field validators in validate.go.

ARITHMETIC CONTRACT:
  Subtotals and the document total must match EXACTLY. Quantities and costs
  are decimal.Decimal, so equality is well-defined; there is no epsilon.
  A document that is off by a centime is a broken document.

DRAFT vs FINAL:
  A draft receipt may have zero lines (the user is still filling the form).
  Validation before the draft -> validated transition requires lines.

SEE ALSO:
  - lifecycle.go: Calls ValidateBonReception as the validation guard
  - valuation.go: CUMP recomputation for validated receipt lines
*/
package stock

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateBonReception runs structural and arithmetic checks on a receipt.
// With requireLines false (draft), an empty line list is permitted; every
// other check still applies. Pure: never mutates doc.
func ValidateBonReception(doc *Receipt, requireLines bool) ValidationResult {
	var errs []ValidationError

	if doc.SupplierID == "" {
		errs = append(errs, ValidationError{
			Field:   "supplierId",
			Kind:    KindMissingSupplier,
			Message: "receipt must reference a supplier",
		})
	}
	if doc.StoreID == "" {
		errs = append(errs, ValidationError{
			Field:   "storeId",
			Kind:    KindMissingStore,
			Message: "receipt must reference a store",
		})
	}

	if len(doc.Lines) == 0 {
		if requireLines {
			errs = append(errs, ValidationError{
				Field:   "lines",
				Kind:    KindEmptyLines,
				Message: "receipt must have at least one line",
			})
		}
		return newResult(errs)
	}

	seen := make(map[ProductID]int, len(doc.Lines))
	total := decimal.Zero

	for i, line := range doc.Lines {
		for _, fe := range ValidateQuantity(line.Quantity.InexactFloat64()) {
			errs = append(errs, lineError(fe.Field, fe.Kind, fe.Message, i))
		}
		for _, fe := range ValidateUnitCost(line.UnitCost.InexactFloat64()) {
			errs = append(errs, lineError(fe.Field, fe.Kind, fe.Message, i))
		}

		expected := line.Quantity.Mul(line.UnitCost)
		if !line.Subtotal.Equal(expected) {
			errs = append(errs, lineError("subtotal", KindCalculationError,
				fmt.Sprintf("subtotal %s does not equal quantity * unit cost (%s)", line.Subtotal, expected), i))
		}

		// Every line after the first occurrence of a product is flagged,
		// each with its own index, so the UI can mark all duplicate rows.
		if _, dup := seen[line.ProductID]; dup {
			errs = append(errs, lineError("productId", KindDuplicateProduct,
				fmt.Sprintf("product %s appears on more than one line", line.ProductID), i))
		} else {
			seen[line.ProductID] = i
		}

		total = total.Add(line.Subtotal)
	}

	if !doc.TotalValue.Equal(total) {
		errs = append(errs, ValidationError{
			Field:   "totalValue",
			Kind:    KindTotalMismatch,
			Message: fmt.Sprintf("total value %s does not equal sum of subtotals (%s)", doc.TotalValue, total),
		})
	}

	return newResult(errs)
}

// ValidateBonReceptionDraft validates a receipt still being edited:
// identical to ValidateBonReception but zero lines is acceptable.
func ValidateBonReceptionDraft(doc *Receipt) ValidationResult {
	return ValidateBonReception(doc, false)
}
