/*
validate.go - Field and supplier validators, ValidationResult

PURPOSE:
  Pure, side-effect-free checks on scalars and supplier records. These are
  the leaves the document validators (receipt.go, transfer.go) build on.

CONTRACT:
  Validators never panic and never return Go errors. Every finding is a
  ValidationError carrying the field it concerns, a stable machine-readable
  kind, a human message, and (for document validators) the line index, so
  the result can be surfaced to an end user unchanged.

FIELD VALIDATORS:
  ValidateQuantity / ValidateUnitCost take raw float64 input from forms or
  JSON, where NaN and infinities can occur. Document lines hold
  decimal.Decimal, which is always finite, so the INVALID_* kinds can only
  arise at the input boundary.

SEE ALSO:
  - receipt.go: ValidateBonReception builds on these
  - transfer.go: ValidateTransfert
*/
package stock

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationError is one finding against a document or field.
type ValidationError struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    *int   `json:"line,omitempty"` // 0-based line index, when applicable
}

// ValidationResult is the outcome of a validator. Errors keep the order in
// which checks ran, so the first error is the most fundamental one.
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  []ValidationError `json:"errors"`
}

func newResult(errs []ValidationError) ValidationResult {
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Validation error kinds. Stable identifiers: external systems match on them.
const (
	KindZeroQuantity      = "ZERO_QUANTITY"
	KindNegativeQuantity  = "NEGATIVE_QUANTITY"
	KindInvalidQuantity   = "INVALID_QUANTITY"
	KindZeroCost          = "ZERO_COST"
	KindNegativeCost      = "NEGATIVE_COST"
	KindInvalidCost       = "INVALID_COST"
	KindMissingSupplier   = "MISSING_SUPPLIER"
	KindInvalidEmail      = "INVALID_EMAIL"
	KindMissingStore      = "MISSING_STORE"
	KindEmptyLines        = "EMPTY_LINES"
	KindCalculationError  = "CALCULATION_ERROR"
	KindDuplicateProduct  = "DUPLICATE_PRODUCT"
	KindTotalMismatch     = "TOTAL_MISMATCH"
	KindSameSourceDest    = "SAME_SOURCE_DESTINATION"
	KindMissingLines      = "MISSING_LINES"
	KindInsufficientStock = "INSUFFICIENT_STOCK"
)

// =============================================================================
// FIELD VALIDATORS
// =============================================================================

// ValidateQuantity checks a raw quantity. Empty result iff q is finite and > 0.
func ValidateQuantity(q float64) []ValidationError {
	switch {
	case math.IsNaN(q) || math.IsInf(q, 0):
		return []ValidationError{{Field: "quantity", Kind: KindInvalidQuantity, Message: "quantity is not a finite number"}}
	case q == 0:
		return []ValidationError{{Field: "quantity", Kind: KindZeroQuantity, Message: "quantity must be greater than zero"}}
	case q < 0:
		return []ValidationError{{Field: "quantity", Kind: KindNegativeQuantity, Message: "quantity cannot be negative"}}
	}
	return nil
}

// ValidateUnitCost checks a raw unit cost. Symmetric with ValidateQuantity.
func ValidateUnitCost(c float64) []ValidationError {
	switch {
	case math.IsNaN(c) || math.IsInf(c, 0):
		return []ValidationError{{Field: "unitCost", Kind: KindInvalidCost, Message: "unit cost is not a finite number"}}
	case c == 0:
		return []ValidationError{{Field: "unitCost", Kind: KindZeroCost, Message: "unit cost must be greater than zero"}}
	case c < 0:
		return []ValidationError{{Field: "unitCost", Kind: KindNegativeCost, Message: "unit cost cannot be negative"}}
	}
	return nil
}

// =============================================================================
// SUPPLIER VALIDATOR
// =============================================================================

// Intentionally permissive: one non-space run, @, domain with a dot.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateSupplier checks a partial supplier record. Name is required; email
// is optional but must look like an email when present.
func ValidateSupplier(s Supplier) ValidationResult {
	var errs []ValidationError

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Kind:    KindMissingSupplier,
			Message: "supplier name is required",
		})
	}

	if s.Email != "" && !emailShape.MatchString(s.Email) {
		errs = append(errs, ValidationError{
			Field:   "email",
			Kind:    KindInvalidEmail,
			Message: fmt.Sprintf("%q is not a valid email address", s.Email),
		})
	}

	return newResult(errs)
}

// lineError builds a ValidationError bound to a document line.
func lineError(field, kind, message string, line int) ValidationError {
	idx := line
	return ValidationError{Field: field, Kind: kind, Message: message, Line: &idx}
}
