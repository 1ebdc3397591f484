/*
errors.go - Centralized error types for the stock engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (API layer, posting systems) wrap these with transport context.

ERROR CATEGORIES:
  1. State errors    - Illegal lifecycle transitions (never auto-retried)
  2. Conflict errors - Concurrent transition collisions (reload and retry)
  3. Store errors    - Missing documents, persistence failures

  Validation problems are NOT Go errors: validators return a structured
  ValidationResult (see validate.go) so every finding carries a field
  reference and line index for direct surfacing to the user. Risk factors
  are advisory and never block execution.

USAGE:
  if errors.Is(err, stock.ErrConflict) {
      // reload the document and retry the transition
  }

SEE ALSO:
  - lifecycle.go: Raises StateError/ConflictError on guarded transitions
  - validate.go: ValidationResult and error kinds
*/
package stock

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIllegalTransition is returned when a document cannot move from its
	// current status to the requested one.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrConflict is returned when a compare-and-set transition finds the
	// document in a different status than expected. Caller must reload.
	ErrConflict = errors.New("concurrent transition detected")

	// ErrDocumentNotFound is returned when a referenced document doesn't exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrIncompleteInventory is returned when submitting an inventory with
	// uncounted lines.
	ErrIncompleteInventory = errors.New("inventory has uncounted lines")

	// ErrCommentRequired is returned when receiving a transfer with variance
	// but no reception comment.
	ErrCommentRequired = errors.New("reception comment required on variance")

	// ErrInvalidDocument is returned when a lifecycle guard fails structural
	// validation. The wrapped StateError carries the ValidationResult.
	ErrInvalidDocument = errors.New("document failed validation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StateError reports an illegal lifecycle transition. Fatal to the attempted
// operation; never auto-retried.
type StateError struct {
	Document DocumentID
	From     string
	To       string
	Reason   string

	// Validation holds the structural findings when the transition guard
	// rejected the document contents rather than the transition itself.
	Validation *ValidationResult
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition %s from %q to %q: %s", e.Document, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition %s from %q to %q", e.Document, e.From, e.To)
}

func (e *StateError) Unwrap() error {
	if e.Validation != nil {
		return ErrInvalidDocument
	}
	return ErrIllegalTransition
}

// ConflictError reports a lost compare-and-set race on a document status.
type ConflictError struct {
	Document DocumentID
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s: expected status %q, found %q", e.Document, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed after reloading.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrIncompleteInventory) ||
		errors.Is(err, ErrCommentRequired) ||
		errors.Is(err, ErrIllegalTransition)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}
