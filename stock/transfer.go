/*
transfer.go - Validation of inter-location transfers

PURPOSE:
  Checks a transfer against the source store's stock snapshot: both stores
  present and distinct, non-empty lines, per-line field validation, and
  availability at the source.

AVAILABILITY:
  A line may request at most the AVAILABLE quantity at the source store
  (on-hand minus reserved). Requesting exactly the available quantity is
  valid; one unit more is INSUFFICIENT_STOCK. A product with no stock
  level at the source has zero available.

SEE ALSO:
  - types.go: StockLevel.Available
  - lifecycle.go: Transfer reception and cancellation
*/
package stock

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateTransfert checks a transfer against the given stock snapshot.
// stockLevels is the caller-provided snapshot for the source store; staleness
// is the caller's responsibility. Pure: never mutates inputs.
func ValidateTransfert(doc *Transfer, stockLevels []StockLevel) ValidationResult {
	var errs []ValidationError

	if doc.SourceStore == "" {
		errs = append(errs, ValidationError{
			Field:   "sourceStoreId",
			Kind:    KindMissingStore,
			Message: "transfer must reference a source store",
		})
	}
	if doc.DestStore == "" {
		errs = append(errs, ValidationError{
			Field:   "destinationStoreId",
			Kind:    KindMissingStore,
			Message: "transfer must reference a destination store",
		})
	}
	// Identical stores are invalid no matter what else the document says,
	// including the degenerate case where both are blank.
	if doc.SourceStore == doc.DestStore {
		errs = append(errs, ValidationError{
			Field:   "destinationStoreId",
			Kind:    KindSameSourceDest,
			Message: "source and destination stores must differ",
		})
	}

	if len(doc.Lines) == 0 {
		errs = append(errs, ValidationError{
			Field:   "lines",
			Kind:    KindMissingLines,
			Message: "transfer must have at least one line",
		})
		return newResult(errs)
	}

	available := make(map[ProductID]decimal.Decimal, len(stockLevels))
	for _, sl := range stockLevels {
		if sl.StoreID == doc.SourceStore {
			available[sl.ProductID] = sl.Available()
		}
	}

	for i, line := range doc.Lines {
		for _, fe := range ValidateQuantity(line.QuantitySent.InexactFloat64()) {
			errs = append(errs, lineError(fe.Field, fe.Kind, fe.Message, i))
		}

		avail := available[line.ProductID] // zero when absent from snapshot
		if line.QuantitySent.GreaterThan(avail) {
			errs = append(errs, lineError("quantitySent", KindInsufficientStock,
				fmt.Sprintf("requested %s of product %s, only %s available at source",
					line.QuantitySent, line.ProductID, avail), i))
		}
	}

	return newResult(errs)
}
