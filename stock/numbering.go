/*
numbering.go - Document number generation

PURPOSE:
  Produces the document numbers external systems parse:
    BR-YYYY-NNNN   receipts
    TR-YYYY-NNNN   transfers
    INV-YYYY-NNNN  inventories
  NNNN is a 4-digit zero-padded sequence that implicitly resets each year
  (the Sequencer keys sequences by prefix AND year). Four digits is a
  minimum width, not a cap: past 9999 the sequence widens to five digits
  (BR-2025-10001) rather than wrapping or truncating, so parsers must
  treat the final segment as variable-length.
*/
package stock

import (
	"context"
	"fmt"
	"time"
)

// Document number prefixes. The format is a compatibility contract.
const (
	PrefixReceipt   = "BR"
	PrefixTransfer  = "TR"
	PrefixInventory = "INV"
)

// FormatDocumentNumber renders a document number for a prefix, year, and
// sequence value. The sequence is zero-padded to 4 digits as a minimum
// width; values past 9999 render with more digits, never truncated.
func FormatDocumentNumber(prefix string, year int, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

// NextDocumentNumber reserves the next sequence value for the prefix in the
// year of `at` and returns the formatted number.
func NextDocumentNumber(ctx context.Context, seq Sequencer, prefix string, at time.Time) (string, error) {
	year := at.Year()
	n, err := seq.Next(ctx, prefix, year)
	if err != nil {
		return "", fmt.Errorf("failed to reserve %s sequence for %d: %w", prefix, year, err)
	}
	return FormatDocumentNumber(prefix, year, n), nil
}
