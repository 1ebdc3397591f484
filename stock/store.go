/*
store.go - Persistence ports for documents, stock levels, and sequences

PURPOSE:
  Defines the interface between the engine and storage. The engine owns no
  process-wide state: every document and stock level is read from and
  written through an injected repository. Implementations exist for memory
  (stock/store) and SQLite (store/sqlite).

COMPARE-AND-SET CONTRACT:
  Status transitions are serialized per document: Transition* persists the
  updated document ONLY IF the stored status still equals the expected one,
  and returns a ConflictError otherwise. The caller reloads and retries.
  This is the single-writer guarantee the lifecycle controller relies on.

SEE ALSO:
  - lifecycle.go: The only caller of Transition*
  - store/memory.go: In-memory implementation
  - store/sqlite (module root): SQLite implementation
*/
package stock

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// DocumentStore persists the three document kinds. Save* inserts or replaces
// a document in its current (non-terminal) state; Transition* is the guarded
// status change used by the lifecycle controller.
type DocumentStore interface {
	SaveReceipt(ctx context.Context, doc *Receipt) error
	GetReceipt(ctx context.Context, id DocumentID) (*Receipt, error)
	ListReceipts(ctx context.Context) ([]*Receipt, error)
	// TransitionReceipt persists doc iff the stored status equals expected.
	TransitionReceipt(ctx context.Context, doc *Receipt, expected ReceiptStatus) error
	// DeleteReceipt removes a receipt. The lifecycle controller guards this
	// to drafts only; validated receipts are immutable.
	DeleteReceipt(ctx context.Context, id DocumentID) error

	SaveTransfer(ctx context.Context, doc *Transfer) error
	GetTransfer(ctx context.Context, id DocumentID) (*Transfer, error)
	ListTransfers(ctx context.Context) ([]*Transfer, error)
	TransitionTransfer(ctx context.Context, doc *Transfer, expected TransferStatus) error

	SaveInventory(ctx context.Context, doc *Inventory) error
	GetInventory(ctx context.Context, id DocumentID) (*Inventory, error)
	ListInventories(ctx context.Context) ([]*Inventory, error)
	TransitionInventory(ctx context.Context, doc *Inventory, expected InventoryStatus) error
}

// =============================================================================
// STOCK LEVEL STORE
// =============================================================================

// StockLevelStore provides stock snapshots and accepts posted adjustments.
// The engine itself only READS levels; writes happen in the posting layer
// (API handlers) after a lifecycle transition succeeds.
type StockLevelStore interface {
	// Levels returns the snapshot for one store.
	Levels(ctx context.Context, store StoreID) ([]StockLevel, error)

	// AllLevels returns the full snapshot across stores.
	AllLevels(ctx context.Context) ([]StockLevel, error)

	// UpsertLevel creates or replaces one product's level at a store.
	UpsertLevel(ctx context.Context, level StockLevel) error

	// AdjustLevel applies a signed quantity delta and, when non-nil, a new
	// average cost. Creates the level if absent.
	AdjustLevel(ctx context.Context, store StoreID, product ProductID, delta decimal.Decimal, averageCost *decimal.Decimal) error
}

// =============================================================================
// SEQUENCER
// =============================================================================

// Sequencer hands out per-prefix, per-year document sequence numbers,
// starting at 1. Implementations must be safe for concurrent callers.
type Sequencer interface {
	Next(ctx context.Context, prefix string, year int) (int, error)
}

// Repository is the full persistence surface the API layer wires up.
type Repository interface {
	DocumentStore
	StockLevelStore
	Sequencer
}
