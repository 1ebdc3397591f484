// Package store provides Repository implementations.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements stock.Repository with maps behind a mutex. Status
// transitions are compare-and-set under the same lock, which gives the
// single-writer-per-document guarantee the lifecycle controller needs.
type Memory struct {
	mu          sync.RWMutex
	receipts    map[stock.DocumentID]*stock.Receipt
	transfers   map[stock.DocumentID]*stock.Transfer
	inventories map[stock.DocumentID]*stock.Inventory
	levels      map[levelKey]stock.StockLevel
	sequences   map[seqKey]int
}

type levelKey struct {
	Store   stock.StoreID
	Product stock.ProductID
}

type seqKey struct {
	Prefix string
	Year   int
}

func NewMemory() *Memory {
	return &Memory{
		receipts:    make(map[stock.DocumentID]*stock.Receipt),
		transfers:   make(map[stock.DocumentID]*stock.Transfer),
		inventories: make(map[stock.DocumentID]*stock.Inventory),
		levels:      make(map[levelKey]stock.StockLevel),
		sequences:   make(map[seqKey]int),
	}
}

// =============================================================================
// RECEIPTS
// =============================================================================

func (m *Memory) SaveReceipt(_ context.Context, doc *stock.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[doc.ID] = cloneReceipt(doc)
	return nil
}

func (m *Memory) GetReceipt(_ context.Context, id stock.DocumentID) (*stock.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.receipts[id]
	if !ok {
		return nil, stock.ErrDocumentNotFound
	}
	return cloneReceipt(doc), nil
}

func (m *Memory) ListReceipts(_ context.Context) ([]*stock.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*stock.Receipt, 0, len(m.receipts))
	for _, doc := range m.receipts {
		out = append(out, cloneReceipt(doc))
	}
	return out, nil
}

func (m *Memory) TransitionReceipt(_ context.Context, doc *stock.Receipt, expected stock.ReceiptStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.receipts[doc.ID]
	if !ok {
		return stock.ErrDocumentNotFound
	}
	if current.Status != expected {
		return &stock.ConflictError{Document: doc.ID, Expected: string(expected), Actual: string(current.Status)}
	}
	m.receipts[doc.ID] = cloneReceipt(doc)
	return nil
}

func (m *Memory) DeleteReceipt(_ context.Context, id stock.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[id]; !ok {
		return stock.ErrDocumentNotFound
	}
	delete(m.receipts, id)
	return nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (m *Memory) SaveTransfer(_ context.Context, doc *stock.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[doc.ID] = cloneTransfer(doc)
	return nil
}

func (m *Memory) GetTransfer(_ context.Context, id stock.DocumentID) (*stock.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.transfers[id]
	if !ok {
		return nil, stock.ErrDocumentNotFound
	}
	return cloneTransfer(doc), nil
}

func (m *Memory) ListTransfers(_ context.Context) ([]*stock.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*stock.Transfer, 0, len(m.transfers))
	for _, doc := range m.transfers {
		out = append(out, cloneTransfer(doc))
	}
	return out, nil
}

func (m *Memory) TransitionTransfer(_ context.Context, doc *stock.Transfer, expected stock.TransferStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.transfers[doc.ID]
	if !ok {
		return stock.ErrDocumentNotFound
	}
	if current.Status != expected {
		return &stock.ConflictError{Document: doc.ID, Expected: string(expected), Actual: string(current.Status)}
	}
	m.transfers[doc.ID] = cloneTransfer(doc)
	return nil
}

// =============================================================================
// INVENTORIES
// =============================================================================

func (m *Memory) SaveInventory(_ context.Context, doc *stock.Inventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventories[doc.ID] = cloneInventory(doc)
	return nil
}

func (m *Memory) GetInventory(_ context.Context, id stock.DocumentID) (*stock.Inventory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.inventories[id]
	if !ok {
		return nil, stock.ErrDocumentNotFound
	}
	return cloneInventory(doc), nil
}

func (m *Memory) ListInventories(_ context.Context) ([]*stock.Inventory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*stock.Inventory, 0, len(m.inventories))
	for _, doc := range m.inventories {
		out = append(out, cloneInventory(doc))
	}
	return out, nil
}

func (m *Memory) TransitionInventory(_ context.Context, doc *stock.Inventory, expected stock.InventoryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.inventories[doc.ID]
	if !ok {
		return stock.ErrDocumentNotFound
	}
	if current.Status != expected {
		return &stock.ConflictError{Document: doc.ID, Expected: string(expected), Actual: string(current.Status)}
	}
	m.inventories[doc.ID] = cloneInventory(doc)
	return nil
}

// =============================================================================
// STOCK LEVELS
// =============================================================================

func (m *Memory) Levels(_ context.Context, store stock.StoreID) ([]stock.StockLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []stock.StockLevel
	for k, l := range m.levels {
		if k.Store == store {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) AllLevels(_ context.Context) ([]stock.StockLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]stock.StockLevel, 0, len(m.levels))
	for _, l := range m.levels {
		out = append(out, l)
	}
	return out, nil
}

func (m *Memory) UpsertLevel(_ context.Context, level stock.StockLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[levelKey{level.StoreID, level.ProductID}] = level
	return nil
}

func (m *Memory) AdjustLevel(_ context.Context, store stock.StoreID, product stock.ProductID, delta decimal.Decimal, averageCost *decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := levelKey{store, product}
	level, ok := m.levels[k]
	if !ok {
		level = stock.StockLevel{StoreID: store, ProductID: product}
	}
	level.Quantity = level.Quantity.Add(delta)
	if averageCost != nil {
		level.AverageCost = *averageCost
	}
	m.levels[k] = level
	return nil
}

// =============================================================================
// SEQUENCER
// =============================================================================

func (m *Memory) Next(_ context.Context, prefix string, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := seqKey{prefix, year}
	m.sequences[k]++
	return m.sequences[k], nil
}

// =============================================================================
// CLONING - Callers never share memory with the store
// =============================================================================

func cloneReceipt(doc *stock.Receipt) *stock.Receipt {
	out := *doc
	out.Lines = append([]stock.ReceiptLine(nil), doc.Lines...)
	return &out
}

func cloneTransfer(doc *stock.Transfer) *stock.Transfer {
	out := *doc
	out.Lines = make([]stock.TransferLine, len(doc.Lines))
	for i, l := range doc.Lines {
		if l.QuantityReceived != nil {
			q := *l.QuantityReceived
			l.QuantityReceived = &q
		}
		out.Lines[i] = l
	}
	return &out
}

func cloneInventory(doc *stock.Inventory) *stock.Inventory {
	out := *doc
	out.Lines = make([]stock.InventoryLine, len(doc.Lines))
	for i, l := range doc.Lines {
		if l.PhysicalQuantity != nil {
			q := *l.PhysicalQuantity
			l.PhysicalQuantity = &q
		}
		out.Lines[i] = l
	}
	return &out
}
