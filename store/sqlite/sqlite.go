/*
Package sqlite provides a SQLite-backed implementation of the storage ports.

PURPOSE:
  Implements stock.Repository (documents, stock levels, sequences) using
  SQLite. In production, the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

KEY TABLES:
  receipts / transfers / inventories:  One row per document, lines as JSON
  stock_levels:                        Per-store, per-product snapshot
  sequences:                           Per-prefix, per-year document numbering

COMPARE-AND-SET:
  Status transitions use a conditional UPDATE:
    UPDATE receipts SET ... WHERE id = ? AND status = ?
  Zero rows affected means either the document is gone (ErrDocumentNotFound)
  or another writer won the race (ConflictError). This serializes concurrent
  transitions without table locks.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  readers don't block, one writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  lc := stock.NewLifecycle(store)

SEE ALSO:
  - stock/store.go: Port definitions and the CAS contract
  - stock/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/stock"
)

// Store implements stock.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		date TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		total_value TEXT NOT NULL,
		status TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL,
		validated_by TEXT,
		validated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_receipts_store ON receipts(store_id);
	CREATE INDEX IF NOT EXISTS idx_receipts_status ON receipts(status);

	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		date TEXT NOT NULL,
		source_store TEXT NOT NULL,
		dest_store TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		status TEXT NOT NULL,
		reception_comment TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		received_by TEXT,
		received_at TEXT,
		cancelled_by TEXT,
		cancelled_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_source ON transfers(source_store);
	CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status);

	CREATE TABLE IF NOT EXISTS inventories (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		date TEXT NOT NULL,
		store_id TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		status TEXT NOT NULL,
		total_variance TEXT NOT NULL DEFAULT '0',
		variance_value TEXT NOT NULL DEFAULT '0',
		rejection_reason TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		submitted_by TEXT,
		submitted_at TEXT,
		validated_by TEXT,
		validated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_inventories_store ON inventories(store_id);
	CREATE INDEX IF NOT EXISTS idx_inventories_status ON inventories(status);

	CREATE TABLE IF NOT EXISTS stock_levels (
		store_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		reserved TEXT NOT NULL DEFAULT '0',
		average_cost TEXT NOT NULL DEFAULT '0',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (store_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS sequences (
		prefix TEXT NOT NULL,
		year INTEGER NOT NULL,
		value INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (prefix, year)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECEIPTS
// =============================================================================

func (s *Store) SaveReceipt(ctx context.Context, doc *stock.Receipt) error {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode receipt lines: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO receipts
		(id, number, date, supplier_id, store_id, lines_json, total_value, status, created_by, created_at, validated_by, validated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(doc.ID), doc.Number, doc.Date.Format(time.RFC3339), string(doc.SupplierID), string(doc.StoreID),
		string(lines), doc.TotalValue.String(), string(doc.Status), string(doc.CreatedBy),
		doc.CreatedAt.Format(time.RFC3339), string(doc.ValidatedBy), formatTimePtr(doc.ValidatedAt))
	return err
}

func (s *Store) GetReceipt(ctx context.Context, id stock.DocumentID) (*stock.Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, date, supplier_id, store_id, lines_json, total_value, status, created_by, created_at, validated_by, validated_at
		FROM receipts WHERE id = ?`, string(id))
	return scanReceipt(row)
}

func (s *Store) ListReceipts(ctx context.Context) ([]*stock.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, date, supplier_id, store_id, lines_json, total_value, status, created_by, created_at, validated_by, validated_at
		FROM receipts ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stock.Receipt
	for rows.Next() {
		doc, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Store) TransitionReceipt(ctx context.Context, doc *stock.Receipt, expected stock.ReceiptStatus) error {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode receipt lines: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE receipts
		SET lines_json = ?, total_value = ?, status = ?, validated_by = ?, validated_at = ?
		WHERE id = ? AND status = ?`,
		string(lines), doc.TotalValue.String(), string(doc.Status), string(doc.ValidatedBy),
		formatTimePtr(doc.ValidatedAt), string(doc.ID), string(expected))
	if err != nil {
		return err
	}
	return s.casOutcome(ctx, res, "receipts", doc.ID, string(expected))
}

func (s *Store) DeleteReceipt(ctx context.Context, id stock.DocumentID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stock.ErrDocumentNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*stock.Receipt, error) {
	var doc stock.Receipt
	var id, supplierID, storeID, status, createdBy, validatedBy string
	var date, createdAt string
	var validatedAt sql.NullString
	var linesJSON, totalValue string

	err := row.Scan(&id, &doc.Number, &date, &supplierID, &storeID, &linesJSON, &totalValue,
		&status, &createdBy, &createdAt, &validatedBy, &validatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stock.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.ID = stock.DocumentID(id)
	doc.SupplierID = stock.SupplierID(supplierID)
	doc.StoreID = stock.StoreID(storeID)
	doc.Status = stock.ReceiptStatus(status)
	doc.CreatedBy = stock.UserID(createdBy)
	doc.ValidatedBy = stock.UserID(validatedBy)
	doc.Date = parseTime(date)
	doc.CreatedAt = parseTime(createdAt)
	doc.ValidatedAt = parseTimePtr(validatedAt)
	doc.TotalValue = parseDecimal(totalValue)
	if err := json.Unmarshal([]byte(linesJSON), &doc.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode receipt lines: %w", err)
	}
	return &doc, nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (s *Store) SaveTransfer(ctx context.Context, doc *stock.Transfer) error {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode transfer lines: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transfers
		(id, number, date, source_store, dest_store, lines_json, status, reception_comment, created_by, created_at, received_by, received_at, cancelled_by, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(doc.ID), doc.Number, doc.Date.Format(time.RFC3339), string(doc.SourceStore), string(doc.DestStore),
		string(lines), string(doc.Status), doc.ReceptionComment, string(doc.CreatedBy),
		doc.CreatedAt.Format(time.RFC3339), string(doc.ReceivedBy), formatTimePtr(doc.ReceivedAt),
		string(doc.CancelledBy), formatTimePtr(doc.CancelledAt))
	return err
}

func (s *Store) GetTransfer(ctx context.Context, id stock.DocumentID) (*stock.Transfer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, date, source_store, dest_store, lines_json, status, reception_comment, created_by, created_at, received_by, received_at, cancelled_by, cancelled_at
		FROM transfers WHERE id = ?`, string(id))
	return scanTransfer(row)
}

func (s *Store) ListTransfers(ctx context.Context) ([]*stock.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, date, source_store, dest_store, lines_json, status, reception_comment, created_by, created_at, received_by, received_at, cancelled_by, cancelled_at
		FROM transfers ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stock.Transfer
	for rows.Next() {
		doc, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Store) TransitionTransfer(ctx context.Context, doc *stock.Transfer, expected stock.TransferStatus) error {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode transfer lines: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE transfers
		SET lines_json = ?, status = ?, reception_comment = ?, received_by = ?, received_at = ?, cancelled_by = ?, cancelled_at = ?
		WHERE id = ? AND status = ?`,
		string(lines), string(doc.Status), doc.ReceptionComment, string(doc.ReceivedBy),
		formatTimePtr(doc.ReceivedAt), string(doc.CancelledBy), formatTimePtr(doc.CancelledAt),
		string(doc.ID), string(expected))
	if err != nil {
		return err
	}
	return s.casOutcome(ctx, res, "transfers", doc.ID, string(expected))
}

func scanTransfer(row rowScanner) (*stock.Transfer, error) {
	var doc stock.Transfer
	var id, source, dest, status, createdBy, receivedBy, cancelledBy string
	var date, createdAt string
	var receivedAt, cancelledAt, comment sql.NullString
	var linesJSON string

	err := row.Scan(&id, &doc.Number, &date, &source, &dest, &linesJSON, &status, &comment,
		&createdBy, &createdAt, &receivedBy, &receivedAt, &cancelledBy, &cancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stock.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.ID = stock.DocumentID(id)
	doc.SourceStore = stock.StoreID(source)
	doc.DestStore = stock.StoreID(dest)
	doc.Status = stock.TransferStatus(status)
	doc.ReceptionComment = comment.String
	doc.CreatedBy = stock.UserID(createdBy)
	doc.ReceivedBy = stock.UserID(receivedBy)
	doc.CancelledBy = stock.UserID(cancelledBy)
	doc.Date = parseTime(date)
	doc.CreatedAt = parseTime(createdAt)
	doc.ReceivedAt = parseTimePtr(receivedAt)
	doc.CancelledAt = parseTimePtr(cancelledAt)
	if err := json.Unmarshal([]byte(linesJSON), &doc.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode transfer lines: %w", err)
	}
	return &doc, nil
}

// =============================================================================
// INVENTORIES
// =============================================================================

func (s *Store) SaveInventory(ctx context.Context, doc *stock.Inventory) error {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode inventory lines: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO inventories
		(id, number, date, store_id, lines_json, status, total_variance, variance_value, rejection_reason, created_by, created_at, submitted_by, submitted_at, validated_by, validated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(doc.ID), doc.Number, doc.Date.Format(time.RFC3339), string(doc.Store),
		string(lines), string(doc.Status), doc.TotalVariance.String(), doc.VarianceValue.String(),
		doc.RejectionReason, string(doc.CreatedBy), doc.CreatedAt.Format(time.RFC3339),
		string(doc.SubmittedBy), formatTimePtr(doc.SubmittedAt), string(doc.ValidatedBy), formatTimePtr(doc.ValidatedAt))
	return err
}

func (s *Store) GetInventory(ctx context.Context, id stock.DocumentID) (*stock.Inventory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, date, store_id, lines_json, status, total_variance, variance_value, rejection_reason, created_by, created_at, submitted_by, submitted_at, validated_by, validated_at
		FROM inventories WHERE id = ?`, string(id))
	return scanInventory(row)
}

func (s *Store) ListInventories(ctx context.Context) ([]*stock.Inventory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, date, store_id, lines_json, status, total_variance, variance_value, rejection_reason, created_by, created_at, submitted_by, submitted_at, validated_by, validated_at
		FROM inventories ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stock.Inventory
	for rows.Next() {
		doc, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Store) TransitionInventory(ctx context.Context, doc *stock.Inventory, expected stock.InventoryStatus) error {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode inventory lines: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventories
		SET lines_json = ?, status = ?, total_variance = ?, variance_value = ?, rejection_reason = ?, submitted_by = ?, submitted_at = ?, validated_by = ?, validated_at = ?
		WHERE id = ? AND status = ?`,
		string(lines), string(doc.Status), doc.TotalVariance.String(), doc.VarianceValue.String(),
		doc.RejectionReason, string(doc.SubmittedBy), formatTimePtr(doc.SubmittedAt),
		string(doc.ValidatedBy), formatTimePtr(doc.ValidatedAt), string(doc.ID), string(expected))
	if err != nil {
		return err
	}
	return s.casOutcome(ctx, res, "inventories", doc.ID, string(expected))
}

func scanInventory(row rowScanner) (*stock.Inventory, error) {
	var doc stock.Inventory
	var id, storeID, status, createdBy, submittedBy, validatedBy string
	var date, createdAt string
	var submittedAt, validatedAt, rejection sql.NullString
	var linesJSON, totalVariance, varianceValue string

	err := row.Scan(&id, &doc.Number, &date, &storeID, &linesJSON, &status, &totalVariance, &varianceValue,
		&rejection, &createdBy, &createdAt, &submittedBy, &submittedAt, &validatedBy, &validatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stock.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.ID = stock.DocumentID(id)
	doc.Store = stock.StoreID(storeID)
	doc.Status = stock.InventoryStatus(status)
	doc.RejectionReason = rejection.String
	doc.CreatedBy = stock.UserID(createdBy)
	doc.SubmittedBy = stock.UserID(submittedBy)
	doc.ValidatedBy = stock.UserID(validatedBy)
	doc.Date = parseTime(date)
	doc.CreatedAt = parseTime(createdAt)
	doc.SubmittedAt = parseTimePtr(submittedAt)
	doc.ValidatedAt = parseTimePtr(validatedAt)
	doc.TotalVariance = parseDecimal(totalVariance)
	doc.VarianceValue = parseDecimal(varianceValue)
	if err := json.Unmarshal([]byte(linesJSON), &doc.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode inventory lines: %w", err)
	}
	return &doc, nil
}

// =============================================================================
// STOCK LEVELS
// =============================================================================

func (s *Store) Levels(ctx context.Context, store stock.StoreID) ([]stock.StockLevel, error) {
	return s.queryLevels(ctx, `
		SELECT store_id, product_id, quantity, reserved, average_cost, updated_at
		FROM stock_levels WHERE store_id = ?`, string(store))
}

func (s *Store) AllLevels(ctx context.Context) ([]stock.StockLevel, error) {
	return s.queryLevels(ctx, `
		SELECT store_id, product_id, quantity, reserved, average_cost, updated_at
		FROM stock_levels`)
}

func (s *Store) queryLevels(ctx context.Context, query string, args ...any) ([]stock.StockLevel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stock.StockLevel
	for rows.Next() {
		var storeID, productID, qty, reserved, avgCost, updatedAt string
		if err := rows.Scan(&storeID, &productID, &qty, &reserved, &avgCost, &updatedAt); err != nil {
			return nil, err
		}
		out = append(out, stock.StockLevel{
			StoreID:     stock.StoreID(storeID),
			ProductID:   stock.ProductID(productID),
			Quantity:    parseDecimal(qty),
			Reserved:    parseDecimal(reserved),
			AverageCost: parseDecimal(avgCost),
			UpdatedAt:   parseTime(updatedAt),
		})
	}
	return out, rows.Err()
}

func (s *Store) UpsertLevel(ctx context.Context, level stock.StockLevel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO stock_levels (store_id, product_id, quantity, reserved, average_cost, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(level.StoreID), string(level.ProductID), level.Quantity.String(),
		level.Reserved.String(), level.AverageCost.String(), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) AdjustLevel(ctx context.Context, store stock.StoreID, product stock.ProductID, delta decimal.Decimal, averageCost *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var qty, reserved, avgCost string
	err := s.db.QueryRowContext(ctx, `
		SELECT quantity, reserved, average_cost FROM stock_levels WHERE store_id = ? AND product_id = ?`,
		string(store), string(product)).Scan(&qty, &reserved, &avgCost)
	level := stock.StockLevel{StoreID: store, ProductID: product}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// new product at this store
	case err != nil:
		return err
	default:
		level.Quantity = parseDecimal(qty)
		level.Reserved = parseDecimal(reserved)
		level.AverageCost = parseDecimal(avgCost)
	}

	level.Quantity = level.Quantity.Add(delta)
	if averageCost != nil {
		level.AverageCost = *averageCost
	}
	return s.UpsertLevel(ctx, level)
}

// =============================================================================
// SEQUENCER
// =============================================================================

func (s *Store) Next(ctx context.Context, prefix string, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequences (prefix, year, value) VALUES (?, ?, 1)
		ON CONFLICT(prefix, year) DO UPDATE SET value = value + 1`,
		prefix, year)
	if err != nil {
		return 0, err
	}

	var value int
	err = s.db.QueryRowContext(ctx, `SELECT value FROM sequences WHERE prefix = ? AND year = ?`, prefix, year).Scan(&value)
	return value, err
}

// =============================================================================
// HELPERS
// =============================================================================

// casOutcome distinguishes a lost compare-and-set race from a missing row.
func (s *Store) casOutcome(ctx context.Context, res sql.Result, table string, id stock.DocumentID, expected string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var actual string
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT status FROM %s WHERE id = ?`, table), string(id)).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return stock.ErrDocumentNotFound
	}
	if err != nil {
		return err
	}
	return &stock.ConflictError{Document: id, Expected: expected, Actual: actual}
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
