/*
scheduler.go - Automated reconciliation scheduler

PURPOSE:
  Periodically sweeps validated inventory sessions, compares their physical
  counts against the live stock snapshot, and logs the inconsistencies and
  suggested actions. Proposals are advisory: nothing is written back to
  stock levels automatically.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only sessions in valide contribute counts (approved by a supervisor)
  - Skips sessions already swept in this process lifetime

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReconciliationScheduler(repo, rules)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunReconciliation endpoint (manual reconciliation)
  - stock/reconcile.go: Detection and action generation
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/stock-engine/stock"
)

// ReconciliationScheduler handles automated drift detection.
type ReconciliationScheduler struct {
	Repo          stock.Repository
	Rules         stock.BusinessRules
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	swept map[stock.DocumentID]bool
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(repo stock.Repository, rules stock.BusinessRules) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Repo:          repo,
		Rules:         rules,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
		swept:         make(map[stock.DocumentID]bool),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) sweep() {
	ctx := context.Background()

	inventories, err := rs.Repo.ListInventories(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing inventories: %v", err)
		return
	}

	var counts []stock.PhysicalCount
	sweptNow := 0
	for _, inv := range inventories {
		if inv.Status != stock.InventoryValide {
			continue
		}
		rs.mu.Lock()
		done := rs.swept[inv.ID]
		rs.mu.Unlock()
		if done {
			continue
		}

		for _, line := range inv.Lines {
			if line.PhysicalQuantity == nil {
				continue
			}
			counts = append(counts, stock.PhysicalCount{
				StoreID:   inv.Store,
				ProductID: line.ProductID,
				Quantity:  *line.PhysicalQuantity,
			})
		}

		rs.mu.Lock()
		rs.swept[inv.ID] = true
		rs.mu.Unlock()
		sweptNow++
	}

	if len(counts) == 0 {
		return
	}

	levels, err := rs.Repo.AllLevels(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error loading stock levels: %v", err)
		return
	}

	inconsistencies := stock.DetectInventoryInconsistencies(levels, counts, rs.Rules)
	actions := stock.GenerateReconciliationActions(inconsistencies)

	log.Printf("[Scheduler] Swept %d session(s): %d inconsistencies, %d actions proposed",
		sweptNow, len(inconsistencies), len(actions))
	for _, inc := range inconsistencies {
		log.Printf("[Scheduler] %s/%s %s: theoretical=%s physical=%s variance=%s (%.1f%%)",
			inc.StoreID, inc.ProductID, inc.Severity,
			inc.Theoretical, inc.Physical, inc.Variance,
			inc.VariancePercent.InexactFloat64())
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (rs *ReconciliationScheduler) RunNow() {
	rs.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (rs *ReconciliationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
