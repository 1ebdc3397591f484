/*
Package factory provides JSON to Go business-rule conversion.

PURPOSE:
  Converts JSON rule definitions into stock.BusinessRules. This enables
  threshold configuration without code changes - operations staff can tune
  the rules file, and the factory produces the proper Go struct.

WHY JSON?
  - Non-developers can adjust thresholds
  - Easy integration with an admin UI
  - Version control for rule definitions

JSON SCHEMA:
  {
    "max_quantity_per_operation": 1000,
    "max_value_per_operation": 50000,
    "critical_stock_threshold": 10,
    "overstock_threshold": 5000,
    "max_cost_variance_percentage": 20,
    "inventory_tolerance_percentage": 5,
    "max_operations_per_hour": 30,
    "min_seconds_between_operations": 10,
    "business_hours": {"start": 8, "end": 20}
  }

KEY FEATURES:
  - Validates the structure and threshold sanity
  - Fills sensible defaults for omitted fields
  - Ships a default preset (DefaultRulesJSON)

USAGE:
  f := factory.NewRulesFactory()
  rules, err := f.ParseRules(jsonString)

SEE ALSO:
  - stock/types.go: BusinessRules definition
  - stock/risk.go: Where the thresholds are evaluated
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RulesJSON is the JSON representation of the business rules.
type RulesJSON struct {
	MaxQuantityPerOperation      float64    `json:"max_quantity_per_operation,omitempty"`
	MaxValuePerOperation         float64    `json:"max_value_per_operation,omitempty"`
	CriticalStockThreshold       float64    `json:"critical_stock_threshold,omitempty"`
	OverstockThreshold           float64    `json:"overstock_threshold,omitempty"`
	MaxCostVariancePercentage    float64    `json:"max_cost_variance_percentage,omitempty"`
	InventoryTolerancePercentage float64    `json:"inventory_tolerance_percentage,omitempty"`
	MaxOperationsPerHour         int        `json:"max_operations_per_hour,omitempty"`
	MinSecondsBetweenOperations  int        `json:"min_seconds_between_operations,omitempty"`
	BusinessHours                *HoursJSON `json:"business_hours,omitempty"`
}

// HoursJSON is the business-hours window, local hours, [Start, End).
type HoursJSON struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// =============================================================================
// FACTORY
// =============================================================================

type RulesFactory struct{}

func NewRulesFactory() *RulesFactory {
	return &RulesFactory{}
}

// ParseRules converts a JSON string into BusinessRules, applying defaults
// for omitted fields and rejecting nonsensical thresholds.
func (f *RulesFactory) ParseRules(jsonStr string) (stock.BusinessRules, error) {
	// Start from the defaults; the document overrides what it names.
	var cfg RulesJSON
	if err := json.Unmarshal([]byte(DefaultRulesJSON()), &cfg); err != nil {
		return stock.BusinessRules{}, fmt.Errorf("invalid default rules: %w", err)
	}
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return stock.BusinessRules{}, fmt.Errorf("invalid rules JSON: %w", err)
	}

	if err := f.validate(cfg); err != nil {
		return stock.BusinessRules{}, err
	}

	rules := stock.BusinessRules{
		MaxQuantityPerOperation:   decimal.NewFromFloat(cfg.MaxQuantityPerOperation),
		MaxValuePerOperation:      decimal.NewFromFloat(cfg.MaxValuePerOperation),
		CriticalStockThreshold:    decimal.NewFromFloat(cfg.CriticalStockThreshold),
		OverstockThreshold:        decimal.NewFromFloat(cfg.OverstockThreshold),
		MaxCostVariancePercent:    decimal.NewFromFloat(cfg.MaxCostVariancePercentage),
		InventoryTolerancePercent: decimal.NewFromFloat(cfg.InventoryTolerancePercentage),
		MaxOperationsPerHour:      cfg.MaxOperationsPerHour,
		MinTimeBetweenOperations:  time.Duration(cfg.MinSecondsBetweenOperations) * time.Second,
	}
	if cfg.BusinessHours != nil {
		rules.BusinessHoursStart = cfg.BusinessHours.Start
		rules.BusinessHoursEnd = cfg.BusinessHours.End
	}
	return rules, nil
}

func (f *RulesFactory) validate(cfg RulesJSON) error {
	if cfg.MaxQuantityPerOperation < 0 || cfg.MaxValuePerOperation < 0 {
		return fmt.Errorf("operation ceilings cannot be negative")
	}
	if cfg.MaxCostVariancePercentage < 0 || cfg.InventoryTolerancePercentage < 0 {
		return fmt.Errorf("tolerance percentages cannot be negative")
	}
	if cfg.MaxOperationsPerHour < 0 || cfg.MinSecondsBetweenOperations < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}
	if h := cfg.BusinessHours; h != nil {
		if h.Start < 0 || h.End > 24 || h.Start >= h.End {
			return fmt.Errorf("business hours window %d-%d is not a valid [start, end) range", h.Start, h.End)
		}
	}
	return nil
}

// DefaultRulesJSON returns the standard rule preset for a mid-size retail
// operation. Tune per deployment.
func DefaultRulesJSON() string {
	return `{
		"max_quantity_per_operation": 1000,
		"max_value_per_operation": 50000,
		"critical_stock_threshold": 10,
		"overstock_threshold": 5000,
		"max_cost_variance_percentage": 20,
		"inventory_tolerance_percentage": 5,
		"max_operations_per_hour": 30,
		"min_seconds_between_operations": 10,
		"business_hours": {"start": 8, "end": 20}
	}`
}
