/*
Package billing provides the billing and commission calculation engine for
a health-insurance (prepaga) sales operation.

PURPOSE:
  This package contains the business rules that turn completed sale records
  into money: which billing month a sale belongs to, what the company is
  owed for it, whether the value is official yet, what recurring revenue
  the client portfolio projects, and what each seller earns in commission.

KEY CONCEPTS IN THIS FILE (types.go):
  - SaleRecord: One completed sale, produced by the upstream sales pipeline
  - Billing fields: The four mutable fields this engine owns (approved,
    period, price override, portfolio override)
  - ManualPortfolioClient: A portfolio contributor with no SaleRecord
  - Record/Seller IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for every amount and rate
  2. Availability over validation: missing numerics compute as zero,
     never as an error - operator data is frequently incomplete
  3. Frozen values: a set price override is authoritative forever;
     the formulas never run again for that record
  4. Config as data: every rate lives in RuleConfiguration/CommissionRules
     (rules.go), never in code

USAGE:
  cfg := billing.DefaultRuleConfiguration()
  v := billing.ComputeValue(record, cfg)
  fmt.Println(v.Value, v.FormulaLabel)

SEE ALSO:
  - period.go: Billing month resolution and deferral
  - valuation.go: Net liquidation value formulas
  - approval.go: Pending/approved workflow and period locks
  - commission.go: Per-seller tiered commissions
*/
package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RecordID string
type SellerID string

// RecordType distinguishes a new client acquisition from a transfer-in.
type RecordType string

const (
	// RecordAlta is a new client acquisition.
	RecordAlta RecordType = "alta"

	// RecordPass is a client transferred in from another insurer.
	// A pass carries no commission basis: its liquidation value is zero.
	RecordPass RecordType = "pass"
)

// =============================================================================
// SALE RECORD - One completed sale from the upstream pipeline
// =============================================================================

// SaleRecord is a completed sale. The identity fields are populated by the
// sales pipeline and are read-only here; this engine only ever mutates the
// four billing fields at the bottom.
type SaleRecord struct {
	ID        RecordID
	Client    string
	EntryDate time.Time
	Seller    SellerID

	// Condition is the client's employment condition as entered by the
	// operator (e.g. "Relación de dependencia", "Monotributista").
	// It selects the aportes-based formula branch for some insurers.
	Condition string

	Insurer    string
	Plan       string
	GrossPrice decimal.Decimal
	Aportes    decimal.Decimal // employer-withheld contribution
	Discount   decimal.Decimal
	Type       RecordType

	// Billing fields. Persisted, mutable only through this engine.

	// Approved marks the record as official for aggregation.
	Approved bool

	// Period, when set, overrides the entry-date-derived billing month.
	Period *Month

	// PriceOverride freezes the liquidation value: once set, the formula
	// branches never run again for this record.
	PriceOverride *decimal.Decimal

	// PortfolioOverride replaces the derived portfolio value.
	PortfolioOverride *decimal.Decimal
}

// IsEmployed reports whether the client is in an employment relationship
// ("relación de dependencia"). Matching is deliberately loose: the field is
// operator-entered free text.
func (r SaleRecord) IsEmployed() bool {
	c := normalize(r.Condition)
	return strings.Contains(c, "dependencia") || strings.Contains(c, "employed")
}

// =============================================================================
// MANUAL PORTFOLIO CLIENT - Portfolio contributor without a SaleRecord
// =============================================================================

// ManualPortfolioClient is an ongoing client relationship entered directly
// by an operator. It contributes to portfolio projection with a precomputed
// liquidation value and supports no per-record overrides.
type ManualPortfolioClient struct {
	ID               string
	Name             string
	Insurer          string
	Plan             string
	GrossPrice       decimal.Decimal
	Discount         decimal.Decimal
	LiquidationValue decimal.Decimal
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// normalize lowercases and strips the accents that show up in operator
// input, so "Prevención" and "prevencion" match the same family.
func normalize(s string) string {
	s = strings.ToLower(s)
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
	)
	return replacer.Replace(s)
}

// roundUnit rounds to the nearest whole currency unit. All computed
// liquidation and portfolio values are whole units.
func roundUnit(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}
