/*
valuation.go - Net liquidation value per sale

PURPOSE:
  Computes what the company is owed for one completed sale, using
  insurer-family formulas with a manual-override escape hatch.

PRIORITY ORDER:
  1. Price override set       -> the frozen value, untouched, forever
  2. Pass (transfer-in)       -> zero, there is no commission basis
  3. Insurer family match     -> family formula (Prevención, AMPF)
  4. Anything else            -> generic withholding formula, with an
                                 aportes base for employed DoctoRed clients

FAILURE POLICY:
  Missing numeric fields are zero, never an error. A record with no gross
  price values at 0 and stays visible; the operator fixes the data, not a
  stack trace. Provenance is always surfaced through FormulaLabel.

SEE ALSO:
  - rules.go: The rates consumed here
  - portfolio.go: Reuses PortfolioValue for projection
*/
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VALUATION RESULT
// =============================================================================

// Formula labels surfaced to the operator. LabelFrozen and LabelManual are
// contractual: the UI shows them to mark values the formulas did not produce.
const (
	LabelFrozen = "Manual (frozen)"
	LabelManual = "Manual"
)

// Valuation is the computed outcome for one sale record.
type Valuation struct {
	// Value is the net liquidation value, rounded to a whole unit
	// (unless frozen, in which case it is the override verbatim).
	Value decimal.Decimal

	// PortfolioValue is the recurring-revenue contribution.
	PortfolioValue decimal.Decimal

	// FormulaLabel names the formula branch that produced Value.
	FormulaLabel string
}

// =============================================================================
// VALUATION ENGINE
// =============================================================================

var one = decimal.NewFromInt(1)

// ComputeValue computes the net liquidation value and portfolio value of a
// sale record under the given configuration. It is a pure function: the
// same record and configuration always produce the same valuation.
func ComputeValue(r SaleRecord, cfg RuleConfiguration) Valuation {
	value, label := liquidationValue(r, cfg)

	portfolio := roundUnit(value.Mul(cfg.PortfolioRate))
	if r.PortfolioOverride != nil {
		portfolio = *r.PortfolioOverride
	}

	return Valuation{Value: value, PortfolioValue: portfolio, FormulaLabel: label}
}

func liquidationValue(r SaleRecord, cfg RuleConfiguration) (decimal.Decimal, string) {
	// Frozen contract: an override is authoritative, no formula runs.
	if r.PriceOverride != nil {
		return *r.PriceOverride, LabelFrozen
	}

	insurer := normalize(r.Insurer)

	// A pass carries no commission basis, regardless of which family the
	// insurer name would otherwise match. The pipeline marks transfers
	// both in the record type and in the insurer label, so honor either.
	if r.Type == RecordPass || strings.Contains(insurer, "pass") {
		return decimal.Zero, LabelManual
	}

	switch {
	case strings.Contains(insurer, "prevenci"):
		// (gross − discount) × rate. The plan rate table exists in
		// configuration, but the formula applies the default rate no
		// matter which pattern matched; the match only labels.
		base := r.GrossPrice.Sub(r.Discount)
		label := "Prevención × " + cfg.PrevencionDefaultRate.String()
		if plan := cfg.MatchPrevencionPlan(r.Plan); plan != "" {
			label = "Prevención " + plan + " × " + cfg.PrevencionDefaultRate.String()
		}
		return roundUnit(base.Mul(cfg.PrevencionDefaultRate)), label

	case strings.Contains(insurer, "ampf"):
		return roundUnit(r.GrossPrice.Mul(cfg.AMPFMultiplier)),
			"AMPF × " + cfg.AMPFMultiplier.String()

	default:
		// Generic branch: DoctoRed and every unmatched insurer.
		base := r.GrossPrice
		label := "General"
		if strings.Contains(insurer, "doctored") {
			label = "DoctoRed"
			if r.IsEmployed() {
				// Employed DoctoRed clients liquidate on their
				// employer-withheld contributions, not the list price.
				base = r.Aportes
				label = "DoctoRed (aportes)"
			}
		}
		net := base.Mul(one.Sub(cfg.TaxRate)).Mul(cfg.DoctoRedMultiplier)
		return roundUnit(net), label + " × " + cfg.DoctoRedMultiplier.String()
	}
}
