/*
portfolio.go - Recurring portfolio revenue projection

PURPOSE:
  Estimates the recurring revenue attributed to ongoing client
  relationships: a fixed fraction of each liquidation value.

SOURCES:
  Automatic: approved sale records, Prevención family only - that is the
  only insurer whose contract produces a recurring stream for the company.
  Manual:    operator-entered portfolio clients with a precomputed
  liquidation value (no per-record override; the derivation is read-only).

SEE ALSO:
  - valuation.go: PortfolioValue per record (honors portfolio overrides)
*/
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PORTFOLIO PROJECTION ENGINE
// =============================================================================

// PortfolioProjection is the recurring-revenue estimate for one period.
type PortfolioProjection struct {
	Automatic decimal.Decimal
	Manual    decimal.Decimal
	Total     decimal.Decimal
}

// ProjectPortfolio sums portfolio values over approved family-A records
// and all manual clients. Pure function of its inputs.
func ProjectPortfolio(approved []SaleRecord, manual []ManualPortfolioClient, cfg RuleConfiguration) PortfolioProjection {
	automatic := decimal.Zero
	for _, r := range approved {
		if !r.Approved {
			continue
		}
		if !strings.Contains(normalize(r.Insurer), "prevenci") {
			continue
		}
		automatic = automatic.Add(ComputeValue(r, cfg).PortfolioValue)
	}

	manualTotal := decimal.Zero
	for _, c := range manual {
		manualTotal = manualTotal.Add(roundUnit(c.LiquidationValue.Mul(cfg.PortfolioRate)))
	}

	return PortfolioProjection{
		Automatic: automatic,
		Manual:    manualTotal,
		Total:     automatic.Add(manualTotal),
	}
}
