/*
rules.go - Rule configuration for valuation and commissions

PURPOSE:
  All rates, multipliers and tier schedules used by the engine, modeled as
  plain data loaded at calculation time. Administrators edit these through
  a separate path; a rule change retroactively changes the computed value
  of every un-frozen record. No versioning or history is kept.

DEFAULTS:
  Every field has a hardcoded default so calculation is always possible
  before an administrator has saved configuration once. Defaults mirror
  the rates the operation ran on when the engine was written.

SEE ALSO:
  - valuation.go: Consumes RuleConfiguration
  - commission.go: Consumes CommissionRules
  - factory/rules.go: JSON <-> struct conversion with defaulting
*/
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULE CONFIGURATION - Valuation rates (singleton, versionless)
// =============================================================================

// RuleConfiguration holds every rate the Valuation Engine uses.
type RuleConfiguration struct {
	// TaxRate is the VAT-style withholding applied only in the generic
	// (DoctoRed-and-unmatched) branch: base = gross × (1 − TaxRate).
	TaxRate decimal.Decimal

	// PrevencionRates maps plan-name patterns to rates (the 90%–150%
	// family). The current formula applies PrevencionDefaultRate no
	// matter which pattern matched; the table is kept as configuration
	// so the matched plan can label the formula and so a future rule
	// change does not need a redeploy.
	PrevencionRates map[string]decimal.Decimal

	// PrevencionDefaultRate multiplies (gross − discount) for the
	// Prevención family.
	PrevencionDefaultRate decimal.Decimal

	// AMPFMultiplier multiplies the gross price for the AMPF family.
	AMPFMultiplier decimal.Decimal

	// DoctoRedMultiplier is the flat adjustment applied after withholding
	// in the generic branch.
	DoctoRedMultiplier decimal.Decimal

	// PortfolioRate is the fraction of net value projected as recurring
	// portfolio revenue.
	PortfolioRate decimal.Decimal
}

// DefaultRuleConfiguration returns the built-in rates used whenever no
// configuration has been saved yet.
func DefaultRuleConfiguration() RuleConfiguration {
	return RuleConfiguration{
		TaxRate: decimal.NewFromFloat(0.10),
		PrevencionRates: map[string]decimal.Decimal{
			"a1": decimal.NewFromFloat(0.90),
			"a2": decimal.NewFromFloat(1.05),
			"a3": decimal.NewFromFloat(1.20),
			"a4": decimal.NewFromFloat(1.35),
			"a5": decimal.NewFromFloat(1.50),
		},
		PrevencionDefaultRate: decimal.NewFromFloat(1.30),
		AMPFMultiplier:        decimal.NewFromFloat(2.0),
		DoctoRedMultiplier:    decimal.NewFromFloat(1.80),
		PortfolioRate:         decimal.NewFromFloat(0.05),
	}
}

// MatchPrevencionPlan returns the rate-table pattern the plan name matches,
// or "" when none does. Only used for labeling; see PrevencionRates.
func (c RuleConfiguration) MatchPrevencionPlan(plan string) string {
	p := normalize(plan)
	for pattern := range c.PrevencionRates {
		if pattern != "" && strings.Contains(p, normalize(pattern)) {
			return pattern
		}
	}
	return ""
}

// =============================================================================
// COMMISSION RULES - Per-shift-length schedules (singleton, versionless)
// =============================================================================

// Tier is a volume bracket: when a seller's total variable sales count for
// the period falls in [Min, Max], Percentage applies to the payable subset.
type Tier struct {
	Min        int
	Max        int
	Percentage decimal.Decimal
}

// Contains reports whether the volume count falls inside the bracket.
func (t Tier) Contains(n int) bool { return n >= t.Min && n <= t.Max }

// ShiftSchedule is the commission schedule for one shift length.
type ShiftSchedule struct {
	// Absorbable is the number of a seller's earliest variable sales
	// that earn no commission: the unpaid base the seller is expected
	// to produce before commission accrues.
	Absorbable int

	// Tiers is the ordered volume bracket list.
	Tiers []Tier
}

// SelectTier returns the tier containing the total variable volume, or
// false when the volume is below every bracket.
func (s ShiftSchedule) SelectTier(totalVariable int) (Tier, bool) {
	for _, t := range s.Tiers {
		if t.Contains(totalVariable) {
			return t, true
		}
	}
	return Tier{}, false
}

// CommissionRules holds the full commission ruleset.
type CommissionRules struct {
	// SpecialPlans lists plan names that pay a flat rate regardless of
	// volume tier. Matching is case-insensitive substring, like insurer
	// matching.
	SpecialPlans []string

	// SpecialRate is the flat rate for special plans.
	SpecialRate decimal.Decimal

	// DefaultShiftHours selects the schedule for sellers missing from
	// the shift mapping.
	DefaultShiftHours int

	// Schedules maps shift length in hours to its schedule.
	Schedules map[int]ShiftSchedule
}

// IsSpecialPlan reports whether the plan pays the flat special rate.
func (r CommissionRules) IsSpecialPlan(plan string) bool {
	p := normalize(plan)
	for _, s := range r.SpecialPlans {
		if s != "" && strings.Contains(p, normalize(s)) {
			return true
		}
	}
	return false
}

// ScheduleFor returns the schedule for a shift length, falling back to the
// default shift bucket for unknown lengths.
func (r CommissionRules) ScheduleFor(hours int) ShiftSchedule {
	if s, ok := r.Schedules[hours]; ok {
		return s
	}
	return r.Schedules[r.DefaultShiftHours]
}

// DefaultCommissionRules returns the built-in schedules used whenever no
// rules have been saved yet.
func DefaultCommissionRules() CommissionRules {
	return CommissionRules{
		SpecialPlans:      []string{"cerca"},
		SpecialRate:       decimal.NewFromFloat(0.10),
		DefaultShiftHours: 8,
		Schedules: map[int]ShiftSchedule{
			5: {
				Absorbable: 8,
				Tiers: []Tier{
					{Min: 9, Max: 14, Percentage: decimal.NewFromFloat(0.15)},
					{Min: 15, Max: 20, Percentage: decimal.NewFromFloat(0.20)},
					{Min: 21, Max: 999, Percentage: decimal.NewFromFloat(0.25)},
				},
			},
			8: {
				Absorbable: 12,
				Tiers: []Tier{
					{Min: 13, Max: 20, Percentage: decimal.NewFromFloat(0.15)},
					{Min: 21, Max: 28, Percentage: decimal.NewFromFloat(0.20)},
					{Min: 29, Max: 999, Percentage: decimal.NewFromFloat(0.25)},
				},
			},
		},
	}
}
