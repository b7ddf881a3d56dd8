/*
commission.go - Per-seller tiered commission computation

PURPOSE:
  Computes what each seller earns on the period's approved sales.

MODEL:
  Special plans pay a flat rate on every sale, outside the tier system.
  Everything else is "variable": the seller's earliest sales up to the
  absorbable quota earn nothing (the unpaid base a seller is expected to
  produce), and the excess pays a percentage selected by TOTAL variable
  volume - not by the payable count. Two different counts index the
  computation: the full volume picks the bracket, the excess subset is
  the monetary base. Collapsing them changes payouts materially.

EXAMPLE (5-hour shift, quota 8, tier 9-14 -> 15%):
  8 sales:  all absorbed, variable commission 0
  9 sales:  volume 9 selects 15%, applied to sale #9 only

SEE ALSO:
  - rules.go: CommissionRules, ShiftSchedule, Tier
  - valuation.go: The per-record values being aggregated
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMMISSION RESULT
// =============================================================================

// SellerCommission is one seller's commission breakdown for a period.
type SellerCommission struct {
	Seller     SellerID
	ShiftHours int

	SpecialCount      int
	SpecialCommission decimal.Decimal

	VariableCount  int
	PayableCount   int
	TierPercentage decimal.Decimal // zero when no tier matched

	VariableCommission decimal.Decimal
	Total              decimal.Decimal
}

// =============================================================================
// COMMISSION ENGINE
// =============================================================================

// ComputeCommissions computes per-seller commissions over the period's
// approved records, one entry per seller with at least one approved record,
// ranked by total descending. Pure function of its inputs.
func ComputeCommissions(approved []SaleRecord, shifts map[SellerID]int, rules CommissionRules, cfg RuleConfiguration) []SellerCommission {
	bySeller := make(map[SellerID][]SaleRecord)
	for _, r := range approved {
		if !r.Approved {
			continue
		}
		bySeller[r.Seller] = append(bySeller[r.Seller], r)
	}

	out := make([]SellerCommission, 0, len(bySeller))
	for seller, records := range bySeller {
		hours, ok := shifts[seller]
		if !ok {
			hours = rules.DefaultShiftHours
		}
		out = append(out, computeSeller(seller, hours, records, rules, cfg))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Seller < out[j].Seller
	})
	return out
}

func computeSeller(seller SellerID, hours int, records []SaleRecord, rules CommissionRules, cfg RuleConfiguration) SellerCommission {
	c := SellerCommission{
		Seller:             seller,
		ShiftHours:         hours,
		SpecialCommission:  decimal.Zero,
		VariableCommission: decimal.Zero,
	}

	var variable []SaleRecord
	for _, r := range records {
		if rules.IsSpecialPlan(r.Plan) {
			c.SpecialCount++
			value := ComputeValue(r, cfg).Value
			c.SpecialCommission = c.SpecialCommission.Add(value.Mul(rules.SpecialRate))
			continue
		}
		variable = append(variable, r)
	}

	// First-in, first-absorbed: the earliest sales fill the quota.
	sort.SliceStable(variable, func(i, j int) bool {
		if !variable[i].EntryDate.Equal(variable[j].EntryDate) {
			return variable[i].EntryDate.Before(variable[j].EntryDate)
		}
		return variable[i].ID < variable[j].ID
	})

	c.VariableCount = len(variable)
	schedule := rules.ScheduleFor(hours)

	if len(variable) > schedule.Absorbable {
		payable := variable[schedule.Absorbable:]
		c.PayableCount = len(payable)

		// The tier bracket is selected by the TOTAL variable volume;
		// the percentage applies only to the payable excess.
		if tier, ok := schedule.SelectTier(c.VariableCount); ok {
			c.TierPercentage = tier.Percentage
			base := decimal.Zero
			for _, r := range payable {
				base = base.Add(ComputeValue(r, cfg).Value)
			}
			c.VariableCommission = base.Mul(tier.Percentage)
		}
	}

	c.SpecialCommission = c.SpecialCommission.Round(2)
	c.VariableCommission = c.VariableCommission.Round(2)
	c.Total = c.SpecialCommission.Add(c.VariableCommission)
	return c
}
