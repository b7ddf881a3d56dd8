/*
Package factory provides JSON to Go rule conversion.

PURPOSE:
  Converts JSON rule documents into billing.RuleConfiguration and
  billing.CommissionRules. This keeps rules as configuration, not code -
  an administrator edits a JSON document and every un-frozen record
  recomputes under the new rates, with no redeploy.

DEFAULTING:
  Every missing field falls back to the engine's built-in default, so an
  empty document ({}) parses into a fully working configuration. This is
  what makes calculation possible before configuration has ever been
  saved.

JSON SCHEMA (rule configuration):
  {
    "tax_rate": 0.10,
    "prevencion_rates": {"a1": 0.90, "a5": 1.50},
    "prevencion_default_rate": 1.30,
    "ampf_multiplier": 2.0,
    "doctored_multiplier": 1.80,
    "portfolio_rate": 0.05
  }

JSON SCHEMA (commission rules):
  {
    "special_plans": ["cerca"],
    "special_rate": 0.10,
    "default_shift_hours": 8,
    "schedules": {
      "5": {"absorbable": 8, "tiers": [{"min": 9, "max": 14, "percentage": 0.15}]}
    }
  }

USAGE:
  cfg, err := factory.ParseRuleConfiguration(jsonStr)
  doc, err := factory.MarshalRuleConfiguration(cfg)

SEE ALSO:
  - billing/rules.go: Target types and built-in defaults
  - store/sqlite: Persists these documents as singleton JSON rows
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/andesalud/billing-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleConfigurationJSON is the JSON representation of valuation rates.
// Pointer fields distinguish "absent, use default" from explicit zeros.
// Collection fields carry the same distinction through nil: an empty
// collection is a cleared choice and must round-trip as empty, so it is
// never omitted from the marshaled document.
type RuleConfigurationJSON struct {
	TaxRate               *float64           `json:"tax_rate,omitempty"`
	PrevencionRates       map[string]float64 `json:"prevencion_rates"`
	PrevencionDefaultRate *float64           `json:"prevencion_default_rate,omitempty"`
	AMPFMultiplier        *float64           `json:"ampf_multiplier,omitempty"`
	DoctoRedMultiplier    *float64           `json:"doctored_multiplier,omitempty"`
	PortfolioRate         *float64           `json:"portfolio_rate,omitempty"`
}

// CommissionRulesJSON is the JSON representation of commission schedules.
type CommissionRulesJSON struct {
	SpecialPlans      []string                `json:"special_plans"`
	SpecialRate       *float64                `json:"special_rate,omitempty"`
	DefaultShiftHours *int                    `json:"default_shift_hours,omitempty"`
	Schedules         map[string]ScheduleJSON `json:"schedules"`
}

// ScheduleJSON is one shift length's schedule.
type ScheduleJSON struct {
	Absorbable int        `json:"absorbable"`
	Tiers      []TierJSON `json:"tiers"`
}

// TierJSON is one volume bracket.
type TierJSON struct {
	Min        int     `json:"min"`
	Max        int     `json:"max"`
	Percentage float64 `json:"percentage"`
}

// =============================================================================
// RULE CONFIGURATION
// =============================================================================

// ParseRuleConfiguration converts a JSON document into a RuleConfiguration,
// defaulting every absent field. An empty string parses as all defaults.
func ParseRuleConfiguration(data string) (billing.RuleConfiguration, error) {
	cfg := billing.DefaultRuleConfiguration()
	if data == "" {
		return cfg, nil
	}

	var doc RuleConfigurationJSON
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return cfg, fmt.Errorf("invalid rule configuration: %w", err)
	}

	if doc.TaxRate != nil {
		cfg.TaxRate = decimal.NewFromFloat(*doc.TaxRate)
	}
	if doc.PrevencionRates != nil {
		rates := make(map[string]decimal.Decimal, len(doc.PrevencionRates))
		for plan, rate := range doc.PrevencionRates {
			rates[plan] = decimal.NewFromFloat(rate)
		}
		cfg.PrevencionRates = rates
	}
	if doc.PrevencionDefaultRate != nil {
		cfg.PrevencionDefaultRate = decimal.NewFromFloat(*doc.PrevencionDefaultRate)
	}
	if doc.AMPFMultiplier != nil {
		cfg.AMPFMultiplier = decimal.NewFromFloat(*doc.AMPFMultiplier)
	}
	if doc.DoctoRedMultiplier != nil {
		cfg.DoctoRedMultiplier = decimal.NewFromFloat(*doc.DoctoRedMultiplier)
	}
	if doc.PortfolioRate != nil {
		cfg.PortfolioRate = decimal.NewFromFloat(*doc.PortfolioRate)
	}
	return cfg, nil
}

// MarshalRuleConfiguration renders a configuration back to its JSON document.
func MarshalRuleConfiguration(cfg billing.RuleConfiguration) (string, error) {
	doc := RuleConfigurationJSON{
		TaxRate:               floatPtr(cfg.TaxRate),
		PrevencionDefaultRate: floatPtr(cfg.PrevencionDefaultRate),
		AMPFMultiplier:        floatPtr(cfg.AMPFMultiplier),
		DoctoRedMultiplier:    floatPtr(cfg.DoctoRedMultiplier),
		PortfolioRate:         floatPtr(cfg.PortfolioRate),
	}
	// Always emitted: an emptied rate table must not parse back as the
	// defaults (nil would marshal as null, which means "absent").
	doc.PrevencionRates = make(map[string]float64, len(cfg.PrevencionRates))
	for plan, rate := range cfg.PrevencionRates {
		f, _ := rate.Float64()
		doc.PrevencionRates[plan] = f
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// =============================================================================
// COMMISSION RULES
// =============================================================================

// ParseCommissionRules converts a JSON document into CommissionRules,
// defaulting every absent field.
func ParseCommissionRules(data string) (billing.CommissionRules, error) {
	rules := billing.DefaultCommissionRules()
	if data == "" {
		return rules, nil
	}

	var doc CommissionRulesJSON
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return rules, fmt.Errorf("invalid commission rules: %w", err)
	}

	if doc.SpecialPlans != nil {
		rules.SpecialPlans = doc.SpecialPlans
	}
	if doc.SpecialRate != nil {
		rules.SpecialRate = decimal.NewFromFloat(*doc.SpecialRate)
	}
	if doc.DefaultShiftHours != nil {
		rules.DefaultShiftHours = *doc.DefaultShiftHours
	}
	if doc.Schedules != nil {
		schedules := make(map[int]billing.ShiftSchedule, len(doc.Schedules))
		for key, s := range doc.Schedules {
			hours, err := strconv.Atoi(key)
			if err != nil {
				return rules, fmt.Errorf("invalid shift length %q: %w", key, err)
			}
			tiers := make([]billing.Tier, len(s.Tiers))
			for i, t := range s.Tiers {
				tiers[i] = billing.Tier{
					Min:        t.Min,
					Max:        t.Max,
					Percentage: decimal.NewFromFloat(t.Percentage),
				}
			}
			schedules[hours] = billing.ShiftSchedule{Absorbable: s.Absorbable, Tiers: tiers}
		}
		rules.Schedules = schedules
	}
	return rules, nil
}

// MarshalCommissionRules renders commission rules back to their JSON document.
func MarshalCommissionRules(rules billing.CommissionRules) (string, error) {
	doc := CommissionRulesJSON{
		SpecialPlans:      rules.SpecialPlans,
		SpecialRate:       floatPtr(rules.SpecialRate),
		DefaultShiftHours: &rules.DefaultShiftHours,
	}
	// A cleared list or schedule map must round-trip as empty, not as
	// null, or parsing would resurrect the defaults.
	if doc.SpecialPlans == nil {
		doc.SpecialPlans = []string{}
	}
	doc.Schedules = make(map[string]ScheduleJSON, len(rules.Schedules))
	for hours, s := range rules.Schedules {
		tiers := make([]TierJSON, len(s.Tiers))
		for i, t := range s.Tiers {
			pct, _ := t.Percentage.Float64()
			tiers[i] = TierJSON{Min: t.Min, Max: t.Max, Percentage: pct}
		}
		doc.Schedules[strconv.Itoa(hours)] = ScheduleJSON{Absorbable: s.Absorbable, Tiers: tiers}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func floatPtr(d decimal.Decimal) *float64 {
	f, _ := d.Float64()
	return &f
}
