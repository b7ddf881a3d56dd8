/*
rules_test.go - Tests for JSON rule document conversion

Tests for:
- Defaulting on empty/partial documents
- Marshal/parse round trips
- Malformed input rejection
*/
package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/andesalud/billing-engine/billing"
	"github.com/andesalud/billing-engine/factory"
)

func TestParseRuleConfiguration_EmptyIsAllDefaults(t *testing.T) {
	// GIVEN: No configuration has ever been saved
	// WHEN: Parsing the empty document
	// THEN: Every built-in default is present; calculation works on day one

	for _, data := range []string{"", "{}"} {
		cfg, err := factory.ParseRuleConfiguration(data)
		if err != nil {
			t.Fatalf("ParseRuleConfiguration(%q): %v", data, err)
		}
		if !cfg.TaxRate.Equal(decimal.NewFromFloat(0.10)) {
			t.Errorf("tax rate = %s", cfg.TaxRate)
		}
		if !cfg.AMPFMultiplier.Equal(decimal.NewFromFloat(2.0)) {
			t.Errorf("AMPF multiplier = %s", cfg.AMPFMultiplier)
		}
		if len(cfg.PrevencionRates) == 0 {
			t.Error("prevencion rate table should default")
		}
	}
}

func TestParseRuleConfiguration_PartialDocument(t *testing.T) {
	// GIVEN: A document naming only the AMPF multiplier
	// WHEN: Parsing it
	// THEN: That field is taken; every other field keeps its default

	cfg, err := factory.ParseRuleConfiguration(`{"ampf_multiplier": 2.5}`)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.AMPFMultiplier.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("AMPF multiplier = %s, want 2.5", cfg.AMPFMultiplier)
	}
	if !cfg.DoctoRedMultiplier.Equal(decimal.NewFromFloat(1.80)) {
		t.Errorf("doctored multiplier = %s, want the default 1.8", cfg.DoctoRedMultiplier)
	}
}

func TestParseRuleConfiguration_ExplicitZero(t *testing.T) {
	// An explicit zero is a choice, not an absence.
	cfg, err := factory.ParseRuleConfiguration(`{"tax_rate": 0}`)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.TaxRate.IsZero() {
		t.Errorf("tax rate = %s, want 0", cfg.TaxRate)
	}
}

func TestParseRuleConfiguration_Invalid(t *testing.T) {
	if _, err := factory.ParseRuleConfiguration("{not json"); err == nil {
		t.Error("malformed document should be rejected")
	}
}

func TestRuleConfiguration_RoundTrip(t *testing.T) {
	cfg := billing.DefaultRuleConfiguration()
	cfg.PortfolioRate = decimal.NewFromFloat(0.07)

	doc, err := factory.MarshalRuleConfiguration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := factory.ParseRuleConfiguration(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !got.PortfolioRate.Equal(decimal.NewFromFloat(0.07)) {
		t.Errorf("portfolio rate = %s, want 0.07", got.PortfolioRate)
	}
	if len(got.PrevencionRates) != len(cfg.PrevencionRates) {
		t.Errorf("rate table lost entries: %d -> %d", len(cfg.PrevencionRates), len(got.PrevencionRates))
	}
}

func TestRuleConfiguration_RoundTrip_ClearedRateTable(t *testing.T) {
	// GIVEN: An administrator emptied the Prevención rate table
	// WHEN: Marshaling and parsing the document
	// THEN: The table stays empty; the built-in entries do not come back

	cfg := billing.DefaultRuleConfiguration()
	cfg.PrevencionRates = map[string]decimal.Decimal{}

	doc, err := factory.MarshalRuleConfiguration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := factory.ParseRuleConfiguration(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.PrevencionRates) != 0 {
		t.Errorf("cleared rate table came back with %d entries", len(got.PrevencionRates))
	}
	if plan := got.MatchPrevencionPlan("A2"); plan != "" {
		t.Errorf("MatchPrevencionPlan = %q, want no match", plan)
	}
}

func TestParseCommissionRules_EmptyIsAllDefaults(t *testing.T) {
	rules, err := factory.ParseCommissionRules("")
	if err != nil {
		t.Fatal(err)
	}
	if rules.DefaultShiftHours != 8 {
		t.Errorf("default shift = %d", rules.DefaultShiftHours)
	}
	if s := rules.ScheduleFor(5); s.Absorbable != 8 {
		t.Errorf("5h absorbable = %d, want 8", s.Absorbable)
	}
}

func TestParseCommissionRules_SchedulesReplaceWholesale(t *testing.T) {
	// GIVEN: A document with one 6-hour schedule
	// WHEN: Parsing it
	// THEN: The schedule map is replaced, not merged - the built-in 5h and
	//       8h buckets are gone

	doc := `{"schedules": {"6": {"absorbable": 10, "tiers": [{"min": 11, "max": 99, "percentage": 0.18}]}}}`
	rules, err := factory.ParseCommissionRules(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.Schedules) != 1 {
		t.Fatalf("schedules = %d, want 1", len(rules.Schedules))
	}
	s := rules.Schedules[6]
	if s.Absorbable != 10 || len(s.Tiers) != 1 {
		t.Errorf("schedule = %+v", s)
	}
	if !s.Tiers[0].Percentage.Equal(decimal.NewFromFloat(0.18)) {
		t.Errorf("tier percentage = %s", s.Tiers[0].Percentage)
	}
}

func TestParseCommissionRules_BadShiftKey(t *testing.T) {
	doc := `{"schedules": {"five": {"absorbable": 1, "tiers": []}}}`
	if _, err := factory.ParseCommissionRules(doc); err == nil {
		t.Error("non-numeric shift key should be rejected")
	}
}

func TestCommissionRules_RoundTrip_ClearedSpecialPlans(t *testing.T) {
	// GIVEN: An administrator deleted every special plan
	// WHEN: Marshaling and parsing the document
	// THEN: No plan pays the flat rate anymore; the cleared list is a
	//       choice, not an absence, and must not default back to "cerca"

	rules := billing.DefaultCommissionRules()
	rules.SpecialPlans = []string{}

	doc, err := factory.MarshalCommissionRules(rules)
	if err != nil {
		t.Fatal(err)
	}
	got, err := factory.ParseCommissionRules(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.SpecialPlans) != 0 {
		t.Errorf("cleared special-plan list came back as %v", got.SpecialPlans)
	}
	if got.IsSpecialPlan("Plan Cerca") {
		t.Error("Cerca should no longer pay the flat rate")
	}
}

func TestCommissionRules_RoundTrip_ClearedSchedules(t *testing.T) {
	rules := billing.DefaultCommissionRules()
	rules.Schedules = map[int]billing.ShiftSchedule{}

	doc, err := factory.MarshalCommissionRules(rules)
	if err != nil {
		t.Fatal(err)
	}
	got, err := factory.ParseCommissionRules(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Schedules) != 0 {
		t.Errorf("cleared schedules came back with %d entries", len(got.Schedules))
	}
}

func TestParseCommissionRules_NullListKeepsDefaults(t *testing.T) {
	// A JSON null (like an absent field) still means "use the defaults";
	// only an explicit empty list clears.
	rules, err := factory.ParseCommissionRules(`{"special_plans": null, "schedules": null}`)
	if err != nil {
		t.Fatal(err)
	}
	if !rules.IsSpecialPlan("Plan Cerca") {
		t.Error("null special_plans should keep the default list")
	}
	if s := rules.ScheduleFor(5); s.Absorbable != 8 {
		t.Errorf("null schedules should keep the defaults, got absorbable %d", s.Absorbable)
	}
}

func TestCommissionRules_RoundTrip(t *testing.T) {
	rules := billing.DefaultCommissionRules()
	rules.SpecialPlans = []string{"cerca", "joven"}

	doc, err := factory.MarshalCommissionRules(rules)
	if err != nil {
		t.Fatal(err)
	}
	got, err := factory.ParseCommissionRules(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsSpecialPlan("Plan Joven") {
		t.Error("special plan list lost in round trip")
	}
	if s := got.ScheduleFor(8); s.Absorbable != 12 {
		t.Errorf("8h absorbable = %d, want 12", s.Absorbable)
	}
}
