/*
period_test.go - Unit tests for billing month resolution

Tests for:
- YYYY-MM parsing and formatting
- Year rollover on deferral
- Effective-period resolution (explicit period wins)
*/
package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/andesalud/billing-engine/billing"
)

func TestParseMonth(t *testing.T) {
	m, err := billing.ParseMonth("2025-03")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if m.Year != 2025 || m.Month != time.March {
		t.Errorf("got %v", m)
	}
	if m.String() != "2025-03" {
		t.Errorf("String() = %q", m.String())
	}
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, s := range []string{"", "2025", "03-2025", "2025-13", "march"} {
		if _, err := billing.ParseMonth(s); !errors.Is(err, billing.ErrInvalidPeriod) {
			t.Errorf("ParseMonth(%q) = %v, want ErrInvalidPeriod", s, err)
		}
	}
}

func TestMonth_Next_YearRollover(t *testing.T) {
	// GIVEN: December 2024
	// WHEN: Advancing one billing cycle
	// THEN: January 2025, not month 13

	next := billing.Month{Year: 2024, Month: time.December}.Next()
	want := billing.Month{Year: 2025, Month: time.January}
	if !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}

func TestEffectivePeriod_ExplicitWins(t *testing.T) {
	// GIVEN: A record entered in March with an explicit April period
	// WHEN: Resolving its billing month
	// THEN: April; the explicit period always wins over the entry date

	r := billing.SaleRecord{
		EntryDate: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
	if got := billing.EffectivePeriod(r); got.String() != "2025-03" {
		t.Errorf("without override = %v", got)
	}

	april := billing.Month{Year: 2025, Month: time.April}
	r.Period = &april
	if got := billing.EffectivePeriod(r); !got.Equal(april) {
		t.Errorf("with override = %v, want %v", got, april)
	}
}

func TestListForPeriod(t *testing.T) {
	march := billing.Month{Year: 2025, Month: time.March}
	april := billing.Month{Year: 2025, Month: time.April}

	deferred := billing.SaleRecord{
		ID:        "b",
		EntryDate: time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC),
		Period:    &april,
	}
	records := []billing.SaleRecord{
		{ID: "a", EntryDate: time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)},
		deferred,
		{ID: "c", EntryDate: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)},
	}

	inMarch := billing.ListForPeriod(records, march)
	if len(inMarch) != 1 || inMarch[0].ID != "a" {
		t.Errorf("march = %v", inMarch)
	}
	inApril := billing.ListForPeriod(records, april)
	if len(inApril) != 2 {
		t.Errorf("april has %d records, want 2 (natural + deferred)", len(inApril))
	}
}

func TestDeferTarget_AnchoredOnSelectedMonth(t *testing.T) {
	// GIVEN: The board shows December 2024 and holds a stale October record
	// WHEN: The operator defers the record
	// THEN: It lands in January 2025 - one cycle past the SELECTED month,
	//       not one cycle past the record's own month

	selected := billing.Month{Year: 2024, Month: time.December}
	target := billing.DeferTarget(selected, 1)
	want := billing.Month{Year: 2025, Month: time.January}
	if !target.Equal(want) {
		t.Errorf("DeferTarget = %v, want %v", target, want)
	}
}

func TestDeferTarget_MinimumOneCycle(t *testing.T) {
	selected := billing.Month{Year: 2025, Month: time.March}
	for _, n := range []int{0, -3} {
		if got := billing.DeferTarget(selected, n); !got.Equal(selected.Next()) {
			t.Errorf("DeferTarget(%d) = %v, want %v", n, got, selected.Next())
		}
	}
}
