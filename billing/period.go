/*
period.go - Billing month resolution and deferral

PURPOSE:
  Assigns every sale record to a calendar billing month (YYYY-MM).
  A record naturally belongs to the month of its entry date, but an
  operator can defer it forward one billing cycle at a time, which is
  persisted as an explicit period override on the record.

KEY RULES:
  - An explicit record period ALWAYS wins over the entry-date month
  - Deferral advances from the board's currently selected month, not
    from the record's own month
  - Year rollover: deferring December lands in January of the next year

SEE ALSO:
  - approval.go: Defer is exposed as a workflow mutation with lock checks
*/
package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - A calendar billing period (YYYY-MM)
// =============================================================================

// Month identifies one billing period.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the billing month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// CurrentMonth returns the billing month containing today.
func CurrentMonth() Month {
	return MonthOf(time.Now())
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) Equal(o Month) bool { return m.Year == o.Year && m.Month == o.Month }

// Next returns the following calendar month, rolling the year at December.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// AddMonths advances n billing cycles.
func (m Month) AddMonths(n int) Month {
	out := m
	for i := 0; i < n; i++ {
		out = out.Next()
	}
	return out
}

// Contains reports whether t falls inside this billing month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// =============================================================================
// PERIOD RESOLVER
// =============================================================================

// EffectivePeriod returns the billing month a record belongs to:
// the explicit period override when present, else the entry-date month.
func EffectivePeriod(r SaleRecord) Month {
	if r.Period != nil {
		return *r.Period
	}
	return MonthOf(r.EntryDate)
}

// ListForPeriod filters records to those whose effective period is p.
func ListForPeriod(records []SaleRecord, p Month) []SaleRecord {
	var out []SaleRecord
	for _, r := range records {
		if EffectivePeriod(r).Equal(p) {
			out = append(out, r)
		}
	}
	return out
}

// DeferTarget computes the period a record moves to when deferred from the
// board's currently selected month. The selected month is the anchor, not
// the record's own period: kicking a stale record forward always lands it
// in the cycle after the one the operator is looking at.
func DeferTarget(selected Month, months int) Month {
	if months < 1 {
		months = 1
	}
	return selected.AddMonths(months)
}
