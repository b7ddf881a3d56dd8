// Package store provides billing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/andesalud/billing-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	sales         map[billing.RecordID]billing.SaleRecord
	manualClients map[string]billing.ManualPortfolioClient
	shifts        map[billing.SellerID]int
	locks         map[string]bool

	config      *billing.RuleConfiguration
	commissions *billing.CommissionRules
}

func NewMemory() *Memory {
	return &Memory{
		sales:         make(map[billing.RecordID]billing.SaleRecord),
		manualClients: make(map[string]billing.ManualPortfolioClient),
		shifts:        make(map[billing.SellerID]int),
		locks:         make(map[string]bool),
	}
}

var _ billing.Store = (*Memory)(nil)

// =============================================================================
// SALES
// =============================================================================

func (m *Memory) ListSales(_ context.Context) ([]billing.SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.SaleRecord, 0, len(m.sales))
	for _, r := range m.sales {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetSale(_ context.Context, id billing.RecordID) (*billing.SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.sales[id]
	if !ok {
		return nil, billing.ErrRecordNotFound
	}
	return &r, nil
}

func (m *Memory) SaveSale(_ context.Context, r billing.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[r.ID] = r
	return nil
}

func (m *Memory) update(id billing.RecordID, fn func(*billing.SaleRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.sales[id]
	if !ok {
		return billing.ErrRecordNotFound
	}
	fn(&r)
	m.sales[id] = r
	return nil
}

func (m *Memory) SetApproved(_ context.Context, id billing.RecordID, approved bool) error {
	return m.update(id, func(r *billing.SaleRecord) { r.Approved = approved })
}

func (m *Memory) SetPeriod(_ context.Context, id billing.RecordID, period *billing.Month) error {
	return m.update(id, func(r *billing.SaleRecord) { r.Period = period })
}

func (m *Memory) SetPriceOverride(_ context.Context, id billing.RecordID, v *decimal.Decimal) error {
	return m.update(id, func(r *billing.SaleRecord) { r.PriceOverride = v })
}

func (m *Memory) SetPortfolioOverride(_ context.Context, id billing.RecordID, v *decimal.Decimal) error {
	return m.update(id, func(r *billing.SaleRecord) { r.PortfolioOverride = v })
}

// =============================================================================
// RULE DOCUMENTS
// =============================================================================

func (m *Memory) RuleConfiguration(_ context.Context) (billing.RuleConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return billing.DefaultRuleConfiguration(), nil
	}
	return *m.config, nil
}

func (m *Memory) SaveRuleConfiguration(_ context.Context, cfg billing.RuleConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = &cfg
	return nil
}

func (m *Memory) CommissionRules(_ context.Context) (billing.CommissionRules, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.commissions == nil {
		return billing.DefaultCommissionRules(), nil
	}
	return *m.commissions, nil
}

func (m *Memory) SaveCommissionRules(_ context.Context, rules billing.CommissionRules) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissions = &rules
	return nil
}

// =============================================================================
// SELLER SHIFTS
// =============================================================================

func (m *Memory) SellerShifts(_ context.Context) (map[billing.SellerID]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[billing.SellerID]int, len(m.shifts))
	for k, v := range m.shifts {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveSellerShift(_ context.Context, seller billing.SellerID, hours int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[seller] = hours
	return nil
}

// =============================================================================
// MANUAL PORTFOLIO CLIENTS
// =============================================================================

func (m *Memory) ListManualClients(_ context.Context) ([]billing.ManualPortfolioClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.ManualPortfolioClient, 0, len(m.manualClients))
	for _, c := range m.manualClients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateManualClient(_ context.Context, c billing.ManualPortfolioClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manualClients[c.ID] = c
	return nil
}

func (m *Memory) DeleteManualClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.manualClients[id]; !ok {
		return billing.ErrClientNotFound
	}
	delete(m.manualClients, id)
	return nil
}

// =============================================================================
// PERIOD LOCKS
// =============================================================================

func (m *Memory) IsPeriodLocked(_ context.Context, period billing.Month) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locks[period.String()], nil
}

func (m *Memory) LockPeriod(_ context.Context, period billing.Month) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[period.String()] = true
	return nil
}

func (m *Memory) UnlockPeriod(_ context.Context, period billing.Month) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, period.String())
	return nil
}
