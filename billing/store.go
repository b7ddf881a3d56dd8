/*
store.go - Persistence interface for the record store boundary

PURPOSE:
  Defines the interface between the engine and whatever holds the records.
  The engine's write surface is deliberately narrow: per-record updates
  restricted to the four billing fields, manual portfolio client
  create/delete, singleton rule documents, seller shifts, and period locks.
  Sale identity fields are written by the upstream pipeline, not here.

CONSISTENCY:
  Mutations are synchronous commit-then-reflect: the workflow returns only
  after the store write succeeds, so the in-memory and persisted views
  never diverge on a failed write.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - billing/store/memory.go: In-memory for testing

SEE ALSO:
  - approval.go: The only code that writes billing fields
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Record store boundary
// =============================================================================

// Store is the record-store collaborator. Reads return the data the engine
// computes over; writes are restricted to what this engine owns.
type Store interface {
	// ListSales returns all completed sale records (the upstream store
	// filters to completed status before they ever reach this engine).
	ListSales(ctx context.Context) ([]SaleRecord, error)

	// GetSale returns one record, or ErrRecordNotFound.
	GetSale(ctx context.Context, id RecordID) (*SaleRecord, error)

	// SaveSale upserts a full record. Used by the upstream pipeline and
	// by scenario seeding; the engine itself uses only the setters below.
	SaveSale(ctx context.Context, r SaleRecord) error

	// Billing-field setters: the engine's entire per-record write surface.
	SetApproved(ctx context.Context, id RecordID, approved bool) error
	SetPeriod(ctx context.Context, id RecordID, period *Month) error
	SetPriceOverride(ctx context.Context, id RecordID, v *decimal.Decimal) error
	SetPortfolioOverride(ctx context.Context, id RecordID, v *decimal.Decimal) error

	// Singleton rule documents. Loads fall back to the built-in defaults
	// when nothing has been saved yet.
	RuleConfiguration(ctx context.Context) (RuleConfiguration, error)
	SaveRuleConfiguration(ctx context.Context, cfg RuleConfiguration) error
	CommissionRules(ctx context.Context) (CommissionRules, error)
	SaveCommissionRules(ctx context.Context, rules CommissionRules) error

	// Seller -> shift length mapping.
	SellerShifts(ctx context.Context) (map[SellerID]int, error)
	SaveSellerShift(ctx context.Context, seller SellerID, hours int) error

	// Manual portfolio clients.
	ListManualClients(ctx context.Context) ([]ManualPortfolioClient, error)
	CreateManualClient(ctx context.Context, c ManualPortfolioClient) error
	DeleteManualClient(ctx context.Context, id string) error

	// Period locks. A locked month rejects every billing mutation.
	IsPeriodLocked(ctx context.Context, period Month) (bool, error)
	LockPeriod(ctx context.Context, period Month) error
	UnlockPeriod(ctx context.Context, period Month) error
}
