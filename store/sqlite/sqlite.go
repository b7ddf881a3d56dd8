/*
Package sqlite provides a SQLite-backed implementation of billing.Store.

PURPOSE:
  Persists the record-store side of the billing engine: sale records with
  their four mutable billing fields, the singleton rule documents, manual
  portfolio clients, seller shifts, and period locks. The same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

WRITE SURFACE:
  The billing-field setters only ever touch approved/period/price_override/
  portfolio_override. Sale identity columns are written by SaveSale alone,
  which is the upstream pipeline's (and scenario seeding's) entry point.

RULE DOCUMENTS:
  RuleConfiguration and CommissionRules are singleton JSON rows in
  rule_documents, converted through the factory package. A missing row
  loads as the built-in defaults, so calculation works on a fresh
  database before any configuration has been saved.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definition
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/andesalud/billing-engine/billing"
	"github.com/andesalud/billing-engine/factory"
)

const (
	docRuleConfiguration = "rule_configuration"
	docCommissionRules   = "commission_rules"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ billing.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Sale records. Identity columns come from the upstream pipeline;
	-- only the four billing columns are mutable through the engine.
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		client TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		seller TEXT NOT NULL,
		employment_condition TEXT,
		insurer TEXT NOT NULL,
		plan TEXT,
		gross_price TEXT NOT NULL DEFAULT '0',
		aportes TEXT NOT NULL DEFAULT '0',
		discount TEXT NOT NULL DEFAULT '0',
		record_type TEXT NOT NULL DEFAULT 'alta',
		approved INTEGER NOT NULL DEFAULT 0,
		period TEXT,
		price_override TEXT,
		portfolio_override TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_seller ON sales(seller);
	CREATE INDEX IF NOT EXISTS idx_sales_entry_date ON sales(entry_date);
	CREATE INDEX IF NOT EXISTS idx_sales_approved ON sales(approved);
	CREATE INDEX IF NOT EXISTS idx_sales_period ON sales(period) WHERE period IS NOT NULL;

	-- Singleton rule documents (JSON), one row per document name.
	CREATE TABLE IF NOT EXISTS rule_documents (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Manual portfolio clients.
	CREATE TABLE IF NOT EXISTS manual_clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		insurer TEXT,
		plan TEXT,
		gross_price TEXT NOT NULL DEFAULT '0',
		discount TEXT NOT NULL DEFAULT '0',
		liquidation_value TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Seller shift lengths (hours).
	CREATE TABLE IF NOT EXISTS seller_shifts (
		seller TEXT PRIMARY KEY,
		hours INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Closed billing months.
	CREATE TABLE IF NOT EXISTS period_locks (
		period TEXT PRIMARY KEY,
		locked_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SALES
// =============================================================================

const saleColumns = `id, client, entry_date, seller, employment_condition, insurer, plan,
	       gross_price, aportes, discount, record_type,
	       approved, period, price_override, portfolio_override`

// ListSales returns all sale records ordered by entry date.
func (s *Store) ListSales(ctx context.Context) ([]billing.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + saleColumns + `
		FROM sales
		ORDER BY entry_date ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []billing.SaleRecord
	for rows.Next() {
		r, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, r)
	}
	return sales, rows.Err()
}

// GetSale returns one sale record.
func (s *Store) GetSale(ctx context.Context, id billing.RecordID) (*billing.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, billing.ErrRecordNotFound
	}
	r, err := scanSale(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveSale upserts a full sale record.
func (s *Store) SaveSale(ctx context.Context, r billing.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO sales
		(id, client, entry_date, seller, employment_condition, insurer, plan,
		 gross_price, aportes, discount, record_type,
		 approved, period, price_override, portfolio_override, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client = excluded.client,
			entry_date = excluded.entry_date,
			seller = excluded.seller,
			employment_condition = excluded.employment_condition,
			insurer = excluded.insurer,
			plan = excluded.plan,
			gross_price = excluded.gross_price,
			aportes = excluded.aportes,
			discount = excluded.discount,
			record_type = excluded.record_type,
			approved = excluded.approved,
			period = excluded.period,
			price_override = excluded.price_override,
			portfolio_override = excluded.portfolio_override,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Client,
		r.EntryDate.UTC().Format(time.RFC3339),
		r.Seller,
		r.Condition,
		r.Insurer,
		r.Plan,
		r.GrossPrice.String(),
		r.Aportes.String(),
		r.Discount.String(),
		r.Type,
		r.Approved,
		nullMonth(r.Period),
		nullDecimal(r.PriceOverride),
		nullDecimal(r.PortfolioOverride),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save sale: %w", err)
	}
	return nil
}

func (s *Store) updateBillingField(ctx context.Context, id billing.RecordID, column string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf("UPDATE sales SET %s = ?, updated_at = ? WHERE id = ?", column)
	res, err := s.db.ExecContext(ctx, query,
		value, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrRecordNotFound
	}
	return nil
}

// SetApproved updates the approved flag.
func (s *Store) SetApproved(ctx context.Context, id billing.RecordID, approved bool) error {
	return s.updateBillingField(ctx, id, "approved", approved)
}

// SetPeriod updates (or clears) the explicit period override.
func (s *Store) SetPeriod(ctx context.Context, id billing.RecordID, period *billing.Month) error {
	return s.updateBillingField(ctx, id, "period", nullMonth(period))
}

// SetPriceOverride updates (or clears) the frozen liquidation value.
func (s *Store) SetPriceOverride(ctx context.Context, id billing.RecordID, v *decimal.Decimal) error {
	return s.updateBillingField(ctx, id, "price_override", nullDecimal(v))
}

// SetPortfolioOverride updates (or clears) the portfolio value override.
func (s *Store) SetPortfolioOverride(ctx context.Context, id billing.RecordID, v *decimal.Decimal) error {
	return s.updateBillingField(ctx, id, "portfolio_override", nullDecimal(v))
}

func scanSale(rows *sql.Rows) (billing.SaleRecord, error) {
	var (
		r                 billing.SaleRecord
		entryDate         string
		condition         sql.NullString
		plan              sql.NullString
		grossPrice        string
		aportes           string
		discount          string
		period            sql.NullString
		priceOverride     sql.NullString
		portfolioOverride sql.NullString
	)

	err := rows.Scan(
		&r.ID, &r.Client, &entryDate, &r.Seller, &condition, &r.Insurer, &plan,
		&grossPrice, &aportes, &discount, &r.Type,
		&r.Approved, &period, &priceOverride, &portfolioOverride,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan sale: %w", err)
	}

	r.EntryDate, _ = time.Parse(time.RFC3339, entryDate)
	r.Condition = condition.String
	r.Plan = plan.String
	r.GrossPrice = parseDecimal(grossPrice)
	r.Aportes = parseDecimal(aportes)
	r.Discount = parseDecimal(discount)

	if period.Valid && period.String != "" {
		if m, err := billing.ParseMonth(period.String); err == nil {
			r.Period = &m
		}
	}
	if priceOverride.Valid {
		d := parseDecimal(priceOverride.String)
		r.PriceOverride = &d
	}
	if portfolioOverride.Valid {
		d := parseDecimal(portfolioOverride.String)
		r.PortfolioOverride = &d
	}
	return r, nil
}

// =============================================================================
// RULE DOCUMENTS
// =============================================================================

func (s *Store) loadDocument(ctx context.Context, name string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM rule_documents WHERE name = ?", name,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", name, err)
	}
	return body, nil
}

func (s *Store) saveDocument(ctx context.Context, name, body string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_documents (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, name, body, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// RuleConfiguration loads the valuation rates, defaulting when absent.
func (s *Store) RuleConfiguration(ctx context.Context) (billing.RuleConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := s.loadDocument(ctx, docRuleConfiguration)
	if err != nil {
		return billing.DefaultRuleConfiguration(), err
	}
	return factory.ParseRuleConfiguration(body)
}

// SaveRuleConfiguration persists the valuation rates.
func (s *Store) SaveRuleConfiguration(ctx context.Context, cfg billing.RuleConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := factory.MarshalRuleConfiguration(cfg)
	if err != nil {
		return err
	}
	return s.saveDocument(ctx, docRuleConfiguration, body)
}

// CommissionRules loads the commission schedules, defaulting when absent.
func (s *Store) CommissionRules(ctx context.Context) (billing.CommissionRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := s.loadDocument(ctx, docCommissionRules)
	if err != nil {
		return billing.DefaultCommissionRules(), err
	}
	return factory.ParseCommissionRules(body)
}

// SaveCommissionRules persists the commission schedules.
func (s *Store) SaveCommissionRules(ctx context.Context, rules billing.CommissionRules) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := factory.MarshalCommissionRules(rules)
	if err != nil {
		return err
	}
	return s.saveDocument(ctx, docCommissionRules, body)
}

// =============================================================================
// SELLER SHIFTS
// =============================================================================

// SellerShifts returns the seller -> shift length mapping.
func (s *Store) SellerShifts(ctx context.Context) (map[billing.SellerID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT seller, hours FROM seller_shifts")
	if err != nil {
		return nil, fmt.Errorf("failed to query seller shifts: %w", err)
	}
	defer rows.Close()

	shifts := make(map[billing.SellerID]int)
	for rows.Next() {
		var seller billing.SellerID
		var hours int
		if err := rows.Scan(&seller, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan seller shift: %w", err)
		}
		shifts[seller] = hours
	}
	return shifts, rows.Err()
}

// SaveSellerShift upserts one seller's shift length.
func (s *Store) SaveSellerShift(ctx context.Context, seller billing.SellerID, hours int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seller_shifts (seller, hours, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(seller) DO UPDATE SET
			hours = excluded.hours,
			updated_at = excluded.updated_at
	`, seller, hours, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save seller shift: %w", err)
	}
	return nil
}

// =============================================================================
// MANUAL PORTFOLIO CLIENTS
// =============================================================================

// ListManualClients returns all manual portfolio clients.
func (s *Store) ListManualClients(ctx context.Context) ([]billing.ManualPortfolioClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, insurer, plan, gross_price, discount, liquidation_value
		FROM manual_clients
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual clients: %w", err)
	}
	defer rows.Close()

	var clients []billing.ManualPortfolioClient
	for rows.Next() {
		var (
			c          billing.ManualPortfolioClient
			insurer    sql.NullString
			plan       sql.NullString
			grossPrice string
			discount   string
			value      string
		)
		if err := rows.Scan(&c.ID, &c.Name, &insurer, &plan, &grossPrice, &discount, &value); err != nil {
			return nil, fmt.Errorf("failed to scan manual client: %w", err)
		}
		c.Insurer = insurer.String
		c.Plan = plan.String
		c.GrossPrice = parseDecimal(grossPrice)
		c.Discount = parseDecimal(discount)
		c.LiquidationValue = parseDecimal(value)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CreateManualClient inserts a manual portfolio client.
func (s *Store) CreateManualClient(ctx context.Context, c billing.ManualPortfolioClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_clients
		(id, name, insurer, plan, gross_price, discount, liquidation_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Insurer, c.Plan,
		c.GrossPrice.String(), c.Discount.String(), c.LiquidationValue.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create manual client: %w", err)
	}
	return nil
}

// DeleteManualClient removes a manual portfolio client.
func (s *Store) DeleteManualClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM manual_clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete manual client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrClientNotFound
	}
	return nil
}

// =============================================================================
// PERIOD LOCKS
// =============================================================================

// IsPeriodLocked reports whether the billing month is closed.
func (s *Store) IsPeriodLocked(ctx context.Context, period billing.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM period_locks WHERE period = ?",
		period.String(),
	).Scan(&count)
	return count > 0, err
}

// LockPeriod closes a billing month. Idempotent.
func (s *Store) LockPeriod(ctx context.Context, period billing.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO period_locks (period, locked_at)
		VALUES (?, ?)
		ON CONFLICT(period) DO NOTHING
	`, period.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to lock period: %w", err)
	}
	return nil
}

// UnlockPeriod reopens a billing month. Idempotent.
func (s *Store) UnlockPeriod(ctx context.Context, period billing.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM period_locks WHERE period = ?", period.String())
	if err != nil {
		return fmt.Errorf("failed to unlock period: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullMonth(m *billing.Month) any {
	if m == nil {
		return nil
	}
	return m.String()
}

// parseDecimal treats malformed or empty stored numbers as zero, matching
// the engine's zero-default policy for operator data.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
