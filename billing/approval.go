/*
approval.go - Approval workflow and billing mutations

PURPOSE:
  The only code that writes billing fields. Records move between exactly
  two states: pending (default) and approved. Approval gates which records
  the portfolio and commission engines aggregate.

STATE MACHINE:
  pending --approve--> approved --unapprove--> pending
  Both transitions are idempotent and reversible until the whole month is
  locked. There is no per-record terminal state.

PERIOD LOCK:
  Closing a month is an enforced precondition checked here, inside the
  mutation functions, for approve, unapprove, defer and both override
  setters. A locked month cannot be edited through any path, not just
  through disabled UI controls.

FREEZING:
  Approving does NOT freeze the value. The frozen contract activates only
  when an operator edits the displayed value, written back as a price
  override. An approved-but-unedited record still follows rule changes.
  SnapshotOnApprove opts into freezing the computed value at approval
  time instead, removing that drift.

SEE ALSO:
  - valuation.go: The frozen-value contract on the read side
  - store.go: The persistence boundary these mutations go through
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WORKFLOW
// =============================================================================

// Workflow performs the engine's persisted mutations against a Store.
type Workflow struct {
	Store Store

	// SnapshotOnApprove freezes the computed value into the price
	// override at approval time. Off by default: the classic behavior is
	// that approved-but-unedited records follow later rule changes.
	SnapshotOnApprove bool
}

// NewWorkflow creates a workflow over the given store.
func NewWorkflow(store Store) *Workflow {
	return &Workflow{Store: store}
}

// guard loads the record and rejects the mutation when its effective
// billing month is locked.
func (w *Workflow) guard(ctx context.Context, id RecordID, op string) (*SaleRecord, error) {
	r, err := w.Store.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	period := EffectivePeriod(*r)
	locked, err := w.Store.IsPeriodLocked(ctx, period)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, &PeriodLockedError{Period: period, Op: op}
	}
	return r, nil
}

// Approve marks a record as official. Idempotent: approving an approved
// record is a no-op.
func (w *Workflow) Approve(ctx context.Context, id RecordID) error {
	r, err := w.guard(ctx, id, "approve")
	if err != nil {
		return err
	}
	if r.Approved {
		return nil
	}

	snapshotted := false
	if w.SnapshotOnApprove && r.PriceOverride == nil {
		cfg, err := w.Store.RuleConfiguration(ctx)
		if err != nil {
			return err
		}
		v := ComputeValue(*r, cfg).Value
		if err := w.Store.SetPriceOverride(ctx, id, &v); err != nil {
			return err
		}
		snapshotted = true
	}

	if err := w.Store.SetApproved(ctx, id, true); err != nil {
		// A failed approval must not leave a frozen-but-pending record.
		if snapshotted {
			_ = w.Store.SetPriceOverride(ctx, id, nil)
		}
		return err
	}
	return nil
}

// Unapprove reverts a record to pending. Idempotent on pending records.
func (w *Workflow) Unapprove(ctx context.Context, id RecordID) error {
	r, err := w.guard(ctx, id, "unapprove")
	if err != nil {
		return err
	}
	if !r.Approved {
		return nil
	}
	return w.Store.SetApproved(ctx, id, false)
}

// Defer kicks a record forward one billing cycle from the board's
// currently selected month and persists the resulting period override.
// Two locks gate the move: the record's own effective month (a closed
// month cannot be edited out of, through any path) and the selected
// month the board is anchored on.
func (w *Workflow) Defer(ctx context.Context, id RecordID, selected Month) error {
	if _, err := w.guard(ctx, id, "defer"); err != nil {
		return err
	}
	locked, err := w.Store.IsPeriodLocked(ctx, selected)
	if err != nil {
		return err
	}
	if locked {
		return &PeriodLockedError{Period: selected, Op: "defer"}
	}
	target := DeferTarget(selected, 1)
	return w.Store.SetPeriod(ctx, id, &target)
}

// SetPriceOverride freezes (or, with nil, unfreezes) the record's
// liquidation value.
func (w *Workflow) SetPriceOverride(ctx context.Context, id RecordID, v *decimal.Decimal) error {
	if _, err := w.guard(ctx, id, "set price override"); err != nil {
		return err
	}
	return w.Store.SetPriceOverride(ctx, id, v)
}

// SetPortfolioOverride replaces (or, with nil, restores) the record's
// derived portfolio value.
func (w *Workflow) SetPortfolioOverride(ctx context.Context, id RecordID, v *decimal.Decimal) error {
	if _, err := w.guard(ctx, id, "set portfolio override"); err != nil {
		return err
	}
	return w.Store.SetPortfolioOverride(ctx, id, v)
}
