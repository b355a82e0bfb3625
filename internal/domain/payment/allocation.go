package payment

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is a planned allocation of part of a payment to a billing
type Line struct {
	BillingID uuid.UUID
	Amount    decimal.Decimal
}

// Target is a billing a payment may be applied to
type Target struct {
	BillingID uuid.UUID
	DueDate   time.Time
	CreatedAt time.Time
	Balance   decimal.Decimal
}

// AllocateOldestFirst spreads amount across targets by due date (then creation
// time, then id), fully satisfying each before moving on. Any amount left once
// every target is satisfied is rejected rather than held as credit.
func AllocateOldestFirst(amount decimal.Decimal, targets []Target) ([]Line, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "payment amount must be positive")
	}

	sorted := make([]Target, len(targets))
	copy(sorted, targets)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.BillingID[:], b.BillingID[:]) < 0
	})

	lines := make([]Line, 0, len(sorted))
	remaining := amount
	for _, t := range sorted {
		if remaining.IsZero() {
			break
		}
		if !t.Balance.IsPositive() {
			continue
		}
		alloc := decimal.Min(remaining, t.Balance)
		lines = append(lines, Line{BillingID: t.BillingID, Amount: alloc})
		remaining = remaining.Sub(alloc)
	}

	if remaining.IsPositive() {
		return nil, shared.NewConflictError("PAYMENT_EXCEEDS_BALANCE",
			fmt.Sprintf("payment exceeds the targeted balances by %s", remaining.StringFixed(2)))
	}
	return lines, nil
}

// MergeExplicit combines caller-specified lines per billing, keeping first-seen
// order, and checks each billing's requested total against its balance.
// Requests are never clamped: an over-allocation is a conflict.
func MergeExplicit(amount decimal.Decimal, lines []Line, balances map[uuid.UUID]decimal.Decimal) ([]Line, error) {
	order := make([]uuid.UUID, 0, len(lines))
	totals := make(map[uuid.UUID]decimal.Decimal, len(lines))
	sum := decimal.Zero
	for _, l := range lines {
		if !l.Amount.IsPositive() {
			return nil, shared.NewValidationError("INVALID_AMOUNT", "allocation amount must be positive")
		}
		if !l.Amount.Equal(shared.Round2(l.Amount)) {
			return nil, shared.NewValidationError("INVALID_AMOUNT",
				fmt.Sprintf("allocation amount %s has more than 2 decimal places", l.Amount))
		}
		if _, ok := totals[l.BillingID]; !ok {
			order = append(order, l.BillingID)
			totals[l.BillingID] = decimal.Zero
		}
		totals[l.BillingID] = totals[l.BillingID].Add(l.Amount)
		sum = sum.Add(l.Amount)
	}
	if !sum.Equal(amount) {
		return nil, shared.NewValidationError("ALLOCATION_MISMATCH",
			fmt.Sprintf("allocations total %s but payment is %s", sum.StringFixed(2), amount.StringFixed(2)))
	}

	merged := make([]Line, 0, len(order))
	for _, id := range order {
		balance, ok := balances[id]
		if !ok {
			return nil, shared.NewNotFoundError("billing", id)
		}
		if totals[id].GreaterThan(balance) {
			return nil, shared.NewConflictError("OVER_ALLOCATION",
				fmt.Sprintf("allocation %s exceeds balance %s of billing %s", totals[id].StringFixed(2), balance.StringFixed(2), id))
		}
		merged = append(merged, Line{BillingID: id, Amount: totals[id]})
	}
	return merged, nil
}
