package report

import (
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BalanceBucket is the unpaid balance of billings in one status group
type BalanceBucket struct {
	Overdue decimal.Decimal `json:"overdue"` // OVERDUE and PENALIZED
	Pending decimal.Decimal `json:"pending"`
	Partial decimal.Decimal `json:"partial"`
}

func newBalanceBucket() BalanceBucket {
	return BalanceBucket{Overdue: decimal.Zero, Pending: decimal.Zero, Partial: decimal.Zero}
}

// LeaseBalanceStatus summarizes what a lease owes, with utilities kept apart
// from rent, deposits and penalties.
type LeaseBalanceStatus struct {
	Regular     BalanceBucket `json:"regular"`
	Utility     BalanceBucket `json:"utility"`
	HasOverdue  bool          `json:"has_overdue"`
	HasPending  bool          `json:"has_pending"`
	HasPartial  bool          `json:"has_partial"`
	NextDueDate *time.Time    `json:"next_due_date,omitempty"` // earliest pending due date
	DaysOverdue int           `json:"days_overdue"`            // of the oldest overdue billing
}

// BalanceStatusOf derives the lease balance status as of asOf.
// Status is re-derived so billings that became overdue since their last write count as overdue.
func BalanceStatusOf(billings []*billing.Billing, asOf time.Time) LeaseBalanceStatus {
	s := LeaseBalanceStatus{Regular: newBalanceBucket(), Utility: newBalanceBucket()}
	var oldestOverdue *time.Time

	for _, b := range billings {
		if b.IsDeleted() {
			continue
		}
		bucket := &s.Regular
		if b.Type == billing.TypeUtility {
			bucket = &s.Utility
		}

		switch billing.DeriveStatus(b.Amount, b.PaidAmount, b.PenaltyAmount, b.DueDate, asOf) {
		case billing.StatusOverdue, billing.StatusPenalized:
			bucket.Overdue = bucket.Overdue.Add(b.Balance)
			s.HasOverdue = true
			if oldestOverdue == nil || b.DueDate.Before(*oldestOverdue) {
				due := b.DueDate
				oldestOverdue = &due
			}
		case billing.StatusPending:
			bucket.Pending = bucket.Pending.Add(b.Balance)
			s.HasPending = true
			if s.NextDueDate == nil || b.DueDate.Before(*s.NextDueDate) {
				due := b.DueDate
				s.NextDueDate = &due
			}
		case billing.StatusPartial:
			bucket.Partial = bucket.Partial.Add(b.Balance)
			s.HasPartial = true
		}
	}

	if oldestOverdue != nil {
		s.DaysOverdue = max(shared.DaysBetween(*oldestOverdue, asOf), 0)
	}
	return s
}
