package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the display and lifecycle status of a billing
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIAL"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusPenalized Status = "PENALIZED"
)

// AllStatuses lists the statuses in display order
func AllStatuses() []Status {
	return []Status{StatusPending, StatusPartial, StatusPaid, StatusOverdue, StatusPenalized}
}

// IsValid checks if the status is a valid billing status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid, StatusOverdue, StatusPenalized:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// IsOutstanding returns true if the billing still expects money
func (s Status) IsOutstanding() bool {
	return s != StatusPaid
}

// DeriveStatus computes the status from ledger amounts.
//
// PAID when paid covers amount+penalty, PARTIAL when something but not all is paid.
// An unpaid billing is PENALIZED when it carries a penalty, otherwise OVERDUE
// once now is past the due date, otherwise PENDING.
func DeriveStatus(amount, paid, penalty decimal.Decimal, due, now time.Time) Status {
	total := amount.Add(penalty)
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	case penalty.IsPositive():
		return StatusPenalized
	case now.After(due):
		return StatusOverdue
	default:
		return StatusPending
	}
}
