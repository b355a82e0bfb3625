// Package billing holds the billing ledger: payable obligations tied to a lease,
// the status state machine derived from their amounts, and the penalty calculator.
//
// Every mutation of paid or penalty amounts goes through a Billing method that
// recomputes balance and status, so the persisted row always satisfies
//
//	balance == round2(amount + penalty_amount - paid_amount)
package billing
