package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines payment persistence. Payments are never deleted.
type Repository interface {
	// FindByID loads a payment with its allocations
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindByIDForUpdate loads and row-locks a payment with its allocations
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// Create inserts the payment row and its allocation rows
	Create(ctx context.Context, p *Payment) error

	// SaveWithLock updates reversal and receipt fields with a version check
	SaveWithLock(ctx context.Context, p *Payment) error

	// ActiveAllocatedTotals sums allocations per billing, excluding reverted payments
	ActiveAllocatedTotals(ctx context.Context, tenantID uuid.UUID, billingIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// CollectedBetween sums non-reverted allocations of payments made in [from, to]
	CollectedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}
