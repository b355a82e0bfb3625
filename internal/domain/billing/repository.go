package billing

import (
	"context"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows billing list queries
type Filter struct {
	shared.Filter
	Types    []Type
	Statuses []Status
	DueFrom  *time.Time
	DueTo    *time.Time
}

// Repository defines billing persistence. Soft-deleted billings are excluded
// from every finder.
type Repository interface {
	// FindByID finds a billing for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Billing, error)

	// FindByIDsForUpdate loads and row-locks billings in id order.
	// Missing ids are reported as NotFound.
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Billing, error)

	// FindByLease lists a lease's billings
	FindByLease(ctx context.Context, tenantID, leaseID uuid.UUID, filter Filter) ([]*Billing, error)

	// FindByDueRange lists every billing due within [from, to]
	FindByDueRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*Billing, error)

	// HasPenaltyFor reports whether a penalty billing already references source
	HasPenaltyFor(ctx context.Context, tenantID, sourceID uuid.UUID) (bool, error)

	// Create inserts billings
	Create(ctx context.Context, billings ...*Billing) error

	// SaveWithLock updates a billing with a version check
	SaveWithLock(ctx context.Context, b *Billing) error
}

// PenaltyConfigRepository stores penalty configurations per billing type
type PenaltyConfigRepository interface {
	// FindByType returns NotFound when the tenant has no config for typ
	FindByType(ctx context.Context, tenantID uuid.UUID, typ Type) (*PenaltyConfig, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]PenaltyConfig, error)
	Save(ctx context.Context, cfg *PenaltyConfig) error
}
