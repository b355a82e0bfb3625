package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines lease persistence. Deleted leases are never returned.
type Repository interface {
	// FindByID finds a lease for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Lease, error)

	// FindByIDForUpdate finds a lease and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Lease, error)

	// FindByIDs finds several leases, skipping unknown ids
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Lease, error)

	// FindActiveForUnit finds active leases on a rental unit whose term overlaps [from, to]
	FindActiveForUnit(ctx context.Context, tenantID, rentalUnitID uuid.UUID, from, to time.Time) ([]Lease, error)

	// Create inserts a new lease
	Create(ctx context.Context, l *Lease) error

	// SaveWithLock updates a lease with a version check
	SaveWithLock(ctx context.Context, l *Lease) error

	// ReplaceSchedules drops the lease's schedule rows and inserts the given ones
	ReplaceSchedules(ctx context.Context, leaseID uuid.UUID, schedules []PaymentSchedule) error

	// FindSchedules lists schedule rows by due date
	FindSchedules(ctx context.Context, leaseID uuid.UUID) ([]PaymentSchedule, error)
}
