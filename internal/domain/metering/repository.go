package metering

import (
	"context"

	"github.com/google/uuid"
)

// MeterRepository defines meter persistence
type MeterRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Meter, error)
	// FindByIDs returns the meters found, keyed by id
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Meter, error)
	Create(ctx context.Context, m *Meter) error
}

// ReadingRepository defines reading persistence
type ReadingRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Reading, error)
	// FindByMeters lists readings of the meters ordered by date, locking the
	// meter rows so concurrent submissions for one meter serialize
	FindByMeters(ctx context.Context, tenantID uuid.UUID, meterIDs []uuid.UUID) (map[uuid.UUID][]Reading, error)
	Create(ctx context.Context, readings ...*Reading) error
	Save(ctx context.Context, r *Reading) error
}
