package persistence

import (
	"errors"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// dbError maps a gorm failure onto the ledger's error kinds. Domain errors
// pass through untouched.
func dbError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewConflictError("DUPLICATE_RECORD", op+": record already exists")
	default:
		return shared.NewDatabaseError(op, err)
	}
}

// findError is dbError with ErrRecordNotFound reported as NotFound for resource
func findError(op, resource string, id uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(resource, id)
	}
	return dbError(op, err)
}
