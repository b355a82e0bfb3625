package persistence

import (
	"context"
	"time"

	"github.com/erp/rentledger/internal/domain/lease"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLeaseRepository implements lease.Repository using GORM
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

func (r *GormLeaseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*lease.Lease, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

func (r *GormLeaseRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*lease.Lease, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormLeaseRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*lease.Lease, error) {
	var m models.LeaseModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		return nil, findError("find lease", "lease", id, err)
	}
	return m.ToDomain(), nil
}

func (r *GormLeaseRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]lease.Lease, error) {
	if len(ids) == 0 {
		return []lease.Lease{}, nil
	}
	var rows []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, dbError("find leases", err)
	}
	return leasesToDomain(rows), nil
}

func (r *GormLeaseRepository) FindActiveForUnit(ctx context.Context, tenantID, rentalUnitID uuid.UUID, from, to time.Time) ([]lease.Lease, error) {
	var rows []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND rental_unit_id = ? AND status = ?", tenantID, rentalUnitID, lease.StatusActive).
		Where("start_date <= ? AND end_date >= ?", models.Date(to), models.Date(from)).
		Order("start_date, created_at, id").
		Find(&rows).Error; err != nil {
		return nil, dbError("find unit leases", err)
	}
	return leasesToDomain(rows), nil
}

func (r *GormLeaseRepository) Create(ctx context.Context, l *lease.Lease) error {
	var m models.LeaseModel
	m.FromDomain(l)
	return dbError("create lease", r.db.WithContext(ctx).Create(&m).Error)
}

// SaveWithLock writes the lease only if the stored version is the one it was loaded at
func (r *GormLeaseRepository) SaveWithLock(ctx context.Context, l *lease.Lease) error {
	var m models.LeaseModel
	m.FromDomain(l)
	result := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", l.ID, l.TenantID, l.Version-1).
		Updates(map[string]any{
			"name":        m.Name,
			"start_date":  m.StartDate,
			"end_date":    m.EndDate,
			"rent_amount": m.RentAmount,
			"terms_month": m.TermsMonth,
			"balance":     m.Balance,
			"status":      m.Status,
			"deleted_at":  m.DeletedAt,
			"version":     m.Version,
			"updated_at":  m.UpdatedAt,
		})
	if result.Error != nil {
		return dbError("save lease", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormLeaseRepository) ReplaceSchedules(ctx context.Context, leaseID uuid.UUID, schedules []lease.PaymentSchedule) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("lease_id = ?", leaseID).Delete(&models.PaymentScheduleModel{}).Error; err != nil {
		return dbError("clear schedules", err)
	}
	if len(schedules) == 0 {
		return nil
	}
	rows := make([]models.PaymentScheduleModel, len(schedules))
	for i, s := range schedules {
		rows[i].FromDomain(s)
	}
	return dbError("write schedules", db.Create(&rows).Error)
}

func (r *GormLeaseRepository) FindSchedules(ctx context.Context, leaseID uuid.UUID) ([]lease.PaymentSchedule, error) {
	var rows []models.PaymentScheduleModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("due_date, id").
		Find(&rows).Error; err != nil {
		return nil, dbError("find schedules", err)
	}
	out := make([]lease.PaymentSchedule, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func leasesToDomain(rows []models.LeaseModel) []lease.Lease {
	out := make([]lease.Lease, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ lease.Repository = (*GormLeaseRepository)(nil)
