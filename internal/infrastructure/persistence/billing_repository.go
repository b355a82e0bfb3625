package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillingRepository implements billing.Repository using GORM.
// The soft delete scope on BillingModel hides deleted billings from every query.
type GormBillingRepository struct {
	db *gorm.DB
}

// NewGormBillingRepository creates a new GormBillingRepository
func NewGormBillingRepository(db *gorm.DB) *GormBillingRepository {
	return &GormBillingRepository{db: db}
}

func (r *GormBillingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Billing, error) {
	var m models.BillingModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		return nil, findError("find billing", "billing", id, err)
	}
	return m.ToDomain(), nil
}

// FindByIDsForUpdate locks in id order so that two payments touching the same
// billings always acquire their locks in the same sequence.
func (r *GormBillingRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*billing.Billing, error) {
	if len(ids) == 0 {
		return []*billing.Billing{}, nil
	}
	var rows []models.BillingModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, dbError("lock billings", err)
	}

	found := make(map[uuid.UUID]bool, len(rows))
	for i := range rows {
		found[rows[i].ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, shared.NewNotFoundError("billing", id)
		}
	}
	return billingsToDomain(rows), nil
}

func (r *GormBillingRepository) FindByLease(ctx context.Context, tenantID, leaseID uuid.UUID, filter billing.Filter) ([]*billing.Billing, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ? AND lease_id = ?", tenantID, leaseID)
	if len(filter.Types) > 0 {
		q = q.Where("billing_type IN ?", filter.Types)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.DueFrom != nil {
		q = q.Where("due_date >= ?", models.Date(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		q = q.Where("due_date <= ?", models.Date(*filter.DueTo))
	}
	q = q.Order(orderClause(filter.OrderBy, BillingSortFields, "due_date", filter.OrderDir, "ASC"))
	if filter.PageSize > 0 {
		q = q.Limit(filter.PageSize).Offset(filter.Offset())
	}

	var rows []models.BillingModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, dbError("find lease billings", err)
	}
	return billingsToDomain(rows), nil
}

func (r *GormBillingRepository) FindByDueRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*billing.Billing, error) {
	var rows []models.BillingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND due_date BETWEEN ? AND ?", tenantID, models.Date(from), models.Date(to)).
		Order("due_date, id").
		Find(&rows).Error; err != nil {
		return nil, dbError("find billings by due date", err)
	}
	return billingsToDomain(rows), nil
}

func (r *GormBillingRepository) HasPenaltyFor(ctx context.Context, tenantID, sourceID uuid.UUID) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&models.BillingModel{}).
		Where("tenant_id = ? AND billing_type = ? AND source_billing_id = ?", tenantID, billing.TypePenalty, sourceID).
		Count(&n).Error; err != nil {
		return false, dbError("check penalty", err)
	}
	return n > 0, nil
}

func (r *GormBillingRepository) Create(ctx context.Context, billings ...*billing.Billing) error {
	if len(billings) == 0 {
		return nil
	}
	rows := make([]models.BillingModel, len(billings))
	for i, b := range billings {
		rows[i].FromDomain(b)
	}
	return dbError("create billings", r.db.WithContext(ctx).Create(&rows).Error)
}

// SaveWithLock writes the billing only if the stored version is the one it was loaded at
func (r *GormBillingRepository) SaveWithLock(ctx context.Context, b *billing.Billing) error {
	var m models.BillingModel
	m.FromDomain(b)
	result := r.db.WithContext(ctx).
		Model(&models.BillingModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", b.ID, b.TenantID, b.Version-1).
		Updates(map[string]any{
			"amount":         m.Amount,
			"paid_amount":    m.PaidAmount,
			"penalty_amount": m.PenaltyAmount,
			"balance":        m.Balance,
			"status":         m.Status,
			"due_date":       m.DueDate,
			"notes":          m.Notes,
			"deleted_at":     m.DeletedAt,
			"version":        m.Version,
			"updated_at":     m.UpdatedAt,
		})
	if result.Error != nil {
		return dbError("save billing", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func billingsToDomain(rows []models.BillingModel) []*billing.Billing {
	out := make([]*billing.Billing, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormPenaltyConfigRepository implements billing.PenaltyConfigRepository
type GormPenaltyConfigRepository struct {
	db *gorm.DB
}

// NewGormPenaltyConfigRepository creates a new GormPenaltyConfigRepository
func NewGormPenaltyConfigRepository(db *gorm.DB) *GormPenaltyConfigRepository {
	return &GormPenaltyConfigRepository{db: db}
}

func (r *GormPenaltyConfigRepository) FindByType(ctx context.Context, tenantID uuid.UUID, typ billing.Type) (*billing.PenaltyConfig, error) {
	var m models.PenaltyConfigModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND billing_type = ?", tenantID, typ).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.KindNotFound, "NOT_FOUND", "no penalty config for "+typ.String())
		}
		return nil, dbError("find penalty config", err)
	}
	return m.ToDomain(), nil
}

func (r *GormPenaltyConfigRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]billing.PenaltyConfig, error) {
	var rows []models.PenaltyConfigModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("billing_type").Find(&rows).Error; err != nil {
		return nil, dbError("list penalty configs", err)
	}
	out := make([]billing.PenaltyConfig, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save upserts on (tenant_id, billing_type)
func (r *GormPenaltyConfigRepository) Save(ctx context.Context, cfg *billing.PenaltyConfig) error {
	var m models.PenaltyConfigModel
	m.FromDomain(cfg)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "billing_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"grace_period", "penalty_percentage", "compound_period", "max_penalty_percentage", "updated_at",
		}),
	}).Create(&m).Error
	return dbError("save penalty config", err)
}

var (
	_ billing.Repository              = (*GormBillingRepository)(nil)
	_ billing.PenaltyConfigRepository = (*GormPenaltyConfigRepository)(nil)
)
