package persistence

import (
	"context"
	"time"

	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements payment.Repository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*payment.Payment, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*payment.Payment, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormPaymentRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*payment.Payment, error) {
	var m models.PaymentModel
	err := db.Preload("Allocations", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at, id")
	}).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error
	if err != nil {
		return nil, findError("find payment", "payment", id, err)
	}
	return m.ToDomain(), nil
}

// Create inserts the payment and, through the has-many association, its allocations
func (r *GormPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	var m models.PaymentModel
	m.FromDomain(p)
	return dbError("create payment", r.db.WithContext(ctx).Create(&m).Error)
}

// SaveWithLock updates the mutable payment fields. Allocations are immutable.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", p.ID, p.TenantID, p.Version-1).
		Updates(map[string]any{
			"receipt_url":   p.ReceiptURL,
			"reverted_at":   p.RevertedAt,
			"revert_reason": p.RevertReason,
			"notes":         p.Notes,
			"version":       p.Version,
			"updated_at":    p.UpdatedAt,
		})
	if result.Error != nil {
		return dbError("save payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

type billingTotal struct {
	BillingID uuid.UUID
	Total     decimal.Decimal
}

func (r *GormPaymentRepository) ActiveAllocatedTotals(ctx context.Context, tenantID uuid.UUID, billingIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(billingIDs))
	if len(billingIDs) == 0 {
		return out, nil
	}
	var rows []billingTotal
	if err := r.db.WithContext(ctx).
		Table("payment_allocations AS pa").
		Select("pa.billing_id AS billing_id, SUM(pa.amount) AS total").
		Joins("JOIN payments p ON p.id = pa.payment_id").
		Where("p.tenant_id = ? AND p.reverted_at IS NULL AND pa.billing_id IN ?", tenantID, billingIDs).
		Group("pa.billing_id").
		Scan(&rows).Error; err != nil {
		return nil, dbError("sum allocations", err)
	}
	for _, row := range rows {
		out[row.BillingID] = row.Total
	}
	return out, nil
}

func (r *GormPaymentRepository) CollectedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Table("payment_allocations AS pa").
		Select("SUM(pa.amount)").
		Joins("JOIN payments p ON p.id = pa.payment_id").
		Where("p.tenant_id = ? AND p.reverted_at IS NULL AND p.paid_at >= ? AND p.paid_at < ?", tenantID, from, to.AddDate(0, 0, 1)).
		Row().Scan(&total); err != nil {
		return decimal.Zero, dbError("sum collections", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

var _ payment.Repository = (*GormPaymentRepository)(nil)
