package persistence

import (
	"context"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/lease"
	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/payment"
	"gorm.io/gorm"
)

// GormTransactionScope implements ledger.TransactionScope using GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn in one transaction. Returning an error rolls back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos ledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) LeaseRepo() lease.Repository {
	return NewGormLeaseRepository(r.tx)
}

func (r *gormTransactionalRepositories) BillingRepo() billing.Repository {
	return NewGormBillingRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() payment.Repository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) MeterRepo() metering.MeterRepository {
	return NewGormMeterRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReadingRepo() metering.ReadingRepository {
	return NewGormReadingRepository(r.tx)
}

// NewRepositories builds the non-transactional repositories used for reads
func NewRepositories(db *gorm.DB) ledger.Repositories {
	return ledger.Repositories{
		Leases:   NewGormLeaseRepository(db),
		Billings: NewGormBillingRepository(db),
		Payments: NewGormPaymentRepository(db),
		Meters:   NewGormMeterRepository(db),
		Readings: NewGormReadingRepository(db),
	}
}

var (
	_ ledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ ledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
