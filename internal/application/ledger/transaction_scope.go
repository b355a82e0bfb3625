package ledger

import (
	"context"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/lease"
	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/payment"
)

// TransactionScope runs ledger mutations atomically. If fn returns an error
// the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories bound to the
// current transaction. Row locks taken through them are held until commit.
type TransactionalRepositories interface {
	LeaseRepo() lease.Repository
	BillingRepo() billing.Repository
	PaymentRepo() payment.Repository
	MeterRepo() metering.MeterRepository
	ReadingRepo() metering.ReadingRepository
}

// Repositories bundles plain repositories for reads outside a transaction
// and for the no-op scope.
type Repositories struct {
	Leases   lease.Repository
	Billings billing.Repository
	Payments payment.Repository
	Meters   metering.MeterRepository
	Readings metering.ReadingRepository
}

func (r Repositories) LeaseRepo() lease.Repository             { return r.Leases }
func (r Repositories) BillingRepo() billing.Repository         { return r.Billings }
func (r Repositories) PaymentRepo() payment.Repository         { return r.Payments }
func (r Repositories) MeterRepo() metering.MeterRepository     { return r.Meters }
func (r Repositories) ReadingRepo() metering.ReadingRepository { return r.Readings }

// NoOpTransactionScope runs fn directly against the given repositories.
// Used in tests.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute calls fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = Repositories{}
)
