package ledger

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/lease"
	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*lease.Lease, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lease.Lease), args.Error(1)
}

func (m *MockLeaseRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*lease.Lease, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lease.Lease), args.Error(1)
}

func (m *MockLeaseRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]lease.Lease, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).([]lease.Lease), args.Error(1)
}

func (m *MockLeaseRepository) FindActiveForUnit(ctx context.Context, tenantID, unitID uuid.UUID, from, to time.Time) ([]lease.Lease, error) {
	args := m.Called(ctx, tenantID, unitID, from, to)
	return args.Get(0).([]lease.Lease), args.Error(1)
}

func (m *MockLeaseRepository) Create(ctx context.Context, l *lease.Lease) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockLeaseRepository) SaveWithLock(ctx context.Context, l *lease.Lease) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockLeaseRepository) ReplaceSchedules(ctx context.Context, leaseID uuid.UUID, rows []lease.PaymentSchedule) error {
	return m.Called(ctx, leaseID, rows).Error(0)
}

func (m *MockLeaseRepository) FindSchedules(ctx context.Context, leaseID uuid.UUID) ([]lease.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID)
	return args.Get(0).([]lease.PaymentSchedule), args.Error(1)
}

type MockBillingRepository struct {
	mock.Mock
}

func (m *MockBillingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Billing, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Billing), args.Error(1)
}

func (m *MockBillingRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*billing.Billing, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Billing), args.Error(1)
}

func (m *MockBillingRepository) FindByLease(ctx context.Context, tenantID, leaseID uuid.UUID, filter billing.Filter) ([]*billing.Billing, error) {
	args := m.Called(ctx, tenantID, leaseID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Billing), args.Error(1)
}

func (m *MockBillingRepository) FindByDueRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*billing.Billing, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).([]*billing.Billing), args.Error(1)
}

func (m *MockBillingRepository) HasPenaltyFor(ctx context.Context, tenantID, sourceID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, sourceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBillingRepository) Create(ctx context.Context, billings ...*billing.Billing) error {
	return m.Called(ctx, billings).Error(0)
}

func (m *MockBillingRepository) SaveWithLock(ctx context.Context, b *billing.Billing) error {
	return m.Called(ctx, b).Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) ActiveAllocatedTotals(ctx context.Context, tenantID uuid.UUID, billingIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, billingIDs)
	return args.Get(0).(map[uuid.UUID]decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) CollectedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockMeterRepository struct {
	mock.Mock
}

func (m *MockMeterRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*metering.Meter, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.Meter), args.Error(1)
}

func (m *MockMeterRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*metering.Meter, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).(map[uuid.UUID]*metering.Meter), args.Error(1)
}

func (m *MockMeterRepository) Create(ctx context.Context, meter *metering.Meter) error {
	return m.Called(ctx, meter).Error(0)
}

type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*metering.Reading, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.Reading), args.Error(1)
}

func (m *MockReadingRepository) FindByMeters(ctx context.Context, tenantID uuid.UUID, meterIDs []uuid.UUID) (map[uuid.UUID][]metering.Reading, error) {
	args := m.Called(ctx, tenantID, meterIDs)
	return args.Get(0).(map[uuid.UUID][]metering.Reading), args.Error(1)
}

func (m *MockReadingRepository) Create(ctx context.Context, readings ...*metering.Reading) error {
	return m.Called(ctx, readings).Error(0)
}

func (m *MockReadingRepository) Save(ctx context.Context, r *metering.Reading) error {
	return m.Called(ctx, r).Error(0)
}

type MockPenaltyLookup struct {
	mock.Mock
}

func (m *MockPenaltyLookup) Lookup(ctx context.Context, tenantID uuid.UUID, typ billing.Type) (*billing.PenaltyConfig, error) {
	args := m.Called(ctx, tenantID, typ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PenaltyConfig), args.Error(1)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error { return nil }

type MockReceiptStorage struct {
	mock.Mock
}

func (m *MockReceiptStorage) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	return m.Called(ctx, key, contentType, body, size).Error(0)
}

func (m *MockReceiptStorage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType()
	}
	return out
}

// fixture wires every mock into Deps with a fixed clock
type fixture struct {
	tenantID  uuid.UUID
	now       time.Time
	leases    *MockLeaseRepository
	billings  *MockBillingRepository
	payments  *MockPaymentRepository
	meters    *MockMeterRepository
	readings  *MockReadingRepository
	penalties *MockPenaltyLookup
	events    *MockEventPublisher
}

func newFixture(now time.Time) *fixture {
	return &fixture{
		tenantID:  uuid.New(),
		now:       now,
		leases:    new(MockLeaseRepository),
		billings:  new(MockBillingRepository),
		payments:  new(MockPaymentRepository),
		meters:    new(MockMeterRepository),
		readings:  new(MockReadingRepository),
		penalties: new(MockPenaltyLookup),
		events:    &MockEventPublisher{},
	}
}

func (f *fixture) deps() Deps {
	repos := Repositories{
		Leases:   f.leases,
		Billings: f.billings,
		Payments: f.payments,
		Meters:   f.meters,
		Readings: f.readings,
	}
	return Deps{
		Scope:     NewNoOpTransactionScope(repos),
		Repos:     repos,
		Penalties: f.penalties,
		Events:    f.events,
		Now:       func() time.Time { return f.now },
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
