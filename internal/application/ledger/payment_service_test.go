package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestBilling(t *testing.T, f *fixture, leaseID uuid.UUID, typ billing.Type, amount string, due time.Time) *billing.Billing {
	t.Helper()
	b, err := billing.NewBilling(f.tenantID, leaseID, typ, dec(amount), due, due, "")
	require.NoError(t, err)
	b.ClearDomainEvents()
	return b
}

func cashDetails(amount string, paidAt time.Time) payment.Details {
	return payment.Details{
		Amount: dec(amount),
		Method: payment.MethodCash,
		PaidBy: "Maria Santos",
		PaidAt: paidAt,
	}
}

func expectApply(f *fixture, billings ...*billing.Billing) {
	f.billings.On("FindByIDsForUpdate", mock.Anything, f.tenantID, mock.Anything).Return(billings, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.billings.On("SaveWithLock", mock.Anything, mock.Anything).Return(nil)
}

func TestPaymentService_ApplyPayment_OldestFirst(t *testing.T) {
	f := newFixture(date(2024, 2, 10))
	leaseID := uuid.New()
	jan := newTestBilling(t, f, leaseID, billing.TypeRent, "1000", date(2024, 1, 1))
	feb := newTestBilling(t, f, leaseID, billing.TypeRent, "1000", date(2024, 2, 1))
	expectApply(f, feb, jan)
	f.penalties.On("Lookup", mock.Anything, f.tenantID, billing.TypeRent).Return(nil, nil)

	res, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("1500", date(2024, 1, 1)),
		Allocations: []AllocationInput{{BillingID: feb.ID}, {BillingID: jan.ID}},
	})
	require.NoError(t, err)

	assert.Equal(t, billing.StatusPaid, jan.Status)
	assert.True(t, jan.Balance.IsZero())
	assert.Equal(t, billing.StatusPartial, feb.Status)
	assert.Equal(t, "500.00", feb.Balance.StringFixed(2))
	require.Len(t, res.Payment.Allocations, 2)
	assert.Equal(t, jan.ID, res.Payment.Allocations[0].BillingID)
	assert.Empty(t, res.Penalties)
	assert.Contains(t, f.events.Types(), payment.EventTypePaymentReceived)
	assert.Contains(t, f.events.Types(), billing.EventTypeBillingPaid)
}

func TestPaymentService_ApplyPayment_RemainderRejected(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "100", date(2024, 1, 1))
	expectApply(f, b)

	_, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("150", date(2024, 1, 1)),
		Allocations: []AllocationInput{{BillingID: b.ID}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.True(t, b.PaidAmount.IsZero())
	f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentService_ApplyPayment_ExplicitOverBalance(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "100", date(2024, 1, 1))
	expectApply(f, b)

	_, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("120", date(2024, 1, 1)),
		Allocations: []AllocationInput{{BillingID: b.ID, Amount: decPtr("120")}},
	})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestPaymentService_ApplyPayment_ExplicitSumMismatch(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "100", date(2024, 1, 1))
	expectApply(f, b)

	_, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("80", date(2024, 1, 1)),
		Allocations: []AllocationInput{{BillingID: b.ID, Amount: decPtr("50")}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestPaymentService_ApplyPayment_MixedAllocationsRejected(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	_, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("80", date(2024, 1, 1)),
		Allocations: []AllocationInput{{BillingID: uuid.New(), Amount: decPtr("50")}, {BillingID: uuid.New()}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
	f.billings.AssertNotCalled(t, "FindByIDsForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ApplyPayment_SecurityDepositMethod(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	rent := newTestBilling(t, f, uuid.New(), billing.TypeRent, "100", date(2024, 1, 1))
	expectApply(f, rent)

	d := cashDetails("100", date(2024, 1, 1))
	d.Method = payment.MethodSecurityDeposit
	_, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     d,
		Allocations: []AllocationInput{{BillingID: rent.ID}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestPaymentService_ApplyPayment_MissingBilling(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	id := uuid.New()
	f.billings.On("FindByIDsForUpdate", mock.Anything, f.tenantID, []uuid.UUID{id}).
		Return(nil, shared.NewNotFoundError("billing", id))

	_, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("100", date(2024, 1, 1)),
		Allocations: []AllocationInput{{BillingID: id}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentService_ApplyPayment_LatePaymentCreatesPenalty(t *testing.T) {
	f := newFixture(date(2024, 1, 20))
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "1000", date(2024, 1, 1))
	expectApply(f, b)
	cfg, err := billing.NewPenaltyConfig(f.tenantID, billing.TypeRent, 3, dec("5"), 0, nil)
	require.NoError(t, err)
	f.penalties.On("Lookup", mock.Anything, f.tenantID, billing.TypeRent).Return(cfg, nil)
	f.billings.On("HasPenaltyFor", mock.Anything, f.tenantID, b.ID).Return(false, nil)
	f.billings.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("1000", date(2024, 1, 11)),
		Allocations: []AllocationInput{{BillingID: b.ID}},
	})
	require.NoError(t, err)
	require.Len(t, res.Penalties, 1)

	pen := res.Penalties[0]
	assert.Equal(t, billing.TypePenalty, pen.Type)
	assert.Equal(t, "50.00", pen.Amount.StringFixed(2))
	assert.Equal(t, b.LeaseID, pen.LeaseID)
	require.NotNil(t, pen.SourceBillingID)
	assert.Equal(t, b.ID, *pen.SourceBillingID)
	assert.True(t, pen.DueDate.Equal(date(2024, 1, 27)))
	assert.True(t, strings.HasPrefix(pen.Notes, "penalty for billing "+b.ID.String()))
	assert.Contains(t, pen.Notes, "(10 days late)")
}

func TestPaymentService_ApplyPayment_PenaltyLookupFailureIsNotFatal(t *testing.T) {
	f := newFixture(date(2024, 1, 20))
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "1000", date(2024, 1, 1))
	expectApply(f, b)
	f.penalties.On("Lookup", mock.Anything, f.tenantID, billing.TypeRent).Return(nil, errors.New("redis down"))

	res, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("1000", date(2024, 1, 11)),
		Allocations: []AllocationInput{{BillingID: b.ID}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Penalties)
}

func TestPaymentService_ApplyPayment_ExistingPenaltyNotDuplicated(t *testing.T) {
	f := newFixture(date(2024, 1, 20))
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "1000", date(2024, 1, 1))
	expectApply(f, b)
	cfg, err := billing.NewPenaltyConfig(f.tenantID, billing.TypeRent, 0, dec("5"), 0, nil)
	require.NoError(t, err)
	f.penalties.On("Lookup", mock.Anything, f.tenantID, billing.TypeRent).Return(cfg, nil)
	f.billings.On("HasPenaltyFor", mock.Anything, f.tenantID, b.ID).Return(true, nil)

	res, err := NewPaymentService(f.deps()).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:     cashDetails("500", date(2024, 1, 11)),
		Allocations: []AllocationInput{{BillingID: b.ID}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Penalties)
	f.billings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentService_ApplyPayment_Idempotency(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	store := new(MockIdempotencyStore)
	key := "payment:" + f.tenantID.String() + ":abc"
	store.On("MarkProcessed", mock.Anything, key, 24*time.Hour).Return(false, nil)

	_, err := NewPaymentService(f.deps(), WithIdempotencyStore(store)).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:        cashDetails("100", date(2024, 1, 1)),
		Allocations:    []AllocationInput{{BillingID: uuid.New()}},
		IdempotencyKey: "abc",
	})
	assert.ErrorIs(t, err, ErrDuplicatePayment)
	assert.ErrorIs(t, err, shared.ErrConflict)
	f.billings.AssertNotCalled(t, "FindByIDsForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ApplyPayment_FailedRequestReleasesKey(t *testing.T) {
	f := newFixture(date(2024, 1, 1))
	store := new(MockIdempotencyStore)
	key := "payment:" + f.tenantID.String() + ":abc"
	store.On("MarkProcessed", mock.Anything, key, mock.Anything).Return(true, nil)
	store.On("Forget", mock.Anything, key).Return(nil)
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "100", date(2024, 1, 1))
	expectApply(f, b)

	_, err := NewPaymentService(f.deps(), WithIdempotencyStore(store)).ApplyPayment(context.Background(), f.tenantID, ApplyPaymentInput{
		Details:        cashDetails("500", date(2024, 1, 1)),
		Allocations:    []AllocationInput{{BillingID: b.ID}},
		IdempotencyKey: "abc",
	})
	require.Error(t, err)
	store.AssertExpectations(t)
}

func TestPaymentService_RevertPayment(t *testing.T) {
	f := newFixture(date(2024, 1, 5))
	b := newTestBilling(t, f, uuid.New(), billing.TypeRent, "100", date(2024, 1, 1))
	p, err := payment.NewPayment(f.tenantID, cashDetails("100", date(2024, 1, 1)), []payment.Line{{BillingID: b.ID, Amount: dec("100")}})
	require.NoError(t, err)
	f.payments.On("FindByIDForUpdate", mock.Anything, f.tenantID, p.ID).Return(p, nil)
	f.payments.On("SaveWithLock", mock.Anything, p).Return(nil)

	svc := NewPaymentService(f.deps())
	reverted, err := svc.RevertPayment(context.Background(), f.tenantID, p.ID, "bounced cheque")
	require.NoError(t, err)
	require.NotNil(t, reverted.RevertedAt)
	assert.Equal(t, "bounced cheque", reverted.RevertReason)
	assert.Contains(t, f.events.Types(), payment.EventTypePaymentReverted)

	_, err = svc.RevertPayment(context.Background(), f.tenantID, p.ID, "again")
	assert.ErrorIs(t, err, shared.ErrState)
}

func TestPaymentService_AttachReceipt(t *testing.T) {
	f := newFixture(date(2024, 1, 5))
	p, err := payment.NewPayment(f.tenantID, cashDetails("100", date(2024, 1, 1)), []payment.Line{{BillingID: uuid.New(), Amount: dec("100")}})
	require.NoError(t, err)
	storage := new(MockReceiptStorage)
	key := "receipts/" + f.tenantID.String() + "/" + p.ID.String() + "/scan.pdf"
	storage.On("Upload", mock.Anything, key, "application/pdf", mock.Anything, int64(4)).Return(nil)
	storage.On("PresignGet", mock.Anything, key, 15*time.Minute).Return("https://s3/signed", nil)
	f.payments.On("FindByID", mock.Anything, f.tenantID, p.ID).Return(p, nil)
	f.payments.On("FindByIDForUpdate", mock.Anything, f.tenantID, p.ID).Return(p, nil)
	f.payments.On("SaveWithLock", mock.Anything, p).Return(nil)

	svc := NewPaymentService(f.deps(), WithReceiptStorage(storage))
	updated, err := svc.AttachReceipt(context.Background(), f.tenantID, ReceiptUpload{
		PaymentID:   p.ID,
		Filename:    "../../scan.pdf",
		ContentType: "application/pdf",
		Size:        4,
	}, strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, key, updated.ReceiptURL)

	url, err := svc.ReceiptURL(context.Background(), f.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/signed", url)
}

func TestPaymentService_ReceiptsDisabled(t *testing.T) {
	f := newFixture(date(2024, 1, 5))
	_, err := NewPaymentService(f.deps()).ReceiptURL(context.Background(), f.tenantID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrState)
}

func TestReceiptKey(t *testing.T) {
	tenant, pay := uuid.New(), uuid.New()
	prefix := "receipts/" + tenant.String() + "/" + pay.String() + "/"
	assert.Equal(t, prefix+"a.png", ReceiptKey(tenant, pay, "a.png"))
	assert.Equal(t, prefix+"b.png", ReceiptKey(tenant, pay, `C:\tmp\b.png`))
	assert.Equal(t, prefix+"receipt", ReceiptKey(tenant, pay, ""))
}
