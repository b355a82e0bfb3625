package report

import (
	"testing"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestBilling(t *testing.T, leaseID uuid.UUID, typ billing.Type, amount string, due time.Time) *billing.Billing {
	t.Helper()
	b, err := billing.NewBilling(uuid.New(), leaseID, typ, dec(amount), due, due, "")
	require.NoError(t, err)
	return b
}

func TestBuildRentReport(t *testing.T) {
	leaseA, leaseB := uuid.New(), uuid.New()
	paidRent := newTestBilling(t, leaseA, billing.TypeRent, "1000", day(3, 1))
	require.NoError(t, paidRent.ApplyAllocation(dec("1000"), day(3, 1)))
	lateRent := newTestBilling(t, leaseB, billing.TypeRent, "1000", day(3, 1))
	require.NoError(t, lateRent.SetPenalty(dec("20"), day(3, 10)))
	utility := newTestBilling(t, leaseA, billing.TypeUtility, "250", day(3, 20))
	penalty := newTestBilling(t, leaseB, billing.TypePenalty, "20", day(3, 8))
	deleted := newTestBilling(t, leaseA, billing.TypeRent, "999", day(3, 5))
	require.NoError(t, deleted.Delete(day(3, 2)))

	r := BuildRentReport(RentReportInput{
		PeriodStart: day(3, 1),
		PeriodEnd:   day(3, 31),
		AsOf:        day(3, 15),
		Billings:    []*billing.Billing{paidRent, lateRent, utility, penalty, deleted},
		ActivePaid:  map[uuid.UUID]decimal.Decimal{paidRent.ID: dec("1000")},
		LeaseNames:  map[uuid.UUID]string{leaseA: "Unit 1", leaseB: "Unit 2"},
	})

	assert.Equal(t, 4, r.BillingCount)
	assert.Equal(t, "2270.00", r.TotalBilled.StringFixed(2))
	assert.Equal(t, "40.00", r.TotalPenalties.StringFixed(2))
	assert.Equal(t, "1000.00", r.TotalCollected.StringFixed(2))
	assert.Equal(t, "1290.00", r.TotalOutstanding.StringFixed(2))
	// 1000 / 2290
	assert.Equal(t, "43.67", r.CollectionRate.StringFixed(2))
	assert.Equal(t, 2, r.OverdueCount)
	assert.Equal(t, 1, r.ByStatus[billing.StatusPaid])
	assert.Equal(t, 1, r.ByStatus[billing.StatusPenalized])
	assert.Equal(t, 1, r.ByStatus[billing.StatusOverdue])
	assert.Equal(t, 1, r.ByStatus[billing.StatusPending])
	assert.Equal(t, "2000", r.ByType[billing.TypeRent].String())

	require.Len(t, r.TopDelinquents, 2)
	assert.Equal(t, leaseB, r.TopDelinquents[0].LeaseID)
	assert.Equal(t, "Unit 2", r.TopDelinquents[0].LeaseName)
	assert.Equal(t, "1040.00", r.TopDelinquents[0].Outstanding.StringFixed(2))
	assert.Equal(t, 2, r.TopDelinquents[0].OverdueCount)
	assert.Equal(t, 0, r.TopDelinquents[1].OverdueCount)
}

func TestBuildRentReport_RevertedPaymentCountsAsUnpaid(t *testing.T) {
	lease := uuid.New()
	b := newTestBilling(t, lease, billing.TypeRent, "500", day(3, 1))
	require.NoError(t, b.ApplyAllocation(dec("500"), day(3, 1)))

	// reverted allocations are absent from ActivePaid
	r := BuildRentReport(RentReportInput{
		AsOf:       day(3, 2),
		Billings:   []*billing.Billing{b},
		ActivePaid: map[uuid.UUID]decimal.Decimal{},
		TopN:       1,
	})

	assert.True(t, r.TotalCollected.IsZero())
	assert.Equal(t, "500.00", r.TotalOutstanding.StringFixed(2))
	assert.Equal(t, 1, r.ByStatus[billing.StatusOverdue])
	assert.Len(t, r.TopDelinquents, 1)
}

func TestBuildRentReport_Empty(t *testing.T) {
	r := BuildRentReport(RentReportInput{AsOf: day(3, 2)})
	assert.True(t, r.CollectionRate.IsZero())
	assert.Empty(t, r.TopDelinquents)
}
