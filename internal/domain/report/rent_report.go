package report

import (
	"sort"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTopDelinquents is the number of delinquent leases listed when not specified
const DefaultTopDelinquents = 10

// RentReport is a read model summarizing billing and collection for a period
type RentReport struct {
	TenantID         uuid.UUID                        `json:"tenant_id"`
	PeriodStart      time.Time                        `json:"period_start"`
	PeriodEnd        time.Time                        `json:"period_end"`
	AsOf             time.Time                        `json:"as_of"`
	BillingCount     int                              `json:"billing_count"`
	TotalBilled      decimal.Decimal                  `json:"total_billed"`      // Sum of billing amounts
	TotalPenalties   decimal.Decimal                  `json:"total_penalties"`   // penalty_amount plus PENALTY billings
	TotalCollected   decimal.Decimal                  `json:"total_collected"`   // Non-reverted allocations only
	TotalOutstanding decimal.Decimal                  `json:"total_outstanding"` // Owed after collected
	CollectionRate   decimal.Decimal                  `json:"collection_rate"`   // Collected / (billed + penalty_amount) * 100
	OverdueCount     int                              `json:"overdue_count"`
	ByStatus         map[billing.Status]int           `json:"by_status"`
	ByType           map[billing.Type]decimal.Decimal `json:"by_type"`
	TopDelinquents   []LeaseDelinquency               `json:"top_delinquents"`
}

// LeaseDelinquency is one lease's unpaid position
type LeaseDelinquency struct {
	LeaseID      uuid.UUID       `json:"lease_id"`
	LeaseName    string          `json:"lease_name"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	OverdueCount int             `json:"overdue_count"`
	OldestDue    time.Time       `json:"oldest_due"`
}

// RentReportInput gathers what BuildRentReport needs. ActivePaid holds
// non-reverted allocation totals per billing; billings missing from it count as unpaid.
type RentReportInput struct {
	TenantID    uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	AsOf        time.Time
	Billings    []*billing.Billing
	ActivePaid  map[uuid.UUID]decimal.Decimal
	LeaseNames  map[uuid.UUID]string
	TopN        int
}

// BuildRentReport aggregates billings due within the period. Deleted billings are skipped.
func BuildRentReport(in RentReportInput) *RentReport {
	r := &RentReport{
		TenantID:         in.TenantID,
		PeriodStart:      in.PeriodStart,
		PeriodEnd:        in.PeriodEnd,
		AsOf:             in.AsOf,
		TotalBilled:      decimal.Zero,
		TotalPenalties:   decimal.Zero,
		TotalCollected:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		CollectionRate:   decimal.Zero,
		ByStatus:         make(map[billing.Status]int),
		ByType:           make(map[billing.Type]decimal.Decimal),
	}
	topN := in.TopN
	if topN <= 0 {
		topN = DefaultTopDelinquents
	}

	perLease := make(map[uuid.UUID]*LeaseDelinquency)
	expected := decimal.Zero
	for _, b := range in.Billings {
		if b.IsDeleted() {
			continue
		}
		paid := in.ActivePaid[b.ID]
		owed := b.Total().Sub(paid)
		if owed.IsNegative() {
			owed = decimal.Zero
		}

		r.BillingCount++
		r.TotalBilled = r.TotalBilled.Add(b.Amount)
		r.TotalPenalties = r.TotalPenalties.Add(b.PenaltyAmount)
		if b.Type == billing.TypePenalty {
			r.TotalPenalties = r.TotalPenalties.Add(b.Amount)
		}
		r.TotalCollected = r.TotalCollected.Add(paid)
		r.TotalOutstanding = r.TotalOutstanding.Add(owed)
		r.ByType[b.Type] = r.ByType[b.Type].Add(b.Amount)
		expected = expected.Add(b.Total())

		status := billing.DeriveStatus(b.Amount, paid, b.PenaltyAmount, b.DueDate, in.AsOf)
		r.ByStatus[status]++

		if !owed.IsPositive() {
			continue
		}
		d, ok := perLease[b.LeaseID]
		if !ok {
			d = &LeaseDelinquency{LeaseID: b.LeaseID, LeaseName: in.LeaseNames[b.LeaseID], Outstanding: decimal.Zero, OldestDue: b.DueDate}
			perLease[b.LeaseID] = d
		}
		d.Outstanding = d.Outstanding.Add(owed)
		if b.DueDate.Before(d.OldestDue) {
			d.OldestDue = b.DueDate
		}
		if in.AsOf.After(b.DueDate) {
			r.OverdueCount++
			d.OverdueCount++
		}
	}

	if expected.IsPositive() {
		r.CollectionRate = shared.Round2(r.TotalCollected.Div(expected).Mul(decimal.NewFromInt(100)))
	}
	r.TopDelinquents = topDelinquents(perLease, topN)
	return r
}

func topDelinquents(perLease map[uuid.UUID]*LeaseDelinquency, n int) []LeaseDelinquency {
	out := make([]LeaseDelinquency, 0, len(perLease))
	for _, d := range perLease {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Outstanding.Equal(out[j].Outstanding) {
			return out[i].Outstanding.GreaterThan(out[j].Outstanding)
		}
		return out[i].OldestDue.Before(out[j].OldestDue)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
