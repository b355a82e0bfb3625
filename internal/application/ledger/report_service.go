package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/report"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReportService builds read-only ledger reports
type ReportService struct {
	deps Deps
}

// NewReportService creates a ReportService
func NewReportService(deps Deps) *ReportService {
	return &ReportService{deps: deps.withDefaults()}
}

// RentReport summarizes billings due in [from, to]. Collections count only
// allocations of payments that were not reverted.
func (s *ReportService) RentReport(ctx context.Context, tenantID uuid.UUID, from, to time.Time, topN int) (*report.RentReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "rent")
	defer span.End()

	from, to = shared.DateOf(from), shared.DateOf(to)
	if to.Before(from) {
		return nil, shared.NewValidationError("INVALID_PERIOD", "report end is before report start")
	}

	billings, err := s.deps.Repos.Billings.FindByDueRange(ctx, tenantID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load billings: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(billings))

	billingIDs := make([]uuid.UUID, len(billings))
	leaseSet := make(map[uuid.UUID]struct{})
	for i, b := range billings {
		billingIDs[i] = b.ID
		leaseSet[b.LeaseID] = struct{}{}
	}

	paid := map[uuid.UUID]decimal.Decimal{}
	if len(billingIDs) > 0 {
		paid, err = s.deps.Repos.Payments.ActiveAllocatedTotals(ctx, tenantID, billingIDs)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load allocations: %w", err)
		}
	}

	leaseIDs := make([]uuid.UUID, 0, len(leaseSet))
	for id := range leaseSet {
		leaseIDs = append(leaseIDs, id)
	}
	names := make(map[uuid.UUID]string, len(leaseIDs))
	if len(leaseIDs) > 0 {
		leases, err := s.deps.Repos.Leases.FindByIDs(ctx, tenantID, leaseIDs)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load leases: %w", err)
		}
		for _, l := range leases {
			names[l.ID] = l.Name
		}
	}

	return report.BuildRentReport(report.RentReportInput{
		TenantID:    tenantID,
		PeriodStart: from,
		PeriodEnd:   to,
		AsOf:        s.deps.Now(),
		Billings:    billings,
		ActivePaid:  paid,
		LeaseNames:  names,
		TopN:        topN,
	}), nil
}

// WriteRentReportCSV renders a rent report as CSV. Amounts use English digit
// grouping with two decimals.
func WriteRentReportCSV(w io.Writer, r *report.RentReport) error {
	p := message.NewPrinter(language.English)
	money := func(d decimal.Decimal) string {
		return p.Sprintf("%.2f", d.InexactFloat64())
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "key", "value"},
		{"period", "start", r.PeriodStart.Format(time.DateOnly)},
		{"period", "end", r.PeriodEnd.Format(time.DateOnly)},
		{"totals", "billings", p.Sprintf("%d", r.BillingCount)},
		{"totals", "billed", money(r.TotalBilled)},
		{"totals", "penalties", money(r.TotalPenalties)},
		{"totals", "collected", money(r.TotalCollected)},
		{"totals", "outstanding", money(r.TotalOutstanding)},
		{"totals", "collection_rate", r.CollectionRate.StringFixed(2) + "%"},
		{"totals", "overdue", p.Sprintf("%d", r.OverdueCount)},
	}

	statuses := make([]string, 0, len(r.ByStatus))
	for st := range r.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		rows = append(rows, []string{"status", st, p.Sprintf("%d", r.ByStatus[billing.Status(st)])})
	}

	for _, d := range r.TopDelinquents {
		name := d.LeaseName
		if name == "" {
			name = d.LeaseID.String()
		}
		rows = append(rows, []string{"delinquent", name, money(d.Outstanding)})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write report csv: %w", err)
	}
	return nil
}
