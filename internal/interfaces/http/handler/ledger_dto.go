package handler

import (
	"errors"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// BillingResponse represents a billing in API responses
type BillingResponse struct {
	ID              string          `json:"id"`
	LeaseID         string          `json:"lease_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	PenaltyAmount   decimal.Decimal `json:"penalty_amount"`
	Balance         decimal.Decimal `json:"balance"`
	Status          string          `json:"status"`
	DueDate         string          `json:"due_date"`
	BillingDate     string          `json:"billing_date"`
	Notes           string          `json:"notes,omitempty"`
	SourceBillingID *string         `json:"source_billing_id,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BillingViewResponse is a billing with the penalty it carries as of a date
type BillingViewResponse struct {
	BillingResponse
	AsOf            string          `json:"as_of"`
	DaysLate        int             `json:"days_late"`
	ComputedPenalty decimal.Decimal `json:"computed_penalty"`
	DisplayPenalty  decimal.Decimal `json:"display_penalty"`
	DisplayBalance  decimal.Decimal `json:"display_balance"`
	DisplayStatus   string          `json:"display_status"`
}

// PenaltyConfigResponse represents a penalty rule
type PenaltyConfigResponse struct {
	ID                   string           `json:"id"`
	BillingType          string           `json:"billing_type"`
	GracePeriod          int              `json:"grace_period"`
	PenaltyPercentage    decimal.Decimal  `json:"penalty_percentage"`
	CompoundPeriod       int              `json:"compound_period"`
	MaxPenaltyPercentage *decimal.Decimal `json:"max_penalty_percentage,omitempty"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// PenaltyQuoteResponse is the penalty a billing would carry as of a date
type PenaltyQuoteResponse struct {
	BillingID string                 `json:"billing_id"`
	AsOf      string                 `json:"as_of"`
	DaysLate  int                    `json:"days_late"`
	Persisted decimal.Decimal        `json:"persisted_penalty"`
	Computed  decimal.Decimal        `json:"computed_penalty"`
	Config    *PenaltyConfigResponse `json:"config,omitempty"`
}

// ScheduleEntryResponse is one generated charge and the billing created for it
type ScheduleEntryResponse struct {
	BillingID string          `json:"billing_id"`
	DueDate   string          `json:"due_date"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
}

// ScheduleResponse is the result of generating a lease schedule
type ScheduleResponse struct {
	LeaseID      string                  `json:"lease_id"`
	LeaseBalance decimal.Decimal         `json:"lease_balance"`
	Total        decimal.Decimal         `json:"total"`
	Entries      []ScheduleEntryResponse `json:"entries"`
	Billings     []BillingResponse       `json:"billings"`
}

// AllocationResponse is the part of a payment applied to one billing
type AllocationResponse struct {
	BillingID string          `json:"billing_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID              string               `json:"id"`
	Amount          decimal.Decimal      `json:"amount"`
	Method          string               `json:"method"`
	PaidBy          string               `json:"paid_by"`
	PaidAt          time.Time            `json:"paid_at"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	HasReceipt      bool                 `json:"has_receipt"`
	Reverted        bool                 `json:"reverted"`
	RevertedAt      *time.Time           `json:"reverted_at,omitempty"`
	RevertReason    string               `json:"revert_reason,omitempty"`
	Allocations     []AllocationResponse `json:"allocations"`
	CreatedAt       time.Time            `json:"created_at"`
}

// PaymentResultResponse is an applied payment with every billing it changed
type PaymentResultResponse struct {
	Payment   PaymentResponse   `json:"payment"`
	Billings  []BillingResponse `json:"billings"`
	Penalties []BillingResponse `json:"penalties"`
}

// ReceiptURLResponse is a short-lived receipt download link
type ReceiptURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// ReadingResponse represents a meter reading
type ReadingResponse struct {
	ID              string          `json:"id"`
	MeterID         string          `json:"meter_id"`
	Value           decimal.Decimal `json:"value"`
	ReadingDate     string          `json:"reading_date"`
	PreviousReading decimal.Decimal `json:"previous_reading"`
	Consumption     decimal.Decimal `json:"consumption"`
	ReviewStatus    string          `json:"review_status"`
}

// UtilityBillingResponse lists the utility billings created for a period
type UtilityBillingResponse struct {
	MeterID     string            `json:"meter_id"`
	Consumption decimal.Decimal   `json:"consumption"`
	Cost        decimal.Decimal   `json:"cost"`
	Billings    []BillingResponse `json:"billings"`
}

func toBillingResponse(b *billing.Billing) BillingResponse {
	resp := BillingResponse{
		ID:            b.ID.String(),
		LeaseID:       b.LeaseID.String(),
		Type:          string(b.Type),
		Amount:        b.Amount,
		PaidAmount:    b.PaidAmount,
		PenaltyAmount: b.PenaltyAmount,
		Balance:       b.Balance,
		Status:        string(b.Status),
		DueDate:       dto.FormatDate(b.DueDate),
		BillingDate:   dto.FormatDate(b.BillingDate),
		Notes:         b.Notes,
		Version:       b.Version,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if b.SourceBillingID != nil {
		id := b.SourceBillingID.String()
		resp.SourceBillingID = &id
	}
	return resp
}

func toBillingResponses(bs []*billing.Billing) []BillingResponse {
	out := make([]BillingResponse, len(bs))
	for i, b := range bs {
		out[i] = toBillingResponse(b)
	}
	return out
}

func toBillingViewResponse(v billing.View) BillingViewResponse {
	return BillingViewResponse{
		BillingResponse: toBillingResponse(v.Billing),
		AsOf:            dto.FormatDate(v.AsOf),
		DaysLate:        v.DaysLate,
		ComputedPenalty: v.ComputedPenalty,
		DisplayPenalty:  v.DisplayPenalty,
		DisplayBalance:  v.DisplayBalance,
		DisplayStatus:   string(v.DisplayStatus),
	}
}

func toPenaltyConfigResponse(cfg *billing.PenaltyConfig) *PenaltyConfigResponse {
	if cfg == nil {
		return nil
	}
	return &PenaltyConfigResponse{
		ID:                   cfg.ID.String(),
		BillingType:          string(cfg.BillingType),
		GracePeriod:          cfg.GracePeriod,
		PenaltyPercentage:    cfg.PenaltyPercentage,
		CompoundPeriod:       cfg.CompoundPeriod,
		MaxPenaltyPercentage: cfg.MaxPenaltyPercentage,
		UpdatedAt:            cfg.UpdatedAt,
	}
}

func toPenaltyQuoteResponse(q *ledger.PenaltyQuote) PenaltyQuoteResponse {
	return PenaltyQuoteResponse{
		BillingID: q.BillingID.String(),
		AsOf:      dto.FormatDate(q.AsOf),
		DaysLate:  q.DaysLate,
		Persisted: q.Persisted,
		Computed:  q.Computed,
		Config:    toPenaltyConfigResponse(q.Config),
	}
}

func toScheduleResponse(r *ledger.ScheduleResult) ScheduleResponse {
	resp := ScheduleResponse{
		LeaseID:      r.Lease.ID.String(),
		LeaseBalance: r.Lease.Balance,
		Total:        r.Schedule.Total,
		Entries:      make([]ScheduleEntryResponse, len(r.Schedules)),
		Billings:     toBillingResponses(r.Billings),
	}
	for i, ps := range r.Schedules {
		resp.Entries[i] = ScheduleEntryResponse{
			BillingID: ps.BillingID.String(),
			DueDate:   dto.FormatDate(ps.DueDate),
			Amount:    ps.ExpectedAmount,
			Type:      string(ps.Type),
		}
	}
	return resp
}

func toPaymentResponse(p *payment.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID.String(),
		Amount:          p.Amount,
		Method:          string(p.Method),
		PaidBy:          p.PaidBy,
		PaidAt:          p.PaidAt,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		HasReceipt:      p.ReceiptURL != "",
		Reverted:        p.IsReverted(),
		RevertedAt:      p.RevertedAt,
		RevertReason:    p.RevertReason,
		Allocations:     make([]AllocationResponse, len(p.Allocations)),
		CreatedAt:       p.CreatedAt,
	}
	for i, a := range p.Allocations {
		resp.Allocations[i] = AllocationResponse{BillingID: a.BillingID.String(), Amount: a.Amount}
	}
	return resp
}

func toReadingResponse(r *metering.Reading) ReadingResponse {
	return ReadingResponse{
		ID:              r.ID.String(),
		MeterID:         r.MeterID.String(),
		Value:           r.Value,
		ReadingDate:     dto.FormatDate(r.ReadingDate),
		PreviousReading: r.PreviousReading,
		Consumption:     r.Consumption,
		ReviewStatus:    string(r.ReviewStatus),
	}
}

// StatusRefreshResponse summarizes a status recompute run
type StatusRefreshResponse struct {
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Results   []StatusRefreshItem `json:"results"`
}

// StatusRefreshItem is the result for one lease
type StatusRefreshItem struct {
	LeaseID string         `json:"lease_id"`
	Changed int            `json:"changed"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

func toStatusRefreshResponse(outcome shared.BatchOutcome[ledger.StatusRefresh]) StatusRefreshResponse {
	resp := StatusRefreshResponse{
		Succeeded: outcome.Succeeded,
		Failed:    outcome.Failed,
		Results:   make([]StatusRefreshItem, len(outcome.Results)),
	}
	for i, r := range outcome.Results {
		item := StatusRefreshItem{LeaseID: r.Value.LeaseID.String(), Changed: r.Value.Changed}
		if !r.OK() {
			info := &dto.ErrorInfo{Code: dto.ErrCodeInternal, Message: "status refresh failed"}
			var de *shared.DomainError
			if errors.As(r.Err, &de) && de.Kind != shared.KindDatabase {
				info.Code = de.Code
				info.Message = de.Message
			}
			item.Error = info
		}
		resp.Results[i] = item
	}
	return resp
}
