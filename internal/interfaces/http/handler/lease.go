package handler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/report"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleGenerator creates a lease's billing schedule
type ScheduleGenerator interface {
	GenerateSchedule(ctx context.Context, tenantID uuid.UUID, in ledger.GenerateScheduleInput) (*ledger.ScheduleResult, error)
}

// LeaseBillingReader reads a lease's billings and balance position
type LeaseBillingReader interface {
	ListLeaseBillings(ctx context.Context, tenantID, leaseID uuid.UUID, filter billing.Filter, asOf time.Time) ([]billing.View, error)
	LeaseBalanceStatus(ctx context.Context, tenantID, leaseID uuid.UUID, asOf time.Time) (*report.LeaseBalanceStatus, error)
}

// LeaseHandler handles lease-scoped ledger endpoints
type LeaseHandler struct {
	BaseHandler
	schedules ScheduleGenerator
	billings  LeaseBillingReader
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(schedules ScheduleGenerator, billings LeaseBillingReader) *LeaseHandler {
	return &LeaseHandler{
		BaseHandler: newBaseHandler(),
		schedules:   schedules,
		billings:    billings,
	}
}

// GenerateScheduleRequest asks for a lease schedule. prorated_amount wins over auto_prorate.
type GenerateScheduleRequest struct {
	ProratedAmount *decimal.Decimal `json:"prorated_amount"`
	AutoProrate    bool             `json:"auto_prorate"`
}

// ListBillingsQuery filters a lease's billings
type ListBillingsQuery struct {
	AsOf     string   `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
	Types    []string `form:"type" binding:"omitempty,dive,oneof=RENT UTILITY SECURITY_DEPOSIT PENALTY"`
	Statuses []string `form:"status" binding:"omitempty,dive,oneof=PENDING PARTIAL PAID OVERDUE PENALIZED"`
	DueFrom  string   `form:"due_from" binding:"omitempty,datetime=2006-01-02"`
	DueTo    string   `form:"due_to" binding:"omitempty,datetime=2006-01-02"`
	Page     int      `form:"page" binding:"omitempty,min=1"`
	PageSize int      `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy  string   `form:"order_by" binding:"omitempty,oneof=due_date billing_date amount balance status billing_type created_at"`
	OrderDir string   `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// GenerateSchedule serves POST /leases/:id/schedule
// Replaces unpaid rent billings with a fresh schedule for the lease term
func (h *LeaseHandler) GenerateSchedule(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	leaseID, ok := h.pathID(c)
	if !ok {
		return
	}

	// the body is optional
	var req GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.schedules.GenerateSchedule(c.Request.Context(), tenantID, ledger.GenerateScheduleInput{
		LeaseID:        leaseID,
		ProratedAmount: req.ProratedAmount,
		AutoProrate:    req.AutoProrate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toScheduleResponse(result))
}

// ListBillings serves GET /leases/:id/billings
// Each billing carries the penalty it would have as of the given date; nothing is persisted
func (h *LeaseHandler) ListBillings(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	leaseID, ok := h.pathID(c)
	if !ok {
		return
	}

	var q ListBillingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	asOf, err := dto.ParseDateOr(q.AsOf, h.Now())
	if err != nil {
		h.BadRequest(c, "as_of must be a date formatted as "+dto.DateLayout)
		return
	}
	filter, err := q.toFilter()
	if err != nil {
		h.BadRequest(c, "due_from and due_to must be dates formatted as "+dto.DateLayout)
		return
	}

	views, err := h.billings.ListLeaseBillings(c.Request.Context(), tenantID, leaseID, filter, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]BillingViewResponse, len(views))
	for i, v := range views {
		out[i] = toBillingViewResponse(v)
	}
	h.SuccessWithMeta(c, out, dto.Meta{
		Count:    len(out),
		Page:     filter.Page,
		PageSize: filter.PageSize,
		AsOf:     dto.FormatDate(asOf),
	})
}

func (q ListBillingsQuery) toFilter() (billing.Filter, error) {
	f := billing.Filter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
		},
	}
	if f.PageSize > 0 && f.Page == 0 {
		f.Page = 1
	}
	for _, t := range q.Types {
		f.Types = append(f.Types, billing.Type(t))
	}
	for _, s := range q.Statuses {
		f.Statuses = append(f.Statuses, billing.Status(s))
	}
	if q.DueFrom != "" {
		d, err := dto.ParseDate(q.DueFrom)
		if err != nil {
			return f, err
		}
		f.DueFrom = &d
	}
	if q.DueTo != "" {
		d, err := dto.ParseDate(q.DueTo)
		if err != nil {
			return f, err
		}
		f.DueTo = &d
	}
	return f, nil
}

// BalanceStatus serves GET /leases/:id/balance-status
// Overdue, pending and partial balances split into regular and utility billings
func (h *LeaseHandler) BalanceStatus(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	leaseID, ok := h.pathID(c)
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	status, err := h.billings.LeaseBalanceStatus(c.Request.Context(), tenantID, leaseID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
