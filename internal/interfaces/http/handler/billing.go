package handler

import (
	"context"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingLedger quotes, deletes and adjusts single billings
type BillingLedger interface {
	ComputePenalty(ctx context.Context, tenantID, billingID uuid.UUID, asOf time.Time) (*ledger.PenaltyQuote, error)
	DeleteBilling(ctx context.Context, tenantID, billingID uuid.UUID) error
	SetPenalty(ctx context.Context, tenantID, billingID uuid.UUID, penalty decimal.Decimal) (*billing.Billing, error)
	RecomputeLeaseStatuses(ctx context.Context, tenantID uuid.UUID, leaseIDs []uuid.UUID) shared.BatchOutcome[ledger.StatusRefresh]
}

// BillingHandler handles single-billing endpoints
type BillingHandler struct {
	BaseHandler
	billings BillingLedger
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billings BillingLedger) *BillingHandler {
	return &BillingHandler{BaseHandler: newBaseHandler(), billings: billings}
}

// SetPenaltyRequest overrides a billing's persisted penalty
type SetPenaltyRequest struct {
	PenaltyAmount *decimal.Decimal `json:"penalty_amount" binding:"required"`
}

// RefreshStatusesRequest lists the leases whose billing statuses are re-derived
type RefreshStatusesRequest struct {
	LeaseIDs []string `json:"lease_ids" binding:"required,min=1,max=500,dive,uuid"`
}

// Penalty serves GET /billings/:id/penalty
func (h *BillingHandler) Penalty(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	billingID, ok := h.pathID(c)
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	quote, err := h.billings.ComputePenalty(c.Request.Context(), tenantID, billingID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPenaltyQuoteResponse(quote))
}

// Delete serves DELETE /billings/:id
// Soft-deletes a billing without payments
func (h *BillingHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	billingID, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.billings.DeleteBilling(c.Request.Context(), tenantID, billingID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SetPenalty serves PUT /billings/:id/penalty
func (h *BillingHandler) SetPenalty(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	billingID, ok := h.pathID(c)
	if !ok {
		return
	}
	var req SetPenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	b, err := h.billings.SetPenalty(c.Request.Context(), tenantID, billingID, *req.PenaltyAmount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBillingResponse(b))
}

// RefreshStatuses serves POST /billings/statuses/refresh
// Each lease is refreshed on its own; failures are reported per lease
func (h *BillingHandler) RefreshStatuses(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req RefreshStatusesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	leaseIDs := make([]uuid.UUID, len(req.LeaseIDs))
	for i, raw := range req.LeaseIDs {
		// binding already checked the format
		leaseIDs[i] = uuid.MustParse(raw)
	}

	outcome := h.billings.RecomputeLeaseStatuses(c.Request.Context(), tenantID, leaseIDs)
	h.Success(c, toStatusRefreshResponse(outcome))
}
