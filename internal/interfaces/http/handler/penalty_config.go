package handler

import (
	"context"
	"strings"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PenaltyRules reads and replaces a tenant's penalty configuration
type PenaltyRules interface {
	ListPenaltyConfigs(ctx context.Context, tenantID uuid.UUID) ([]billing.PenaltyConfig, error)
	SetPenaltyConfig(ctx context.Context, tenantID uuid.UUID, in ledger.PenaltyConfigInput) (*billing.PenaltyConfig, error)
}

// PenaltyConfigHandler handles penalty configuration endpoints
type PenaltyConfigHandler struct {
	BaseHandler
	rules PenaltyRules
}

// NewPenaltyConfigHandler creates a new PenaltyConfigHandler
func NewPenaltyConfigHandler(rules PenaltyRules) *PenaltyConfigHandler {
	return &PenaltyConfigHandler{BaseHandler: newBaseHandler(), rules: rules}
}

// SetPenaltyConfigRequest is the penalty rule for one billing type.
// compound_period 0 means a flat penalty.
type SetPenaltyConfigRequest struct {
	GracePeriod          int              `json:"grace_period" binding:"min=0"`
	PenaltyPercentage    *decimal.Decimal `json:"penalty_percentage" binding:"required"`
	CompoundPeriod       int              `json:"compound_period" binding:"min=0"`
	MaxPenaltyPercentage *decimal.Decimal `json:"max_penalty_percentage"`
}

// List serves GET /penalty-configs
func (h *PenaltyConfigHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	cfgs, err := h.rules.ListPenaltyConfigs(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]*PenaltyConfigResponse, len(cfgs))
	for i := range cfgs {
		out[i] = toPenaltyConfigResponse(&cfgs[i])
	}
	h.Success(c, out)
}

// Set serves PUT /penalty-configs/:type
func (h *PenaltyConfigHandler) Set(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	typ := billing.Type(strings.ToUpper(c.Param("type")))
	if !typ.IsValid() {
		h.BadRequest(c, "Unknown billing type "+c.Param("type"))
		return
	}
	var req SetPenaltyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	cfg, err := h.rules.SetPenaltyConfig(c.Request.Context(), tenantID, ledger.PenaltyConfigInput{
		BillingType:          typ,
		GracePeriod:          req.GracePeriod,
		PenaltyPercentage:    *req.PenaltyPercentage,
		CompoundPeriod:       req.CompoundPeriod,
		MaxPenaltyPercentage: req.MaxPenaltyPercentage,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPenaltyConfigResponse(cfg))
}
