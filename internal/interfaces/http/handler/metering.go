package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReadingRecorder validates and stores meter readings
type ReadingRecorder interface {
	SubmitReadings(ctx context.Context, tenantID uuid.UUID, candidates []metering.Candidate) (shared.BatchOutcome[*metering.Reading], error)
	ConfirmReading(ctx context.Context, tenantID, readingID uuid.UUID) (*metering.Reading, error)
}

// UtilityBiller turns a meter's consumption into billings
type UtilityBiller interface {
	CreateUtilityBillings(ctx context.Context, tenantID uuid.UUID, in ledger.UtilityBillingInput) (*ledger.UtilityBillingResult, error)
}

// MeteringHandler handles meter reading and utility billing endpoints
type MeteringHandler struct {
	BaseHandler
	readings ReadingRecorder
	utility  UtilityBiller
}

// NewMeteringHandler creates a new MeteringHandler
func NewMeteringHandler(readings ReadingRecorder, utility UtilityBiller) *MeteringHandler {
	return &MeteringHandler{BaseHandler: newBaseHandler(), readings: readings, utility: utility}
}

// ReadingRequest is one submitted value. confirmed accepts an anomalous jump.
type ReadingRequest struct {
	Value       *decimal.Decimal `json:"value" binding:"required"`
	ReadingDate string           `json:"reading_date" binding:"required,datetime=2006-01-02"`
	Confirmed   bool             `json:"confirmed"`
}

// SubmitReadingsRequest is a batch of readings for one meter
type SubmitReadingsRequest struct {
	Readings []ReadingRequest `json:"readings" binding:"required,min=1,max=100,dive"`
}

// UtilityBillingRequest is the consumption period to bill
type UtilityBillingRequest struct {
	PeriodStart string `json:"period_start" binding:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" binding:"required,datetime=2006-01-02"`
}

// SubmitReadings serves POST /meters/:id/readings
// The batch is stored only when every reading passes; otherwise each rejection is listed by index
func (h *MeteringHandler) SubmitReadings(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	meterID, ok := h.pathID(c)
	if !ok {
		return
	}
	var req SubmitReadingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	candidates := make([]metering.Candidate, len(req.Readings))
	for i, r := range req.Readings {
		// binding already checked the layout
		date, _ := dto.ParseDate(r.ReadingDate)
		candidates[i] = metering.Candidate{
			MeterID:     meterID,
			Value:       *r.Value,
			ReadingDate: date,
			Confirmed:   r.Confirmed,
		}
	}

	outcome, err := h.readings.SubmitReadings(c.Request.Context(), tenantID, candidates)
	if err != nil {
		var de *shared.DomainError
		if outcome.HasFailures() && errors.As(err, &de) {
			c.JSON(dto.StatusForKind(de.Kind), dto.Response{
				Success: false,
				Error: &dto.ErrorInfo{
					Code:      de.Code,
					Message:   de.Message,
					RequestID: requestID(c),
					Details:   batchDetails(outcome),
				},
			})
			return
		}
		h.HandleError(c, err)
		return
	}

	out := make([]ReadingResponse, 0, outcome.Succeeded)
	for _, r := range outcome.Values() {
		out = append(out, toReadingResponse(r))
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponseWithMeta(out, dto.Meta{Count: len(out)}))
}

// batchDetails lists the failed items of a rejected batch
func batchDetails[T any](outcome shared.BatchOutcome[T]) []dto.ValidationDetail {
	details := make([]dto.ValidationDetail, 0, outcome.Failed)
	for _, r := range outcome.Results {
		if r.OK() {
			continue
		}
		idx := r.Index
		d := dto.ValidationDetail{Index: &idx, Message: r.Err.Error()}
		var de *shared.DomainError
		if errors.As(r.Err, &de) {
			d.Code = de.Code
			d.Message = de.Message
		}
		details = append(details, d)
	}
	return details
}

// ConfirmReading serves POST /readings/:id/confirm
func (h *MeteringHandler) ConfirmReading(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	readingID, ok := h.pathID(c)
	if !ok {
		return
	}
	r, err := h.readings.ConfirmReading(c.Request.Context(), tenantID, readingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReadingResponse(r))
}

// CreateUtilityBillings serves POST /meters/:id/utility-billings
// Splits the period's cost evenly across the active leases of the metered location
func (h *MeteringHandler) CreateUtilityBillings(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	meterID, ok := h.pathID(c)
	if !ok {
		return
	}
	var req UtilityBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	start, _ := dto.ParseDate(req.PeriodStart)
	end, _ := dto.ParseDate(req.PeriodEnd)

	result, err := h.utility.CreateUtilityBillings(c.Request.Context(), tenantID, ledger.UtilityBillingInput{
		MeterID:     meterID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, UtilityBillingResponse{
		MeterID:     result.MeterID.String(),
		Consumption: result.Consumption,
		Cost:        result.Cost,
		Billings:    toBillingResponses(result.Billings),
	})
}
