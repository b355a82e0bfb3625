package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/report"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RentReporter builds rent reports
type RentReporter interface {
	RentReport(ctx context.Context, tenantID uuid.UUID, from, to time.Time, topN int) (*report.RentReport, error)
}

// ReportHandler handles report endpoints
type ReportHandler struct {
	BaseHandler
	reports RentReporter
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports RentReporter) *ReportHandler {
	return &ReportHandler{BaseHandler: newBaseHandler(), reports: reports}
}

// RentReportQuery selects the report period. Both dates are inclusive and
// default to the current month.
type RentReportQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Top  int    `form:"top" binding:"omitempty,min=1,max=100"`
}

// RentReport serves GET /reports/rent
// Billed, collected and outstanding totals for billings due in the period. Reverted payments are excluded.
func (h *ReportHandler) RentReport(c *gin.Context) {
	r, ok := h.build(c)
	if !ok {
		return
	}
	h.Success(c, r)
}

// RentReportCSV serves GET /reports/rent.csv
func (h *ReportHandler) RentReportCSV(c *gin.Context) {
	r, ok := h.build(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ledger.WriteRentReportCSV(&buf, r); err != nil {
		h.HandleError(c, err)
		return
	}
	filename := fmt.Sprintf("rent-report-%s-%s.csv", dto.FormatDate(r.PeriodStart), dto.FormatDate(r.PeriodEnd))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ReportHandler) build(c *gin.Context) (*report.RentReport, bool) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return nil, false
	}
	var q RentReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindError(c, err)
		return nil, false
	}

	now := h.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, err := dto.ParseDateOr(q.From, monthStart)
	if err != nil {
		h.BadRequest(c, "from must be a date formatted as "+dto.DateLayout)
		return nil, false
	}
	to, err := dto.ParseDateOr(q.To, monthStart.AddDate(0, 1, -1))
	if err != nil {
		h.BadRequest(c, "to must be a date formatted as "+dto.DateLayout)
		return nil, false
	}
	top := q.Top
	if top == 0 {
		top = report.DefaultTopDelinquents
	}

	r, err := h.reports.RentReport(c.Request.Context(), tenantID, from, to, top)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return r, true
}
