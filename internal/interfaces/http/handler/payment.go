package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader deduplicates payment submissions
const IdempotencyKeyHeader = "Idempotency-Key"

// receiptContentTypes are the accepted receipt formats, by sniffed type
var receiptContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// PaymentProcessor applies, reverts and documents payments
type PaymentProcessor interface {
	ApplyPayment(ctx context.Context, tenantID uuid.UUID, in ledger.ApplyPaymentInput) (*ledger.PaymentResult, error)
	RevertPayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string) (*payment.Payment, error)
	GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*payment.Payment, error)
	AttachReceipt(ctx context.Context, tenantID uuid.UUID, upload ledger.ReceiptUpload, body io.Reader) (*payment.Payment, error)
	ReceiptURL(ctx context.Context, tenantID, paymentID uuid.UUID) (string, error)
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	payments       PaymentProcessor
	maxReceiptSize int64
	receiptURLTTL  time.Duration
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentProcessor, maxReceiptSize int64, receiptURLTTL time.Duration) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    newBaseHandler(),
		payments:       payments,
		maxReceiptSize: maxReceiptSize,
		receiptURLTTL:  receiptURLTTL,
	}
}

// AllocationRequest targets one billing. Without an amount the payment is
// spread oldest-due-first.
type AllocationRequest struct {
	BillingID string           `json:"billing_id" binding:"required,uuid"`
	Amount    *decimal.Decimal `json:"amount"`
}

// ApplyPaymentRequest is a payment submission
type ApplyPaymentRequest struct {
	Amount          *decimal.Decimal    `json:"amount" binding:"required"`
	Method          string              `json:"method" binding:"required,oneof=CASH GCASH BANK_TRANSFER SECURITY_DEPOSIT OTHER"`
	PaidBy          string              `json:"paid_by" binding:"required,max=255"`
	PaidAt          *time.Time          `json:"paid_at"`
	ReferenceNumber string              `json:"reference_number" binding:"max=100"`
	Notes           string              `json:"notes" binding:"max=1000"`
	Allocations     []AllocationRequest `json:"allocations" binding:"required,min=1,max=50,dive"`
}

// RevertPaymentRequest gives the reason for a reversal
type RevertPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// Apply serves POST /payments
// Allocates a payment across billings. Replays with the same Idempotency-Key are rejected.
func (h *PaymentHandler) Apply(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	in := ledger.ApplyPaymentInput{
		Details: payment.Details{
			Amount:          *req.Amount,
			Method:          payment.Method(req.Method),
			PaidBy:          req.PaidBy,
			PaidAt:          h.Now(),
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
		},
		Allocations:    make([]ledger.AllocationInput, len(req.Allocations)),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	}
	if req.PaidAt != nil {
		in.Details.PaidAt = *req.PaidAt
	}
	if p, ok := middleware.GetPrincipal(c); ok {
		in.Details.CreatedBy = &p.UserID
	}
	for i, a := range req.Allocations {
		// binding already checked the uuid format
		in.Allocations[i] = ledger.AllocationInput{BillingID: uuid.MustParse(a.BillingID), Amount: a.Amount}
	}

	result, err := h.payments.ApplyPayment(c.Request.Context(), tenantID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, PaymentResultResponse{
		Payment:   toPaymentResponse(result.Payment),
		Billings:  toBillingResponses(result.Billings),
		Penalties: toBillingResponses(result.Penalties),
	})
}

// Get serves GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}
	p, err := h.payments.GetPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(p))
}

// Revert serves POST /payments/:id/revert
// Tags the payment reverted and restores the balances it paid down
func (h *PaymentHandler) Revert(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}
	var req RevertPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	p, err := h.payments.RevertPayment(c.Request.Context(), tenantID, paymentID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(p))
}

// UploadReceipt serves POST /payments/:id/receipt
func (h *PaymentHandler) UploadReceipt(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Receipt exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "A receipt file is required in the 'file' field")
		return
	}
	if h.maxReceiptSize > 0 && fh.Size > h.maxReceiptSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Receipt exceeds maximum allowed size")
		return
	}

	body, contentType, err := sniffReceipt(fh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer body.Close()
	if !receiptContentTypes[contentType] {
		h.BadRequest(c, "Receipt must be a JPEG, PNG, WebP or PDF file")
		return
	}

	p, err := h.payments.AttachReceipt(c.Request.Context(), tenantID, ledger.ReceiptUpload{
		PaymentID:   paymentID,
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
	}, body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(p))
}

// ReceiptURL serves GET /payments/:id/receipt
func (h *PaymentHandler) ReceiptURL(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}
	url, err := h.payments.ReceiptURL(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReceiptURLResponse{URL: url, ExpiresIn: int(h.receiptURLTTL.Seconds())})
}

type readCloser struct {
	io.Reader
	io.Closer
}

// sniffReceipt opens the upload and detects its type from the leading bytes.
// The returned reader still yields the whole file.
func sniffReceipt(fh *multipart.FileHeader) (io.ReadCloser, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open receipt upload: %w", err)
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, "", fmt.Errorf("read receipt upload: %w", err)
	}
	head = head[:n]
	return readCloser{Reader: io.MultiReader(bytes.NewReader(head), f), Closer: f}, http.DetectContentType(head), nil
}
