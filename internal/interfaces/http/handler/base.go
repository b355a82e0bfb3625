package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/logger"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	// now is the clock used for default as-of dates
	now func() time.Time
}

func newBaseHandler() BaseHandler {
	return BaseHandler{now: time.Now}
}

// Now returns the handler clock
func (h *BaseHandler) Now() time.Time {
	if h.now == nil {
		return time.Now()
	}
	return h.now()
}

// SetClock overrides the clock, for tests
func (h *BaseHandler) SetClock(now func() time.Time) {
	h.now = now
}

func requestID(c *gin.Context) string {
	return c.GetString(logger.RequestIDKey)
}

// tenantID returns the caller's tenant. The route is always behind
// Authenticate, so a missing principal is a wiring bug.
func (h *BaseHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok || p.TenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return p.TenantID, true
}

// pathID parses the :id path parameter
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid id format")
		return uuid.Nil, false
	}
	return id, true
}

// asOf parses the as_of query parameter, defaulting to today
func (h *BaseHandler) asOf(c *gin.Context) (time.Time, bool) {
	t, err := dto.ParseDateOr(c.Query("as_of"), h.Now())
	if err != nil {
		h.BadRequest(c, "as_of must be a date formatted as "+dto.DateLayout)
		return time.Time{}, false
	}
	return t, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a list response
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, meta dto.Meta) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, meta))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, requestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts an engine error into the error envelope. Domain errors
// keep their code and message; anything else becomes a generic 500 so that
// storage details never reach the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.StatusForKind(domainErr.Kind)
		if status >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("Request failed", zap.String("code", domainErr.Code), zap.Error(err))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Unexpected error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
