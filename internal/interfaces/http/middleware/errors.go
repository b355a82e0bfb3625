// Package middleware provides the gin middleware chain of the ledger API.
package middleware

import (
	"github.com/erp/rentledger/internal/infrastructure/logger"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// abortWithError stops the chain with the standard error envelope
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, c.GetString(logger.RequestIDKey)))
}
