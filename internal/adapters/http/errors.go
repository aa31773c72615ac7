package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/dto"
)

// routeNotFound answers unknown paths with the standard error envelope
// instead of gin's plain-text 404.
func routeNotFound(c *gin.Context) {
	dto.AbortWithCode(c, dto.ErrorCodeNotFound, "route not found")
}

// methodNotAllowed answers known paths called with an unsupported method.
func methodNotAllowed(c *gin.Context) {
	dto.AbortWithCode(c, dto.ErrorCodeMethodNotAllowed, "method not allowed")
}
