package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods   = "GET, POST, OPTIONS"
	corsDefaultHeaders = "Content-Type"
	corsMaxAge         = "3600"
	corsExposeHeaders  = HeaderRequestID + ", " + HeaderCorrelationID + ", X-Trace-ID"
)

// CORS returns middleware that lets browsers call the API from other origins.
// An empty list or "*" allows any origin. Requested headers are echoed back,
// so any header is accepted. Preflight requests end here with 204.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAny := len(allowedOrigins) == 0

	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAny = true
		}

		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()

		switch {
		case allowAny:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}

		h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		requested := c.GetHeader("Access-Control-Request-Headers")
		if requested == "" {
			requested = corsDefaultHeaders
		}

		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", requested)
		h.Set("Access-Control-Max-Age", corsMaxAge)
		h.Add("Vary", "Access-Control-Request-Headers")

		c.AbortWithStatus(http.StatusNoContent)
	}
}
