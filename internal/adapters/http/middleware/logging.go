package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

const opsPrefix = "/-/"

// Logging writes one line per finished request through the context logger,
// which carries the request, correlation and trace IDs. Health and metrics
// paths under /-/ are skipped, as is anything in skipPaths. The query string
// is left out because search terms are user content.
func Logging(logger *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] || strings.HasPrefix(path, opsPrefix) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		requestLogger(c, logger).Log(c.Request.Context(), levelFor(status), "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.Int64("latency_ms", elapsed.Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// requestLogger prefers the logger RequestID attached to the context and
// falls back to the one the middleware was built with.
func requestLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	l := logging.FromContext(c.Request.Context())
	if l == logging.Default() && fallback != nil {
		return fallback
	}

	return l
}
