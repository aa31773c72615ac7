package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// syncBuffer guards a bytes.Buffer shared by a handler and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) entries(t *testing.T) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}

	return out
}

// withLogger installs a JSON logger writing to buf as the context logger.
func withLogger(buf io.Writer) gin.HandlerFunc {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		headerID string
	}{
		{name: "generates UUID when no header present"},
		{name: "passes through existing header", headerID: "existing-req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf syncBuffer
			var capturedID string

			router := gin.New()
			router.Use(withLogger(&buf), RequestID())
			router.GET("/test", func(c *gin.Context) {
				capturedID = GetRequestID(c)
				logging.FromContext(c.Request.Context()).Info("handled")
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.headerID != "" {
				req.Header.Set(HeaderRequestID, tt.headerID)
			}

			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, w.Header().Get(HeaderRequestID), capturedID)

			if tt.headerID != "" {
				assert.Equal(t, tt.headerID, capturedID)
			} else {
				_, err := uuid.Parse(capturedID)
				assert.NoError(t, err, "generated ID should be a UUID")
			}

			entries := buf.entries(t)
			require.Len(t, entries, 1)
			assert.Equal(t, capturedID, entries[0]["request_id"])
		})
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	var capturedID string

	router := gin.New()
	router.Use(withLogger(&buf), CorrelationID())
	router.GET("/test", func(c *gin.Context) {
		capturedID = GetCorrelationID(c)
		logging.FromContext(c.Request.Context()).Info("handled")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderCorrelationID, "corr-abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, "corr-abc", capturedID)
	assert.Equal(t, "corr-abc", w.Header().Get(HeaderCorrelationID))

	entries := buf.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "corr-abc", entries[0]["correlation_id"])
}

func TestGetIDs_WithoutMiddleware(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		target    string
		status    int
		wantLog   bool
		wantLevel string
	}{
		{name: "logs successful request", path: "/api/quotes", target: "/api/quotes", status: http.StatusOK, wantLog: true, wantLevel: "INFO"},
		{name: "logs 4xx at warn", path: "/api/bad", target: "/api/bad", status: http.StatusBadRequest, wantLog: true, wantLevel: "WARN"},
		{name: "logs 5xx at error", path: "/api/fail", target: "/api/fail", status: http.StatusServiceUnavailable, wantLog: true, wantLevel: "ERROR"},
		{name: "skips ops paths", path: "/-/ready", target: "/-/ready", status: http.StatusOK},
		{name: "skips configured paths", path: "/favicon.ico", target: "/favicon.ico", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf syncBuffer

			router := gin.New()
			router.Use(withLogger(&buf), Logging(nil, "/favicon.ico"))
			router.GET(tt.path, func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.Equal(t, tt.status, w.Code)

			entries := buf.entries(t)
			if !tt.wantLog {
				assert.Empty(t, entries)
				return
			}

			require.Len(t, entries, 1)
			assert.Equal(t, "request completed", entries[0]["msg"])
			assert.Equal(t, tt.wantLevel, entries[0]["level"])
			assert.Equal(t, float64(tt.status), entries[0]["status"])
			assert.Equal(t, tt.path, entries[0]["route"])
		})
	}
}

func TestLogging_OmitsQueryString(t *testing.T) {
	t.Parallel()

	var buf syncBuffer

	router := gin.New()
	router.Use(withLogger(&buf), Logging(nil))
	router.GET("/api/quotes", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quotes?search=private+words", nil))

	output := buf.String()
	assert.Contains(t, output, `"path":"/api/quotes"`)
	assert.NotContains(t, output, "private")
}

func TestLogging_FallsBackToGivenLogger(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(Logging(logger))
	router.GET("/api/quotes", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/quotes", nil))

	assert.Contains(t, buf.String(), "request completed")
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("normal request passes through", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("panicking handler returns error envelope", func(t *testing.T) {
		t.Parallel()

		var buf syncBuffer

		router := gin.New()
		router.Use(withLogger(&buf), Recovery(logger))
		router.GET("/test", func(c *gin.Context) { panic("something went wrong") })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, "req-panic")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
		assert.Equal(t, "req-panic", resp.TraceID)
		assert.NotContains(t, w.Body.String(), "something went wrong")

		output := buf.String()
		assert.Contains(t, output, "panic recovered")
		assert.Contains(t, output, "something went wrong")
	})
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("sets context deadline", func(t *testing.T) {
		t.Parallel()

		var deadline time.Time
		var hasDeadline bool

		router := gin.New()
		router.Use(Timeout(5 * time.Second))
		router.GET("/test", func(c *gin.Context) {
			deadline, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		require.True(t, hasDeadline)
		assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
	})

	t.Run("zero disables deadline", func(t *testing.T) {
		t.Parallel()

		var hasDeadline bool

		router := gin.New()
		router.Use(Timeout(0))
		router.GET("/test", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.False(t, hasDeadline)
	})

	t.Run("expired deadline maps to 504", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Timeout(time.Millisecond))
		router.GET("/test", func(c *gin.Context) {
			<-c.Request.Context().Done()
			dto.HandleError(c, c.Request.Context().Err())
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrorCodeTimeout)
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	newRouter := func(origins []string) *gin.Engine {
		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/api/quotes", func(c *gin.Context) { c.JSON(http.StatusOK, []string{}) })
		return router
	}

	t.Run("allows any origin by default", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req.Header.Set("Origin", "https://example.com")
		newRouter(nil).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight returns 204 and echoes headers", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/quotes", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Custom")
		newRouter([]string{"*"}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Equal(t, "Content-Type, X-Custom", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Empty(t, w.Body.String())
	})

	t.Run("preflight without requested headers allows content type", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/quotes", nil)
		newRouter(nil).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("restricted origins", func(t *testing.T) {
		t.Parallel()

		router := newRouter([]string{"https://quotes.example.com"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req.Header.Set("Origin", "https://quotes.example.com")
		router.ServeHTTP(w, req)
		assert.Equal(t, "https://quotes.example.com", w.Header().Get("Access-Control-Allow-Origin"))

		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMiddlewareChain_ContextPropagation(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	var seen context.Context

	router := gin.New()
	router.Use(withLogger(&buf), Recovery(nil), RequestID(), CorrelationID(), Logging(nil), Timeout(time.Second))
	router.GET("/api/quotes", func(c *gin.Context) {
		seen = c.Request.Context()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderCorrelationID, "corr-1")
	router.ServeHTTP(w, req)

	require.NotNil(t, seen)
	_, hasDeadline := seen.Deadline()
	assert.True(t, hasDeadline)

	entries := buf.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["request_id"])
	assert.Equal(t, "corr-1", entries[0]["correlation_id"])
}
