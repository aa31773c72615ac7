package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotes-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotes-service/internal/adapters/storage"
	"github.com/jsamuelsen/quotes-service/internal/app"
	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: 1 << 20,
	}
}

// newStack wires the full router over an in-memory SQLite pool.
func newStack(t *testing.T) (*gin.Engine, *storage.DB) {
	t.Helper()

	db, err := storage.Open(context.Background(), storage.Config{Driver: storage.DriverSQLite, DSN: ":memory:"}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := ports.NewHealthRegistry(ports.WithCheckTimeout(time.Second))
	require.NoError(t, registry.Register(db))

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Repository: storage.NewQuoteRepository(db),
		Filter:     domain.NewModerationFilter("darn,heck"),
		Logger:     discardLogger(),
	})

	engine := gin.New()
	SetupRouter(engine, RouterConfig{
		Logger:         discardLogger(),
		ServiceName:    "quotes-test",
		HealthHandler:  handlers.NewHealthHandler(registry, handlers.BuildInfo{Version: "test"}),
		QuoteHandler:   handlers.NewQuoteHandler(service),
		AllowedOrigins: []string{"*"},
		Timeout:        5 * time.Second,
	})

	return engine, db
}

func serve(engine *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return w
}

func TestServerNew(t *testing.T) {
	cfg := testServerConfig()
	logger := discardLogger()

	srv := New(cfg, logger)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.engine)
	assert.NotNil(t, srv.httpServer)
	assert.Equal(t, cfg, srv.config)
	assert.Equal(t, logger, srv.logger)
	assert.IsType(t, &gin.Engine{}, srv.Engine())
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		name         string
		host         string
		port         int
		expectedAddr string
	}{
		{name: "default port", host: "0.0.0.0", port: 3000, expectedAddr: "0.0.0.0:3000"},
		{name: "localhost", host: "localhost", port: 8080, expectedAddr: "localhost:8080"},
		{name: "dynamic port before start", host: "127.0.0.1", port: 0, expectedAddr: "127.0.0.1:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			cfg.Host = tt.host
			cfg.Port = tt.port

			assert.Equal(t, tt.expectedAddr, New(cfg, discardLogger()).Addr())
		})
	}
}

func TestServerStartShutdown(t *testing.T) {
	srv := New(testServerConfig(), discardLogger())
	srv.Engine().GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	errCh := srv.Start()

	addr := srv.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr, "bound address should carry the real port")

	resp, err := http.Get("http://" + addr + "/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	_, ok := <-errCh
	assert.False(t, ok, "error channel should be closed")
}

func TestServerStart_BindFailure(t *testing.T) {
	first := New(testServerConfig(), discardLogger())
	firstErrs := first.Start()
	t.Cleanup(func() {
		_ = first.Shutdown(context.Background())
		<-firstErrs
	})

	var err error

	cfg := testServerConfig()
	host, port, found := strings.Cut(first.Addr(), ":")
	require.True(t, found)
	cfg.Host = host
	cfg.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	errCh := New(cfg, discardLogger()).Start()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listening on")
	case <-time.After(2 * time.Second):
		t.Fatal("expected bind failure")
	}
}

func TestMaxBodySizeMiddleware(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxRequestSize = 100

	srv := New(cfg, discardLogger())
	srv.Engine().POST("/test", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": len(body)})
	})

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("a", 50))))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("a", 500))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSetupRouter_WithoutHandlers(t *testing.T) {
	engine := gin.New()

	require.NotPanics(t, func() {
		SetupRouter(engine, RouterConfig{Logger: discardLogger(), ServiceName: "quotes-test"})
	})

	w := serve(engine, http.MethodGet, "/api/quotes", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_QuoteLifecycle(t *testing.T) {
	engine, _ := newStack(t)

	w := serve(engine, http.MethodGet, "/api/quotes/random", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "random on an empty store")

	w = serve(engine, http.MethodPost, "/api/quotes", `{"quote":"  Stay hungry.  ","author":" Steve Jobs "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created dto.QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "  Stay hungry.  ", created.Quote)
	require.NotNil(t, created.Author)
	assert.Equal(t, "Steve Jobs", *created.Author)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	w = serve(engine, http.MethodGet, "/api/quotes/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var fetched dto.QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.True(t, created.CreatedAt.Equal(fetched.CreatedAt))

	w = serve(engine, http.MethodPost, "/api/quotes", `{"quote":"Anonymous wisdom"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"author":null`)

	w = serve(engine, http.MethodGet, "/api/quotes?search=HUNGRY", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listed []dto.QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	w = serve(engine, http.MethodGet, "/api/quotes?page=2&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	w = serve(engine, http.MethodGet, "/api/quotes?page=9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(engine, http.MethodGet, "/api/quotes/random", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ListClampsLimitToMax(t *testing.T) {
	engine, db := newStack(t)
	repo := storage.NewQuoteRepository(db)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range domain.MaxLimit + 5 {
		ts := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(context.Background(), &domain.Quote{
			ID:        fmt.Sprintf("q-%03d", i),
			Text:      fmt.Sprintf("quote number %d", i),
			CreatedAt: ts,
			UpdatedAt: ts,
		}))
	}

	w := serve(engine, http.MethodGet, "/api/quotes?limit=500", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page []dto.QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, domain.MaxLimit)
	assert.Equal(t, "q-104", page[0].ID)
	assert.Equal(t, "q-005", page[domain.MaxLimit-1].ID)

	w = serve(engine, http.MethodGet, "/api/quotes?limit=500&page=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page, 5)
}

func TestRouter_Rejections(t *testing.T) {
	engine, _ := newStack(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{name: "forbidden word", method: http.MethodPost, target: "/api/quotes", body: `{"quote":"well DARN it"}`, status: http.StatusBadRequest, code: dto.ErrorCodeValidation},
		{name: "missing quote", method: http.MethodPost, target: "/api/quotes", body: `{"author":"x"}`, status: http.StatusBadRequest, code: dto.ErrorCodeValidation},
		{name: "malformed json", method: http.MethodPost, target: "/api/quotes", body: `{"quote":`, status: http.StatusBadRequest, code: dto.ErrorCodeBadRequest},
		{name: "non-numeric page", method: http.MethodGet, target: "/api/quotes?page=abc", status: http.StatusBadRequest},
		{name: "unknown id", method: http.MethodGet, target: "/api/quotes/does-not-exist", status: http.StatusNotFound, code: dto.ErrorCodeNotFound},
		{name: "unknown route", method: http.MethodGet, target: "/api/authors", status: http.StatusNotFound, code: dto.ErrorCodeNotFound},
		{name: "unsupported method", method: http.MethodDelete, target: "/api/quotes", status: http.StatusMethodNotAllowed, code: dto.ErrorCodeMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, tt.method, tt.target, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			if tt.code != "" {
				assert.Equal(t, tt.code, resp.Error.Code)
			}

			assert.NotEmpty(t, resp.TraceID, "request ID stands in for the trace ID")
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine, _ := newStack(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/quotes", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	engine, db := newStack(t)

	w := serve(engine, http.MethodGet, "/-/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodGet, "/-/build", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	w = serve(engine, http.MethodGet, "/-/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database"`)

	serve(engine, http.MethodGet, "/api/quotes", "")

	w = serve(engine, http.MethodGet, "/-/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quotes_storage_operation_duration_seconds")

	require.NoError(t, db.Close())

	w = serve(engine, http.MethodGet, "/-/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(engine, http.MethodGet, "/api/quotes", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeUnavailable)
}

func TestRouter_EchoesRequestIDs(t *testing.T) {
	engine, _ := newStack(t)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("X-Correlation-ID", "corr-42")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "corr-42", w.Header().Get("X-Correlation-ID"))
}
