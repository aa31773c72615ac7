package telemetry

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

const (
	scope = "github.com/jsamuelsen/quotes-service"

	// HeaderTraceID echoes the active trace ID to the client.
	HeaderTraceID = "X-Trace-ID"

	// ContextKeyTraceID is the gin key error envelopes read the trace ID from.
	ContextKeyTraceID = "trace_id"

	operationalPrefix = "/-/"
)

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(scope)
}

// Metrics are the per-request instruments recorded by Middleware.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewMetrics registers the instruments on the global meter provider, so it
// must run after New.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(scope)

	var (
		m   Metrics
		err error
	)

	if m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time spent serving quote API requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.requests, err = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Quote API requests served"),
	); err != nil {
		return nil, err
	}

	if m.inFlight, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Quote API requests in flight"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

func operational(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, operationalPrefix)
}

// Tracing starts an otelgin server span per request. Health checks and
// the metrics scrape under /-/ are left untraced.
func Tracing(serviceName string) gin.HandlerFunc {
	traced := otelgin.Middleware(serviceName, otelgin.WithPropagators(Propagator()))

	return func(c *gin.Context) {
		if operational(c) {
			c.Next()
			return
		}

		traced(c)
	}
}

// Middleware runs after Tracing. It surfaces the trace ID in X-Trace-ID,
// under ContextKeyTraceID and on the context logger, then records request
// metrics.
func Middleware() gin.HandlerFunc {
	metrics, err := NewMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		exposeTraceID(c)

		if metrics == nil {
			c.Next()
			return
		}

		metrics.observe(c)
	}
}

func exposeTraceID(c *gin.Context) {
	sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
	if !sc.HasTraceID() {
		return
	}

	id := sc.TraceID().String()
	c.Header(HeaderTraceID, id)
	c.Set(ContextKeyTraceID, id)
	c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), id))
}

func (m *Metrics) observe(c *gin.Context) {
	ctx := c.Request.Context()
	route := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()),
	}

	m.inFlight.Add(ctx, 1, metric.WithAttributes(route...))
	start := time.Now()

	c.Next()

	m.inFlight.Add(ctx, -1, metric.WithAttributes(route...))

	done := metric.WithAttributes(append(route, attribute.Int("http.status_code", c.Writer.Status()))...)
	m.duration.Record(ctx, time.Since(start).Seconds(), done)
	m.requests.Add(ctx, 1, done)
}
