package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

// Result label values.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

var operationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "quotes",
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "Duration of quote repository operations in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"operation", "result"},
)

// observe records one repository call in the duration histogram and, at
// trace level, in the log.
func (r *QuoteRepository) observe(ctx context.Context, operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	result := resultOK

	switch {
	case err == nil:
	case domain.IsNotFound(err):
		result = resultNotFound
	default:
		result = resultError
	}

	operationDuration.WithLabelValues(operation, result).Observe(elapsed.Seconds())

	r.db.logger.Log(ctx, logging.LevelTrace, "storage operation",
		slog.String("operation", operation),
		slog.String("result", result),
		slog.Duration("duration", elapsed),
	)
}
