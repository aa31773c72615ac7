package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
	"github.com/jsamuelsen/quotes-service/internal/platform/telemetry"
)

// ExecutionStep names one stage of a write. A write runs validate, perform,
// verify, archive, respond in that order, and storage is only touched in
// archive, after validate and verify passed.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError names the step a write stopped at. It unwraps to the
// step's error, so domain.IsValidation and friends see through it.
type ExecutionError struct {
	Step  ExecutionStep
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Cause)
}

// Unwrap returns the step's error.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// Executor carries the fallback logger used when the context has none.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger falls back to slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation is one write use case. Any step may be nil; a nil Respond
// yields the zero O.
type Operation[I, V, O any] struct {
	Name string

	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (V, error)
	Verify   func(ctx context.Context, built V) error
	Archive  func(ctx context.Context, verified V) error
	Respond  func(ctx context.Context, verified V) (O, error)
}

// Execute runs op inside a span named after it.
func Execute[I, V, O any](ctx context.Context, exec *Executor, op Operation[I, V, O], input I) (O, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "quotes."+op.Name,
		trace.WithAttributes(attribute.String("quotes.operation", op.Name)))
	defer span.End()

	logger := exec.loggerFor(ctx).With(slog.String("operation", op.Name))
	start := time.Now()

	fail := func(step ExecutionStep, err error) error {
		level := slog.LevelError
		if step == StepValidate {
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, string(step)+" step failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(step))

		return &ExecutionError{Step: step, Cause: err}
	}

	var (
		zero  O
		built V
		err   error
	)

	if op.Validate != nil {
		if err = op.Validate(ctx, input); err != nil {
			return zero, fail(StepValidate, err)
		}
	}

	if op.Perform != nil {
		if built, err = op.Perform(ctx, input); err != nil {
			return zero, fail(StepPerform, err)
		}
	}

	if op.Verify != nil {
		if err = op.Verify(ctx, built); err != nil {
			return zero, fail(StepVerify, err)
		}
	}

	if op.Archive != nil {
		if err = op.Archive(ctx, built); err != nil {
			return zero, fail(StepArchive, err)
		}
	}

	out := zero
	if op.Respond != nil {
		if out, err = op.Respond(ctx, built); err != nil {
			return zero, fail(StepRespond, err)
		}
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}

func (e *Executor) loggerFor(ctx context.Context) *slog.Logger {
	if l := logging.FromContext(ctx); l != logging.Default() {
		return l
	}

	return e.logger
}

// GetExecutionStep reports the step an ExecutionError stopped at.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		return "", false
	}

	return execErr.Step, true
}
