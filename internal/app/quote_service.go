// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// CreateQuoteInput carries a client's new quote before validation.
type CreateQuoteInput struct {
	Text   string
	Author *string
}

// QuoteService orchestrates quote use cases.
// It depends on port interfaces, not concrete implementations.
type QuoteService struct {
	repo     ports.QuoteRepository
	filter   *domain.ModerationFilter
	logger   *slog.Logger
	executor *Executor
	now      func() time.Time
	newID    func() string
}

// QuoteServiceConfig contains the service dependencies.
// Only Repository is required.
type QuoteServiceConfig struct {
	Repository  ports.QuoteRepository
	Filter      *domain.ModerationFilter
	Logger      *slog.Logger
	Clock       func() time.Time
	IDGenerator func() string
}

// NewQuoteService creates a new quote service with the provided dependencies.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Repository == nil {
		panic("app: QuoteServiceConfig.Repository is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Filter == nil {
		cfg.Filter = domain.NewModerationFilter("")
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}

	return &QuoteService{
		repo:     cfg.Repository,
		filter:   cfg.Filter,
		logger:   cfg.Logger,
		executor: NewExecutor(cfg.Logger),
		now:      cfg.Clock,
		newID:    cfg.IDGenerator,
	}
}

// ListQuotes returns one page of quotes, newest first.
// Params are normalized here regardless of what the caller passed.
func (s *QuoteService) ListQuotes(ctx context.Context, params domain.ListParams) ([]*domain.Quote, error) {
	params = params.Normalize()

	quotes, err := s.repo.List(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list quotes",
			slog.Int("page", params.Page),
			slog.Int("limit", params.Limit),
			slog.Bool("search", params.HasSearch()),
			slog.Any("error", err),
		)

		return nil, err
	}

	s.logger.DebugContext(ctx, "listed quotes",
		slog.Int("page", params.Page),
		slog.Int("limit", params.Limit),
		slog.Int("count", len(quotes)),
	)

	return quotes, nil
}

// CreateQuote validates, moderates and stores a new quote.
// Nothing is stored when validation fails.
func (s *QuoteService) CreateQuote(ctx context.Context, input CreateQuoteInput) (*domain.Quote, error) {
	op := Operation[CreateQuoteInput, *domain.Quote, *domain.Quote]{
		Name:     "create_quote",
		Validate: s.validateCreate,
		Perform: func(_ context.Context, in CreateQuoteInput) (*domain.Quote, error) {
			ts := domain.NormalizeTimestamp(s.now())

			return &domain.Quote{
				ID:        s.newID(),
				Text:      in.Text,
				Author:    normalizeAuthor(in.Author),
				CreatedAt: ts,
				UpdatedAt: ts,
			}, nil
		},
		Verify: func(_ context.Context, quote *domain.Quote) error {
			return quote.Validate()
		},
		Archive: func(ctx context.Context, quote *domain.Quote) error {
			return s.repo.Create(ctx, quote)
		},
		Respond: func(_ context.Context, quote *domain.Quote) (*domain.Quote, error) {
			return quote, nil
		},
	}

	quote, err := Execute(ctx, s.executor, op, input)
	if err != nil {
		return nil, unwrapExecution(err)
	}

	s.logger.InfoContext(ctx, "created quote",
		slog.String("quote_id", quote.ID),
		slog.Bool("has_author", quote.Author != nil),
	)

	return quote, nil
}

func (s *QuoteService) validateCreate(_ context.Context, in CreateQuoteInput) error {
	if strings.TrimSpace(in.Text) == "" {
		return domain.NewValidationError("quote", "must not be empty")
	}

	if domain.TextLength(in.Text) > domain.MaxTextLength {
		return domain.NewValidationError("quote",
			fmt.Sprintf("must be at most %d characters", domain.MaxTextLength))
	}

	if s.filter.CheckText(in.Text) {
		return domain.NewValidationError("quote", "contains forbidden content")
	}

	author := normalizeAuthor(in.Author)
	if author == nil {
		return nil
	}

	if domain.TextLength(*author) > domain.MaxAuthorLength {
		return domain.NewValidationError("author",
			fmt.Sprintf("must be at most %d characters", domain.MaxAuthorLength))
	}

	if s.filter.CheckText(*author) {
		return domain.NewValidationError("author", "contains forbidden content")
	}

	return nil
}

// GetRandomQuote returns an arbitrary stored quote.
func (s *QuoteService) GetRandomQuote(ctx context.Context) (*domain.Quote, error) {
	quote, err := s.repo.GetRandom(ctx)
	if err != nil {
		s.logFailure(ctx, "failed to fetch random quote", err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "fetched random quote", slog.String("quote_id", quote.ID))

	return quote, nil
}

// GetQuoteByID retrieves a specific quote by its identifier.
func (s *QuoteService) GetQuoteByID(ctx context.Context, id string) (*domain.Quote, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logFailure(ctx, "failed to fetch quote", err, slog.String("quote_id", id))
		return nil, err
	}

	s.logger.DebugContext(ctx, "fetched quote", slog.String("quote_id", quote.ID))

	return quote, nil
}

// logFailure logs not-found at debug level and everything else as an error.
func (s *QuoteService) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.Any("error", err))

	if domain.IsNotFound(err) {
		s.logger.DebugContext(ctx, msg, attrs...)
		return
	}

	s.logger.ErrorContext(ctx, msg, attrs...)
}

// normalizeAuthor trims the author and maps blank values to nil.
func normalizeAuthor(author *string) *string {
	if author == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*author)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}

// unwrapExecution strips the step wrapper so callers see the domain error.
func unwrapExecution(err error) error {
	var execErr *ExecutionError
	if errors.As(err, &execErr) && execErr.Cause != nil {
		return execErr.Cause
	}

	return err
}
