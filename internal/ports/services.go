// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrStorage, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"

	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// QuoteRepository is the persistence port for quotes.
// Quotes are insert-only: there is no update or delete.
//
// Every method borrows at most one pooled connection and releases it before
// returning. Driver failures are reported as *domain.StorageError.
type QuoteRepository interface {
	// Create inserts a new quote. The caller assigns ID and timestamps.
	Create(ctx context.Context, quote *domain.Quote) error

	// List returns one page of quotes ordered by created_at descending.
	// Params must already be normalized. Returns an empty slice when nothing matches.
	List(ctx context.Context, params domain.ListParams) ([]*domain.Quote, error)

	// GetByID returns the quote with the given ID.
	// Returns domain.ErrNotFound if no such quote exists.
	GetByID(ctx context.Context, id string) (*domain.Quote, error)

	// GetRandom returns an arbitrary existing quote.
	// Returns domain.ErrNotFound if the store is empty.
	GetRandom(ctx context.Context) (*domain.Quote, error)
}
