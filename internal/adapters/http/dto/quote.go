package dto

import (
	"time"

	"github.com/jsamuelsen/quotes-service/internal/app"
	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// CreateQuoteRequest is the body of POST /api/quotes.
// Blank text passes binding and is rejected by the service with a field error.
type CreateQuoteRequest struct {
	Quote  *string `json:"quote" validate:"required"`
	Author *string `json:"author"`
}

// ToInput converts the request into the service input.
func (r *CreateQuoteRequest) ToInput() app.CreateQuoteInput {
	input := app.CreateQuoteInput{Author: r.Author}
	if r.Quote != nil {
		input.Text = *r.Quote
	}

	return input
}

// QuoteResponse is the JSON form of a stored quote.
type QuoteResponse struct {
	ID        string    `json:"id"`
	Quote     string    `json:"quote"`
	Author    *string   `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewQuoteResponse converts a domain quote to its response form.
func NewQuoteResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{
		ID:        q.ID,
		Quote:     q.Text,
		Author:    q.Author,
		CreatedAt: q.CreatedAt.UTC(),
		UpdatedAt: q.UpdatedAt.UTC(),
	}
}

// NewQuoteListResponse converts quotes to a JSON array that is never null.
func NewQuoteListResponse(quotes []*domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}
