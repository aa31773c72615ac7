package dto

import "github.com/jsamuelsen/quotes-service/internal/domain"

// ListQuotesRequest holds the query parameters of GET /api/quotes.
// Pointers distinguish an absent parameter from an explicit zero.
type ListQuotesRequest struct {
	// Page is 1-based. Absent means the first page.
	Page *int `form:"page"`

	// Limit is the page size. Absent means domain.DefaultLimit; out of range values are clamped.
	Limit *int `form:"limit"`

	// Search filters by a case-insensitive substring of text or author.
	// It is used exactly as sent, surrounding whitespace included.
	Search *string `form:"search"`
}

// ToListParams applies defaults and returns normalized domain params.
func (r *ListQuotesRequest) ToListParams() domain.ListParams {
	params := domain.ListParams{
		Page:  domain.DefaultPage,
		Limit: domain.DefaultLimit,
	}

	if r.Page != nil {
		params.Page = *r.Page
	}

	if r.Limit != nil {
		params.Limit = *r.Limit
	}

	if r.Search != nil {
		params.Search = *r.Search
	}

	return params.Normalize()
}
