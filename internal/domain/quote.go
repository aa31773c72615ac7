package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// QuoteEntity is the entity name used in errors and logs.
const QuoteEntity = "quote"

// Field limits enforced before a quote is accepted for storage.
const (
	// MaxTextLength is the maximum number of characters in a quote's text.
	MaxTextLength = 10000

	// MaxAuthorLength matches the author column width.
	MaxAuthorLength = 255
)

// Listing defaults and bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 100
)

// TimestampPrecision is the resolution timestamps are stored at.
const TimestampPrecision = time.Microsecond

// Quote represents a quotation with its optional author.
// This is a domain entity - it has no knowledge of external systems.
type Quote struct {
	// ID is the unique identifier for this quote.
	ID string

	// Text is the quotation itself.
	Text string

	// Author is who said or wrote the quote. Nil when unattributed.
	Author *string

	// CreatedAt is fixed when the quote is created.
	CreatedAt time.Time

	// UpdatedAt starts equal to CreatedAt. No operation changes it yet.
	UpdatedAt time.Time
}

// Validate checks the entity invariants.
func (q *Quote) Validate() error {
	if q.ID == "" {
		return NewValidationError("id", "must not be empty")
	}

	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("quote", "must not be empty")
	}

	if q.CreatedAt.IsZero() {
		return NewValidationError("created_at", "must be set")
	}

	if q.UpdatedAt.Before(q.CreatedAt) {
		return NewValidationError("updated_at", "must not be before created_at")
	}

	return nil
}

// NormalizeTimestamp converts t to UTC at storage precision.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}

// TextLength returns the number of characters in s.
func TextLength(s string) int {
	return utf8.RuneCountInString(s)
}

// ListParams selects a page of quotes ordered newest first.
type ListParams struct {
	// Page is 1-based.
	Page int

	// Limit is the page size.
	Limit int

	// Search is matched verbatim, ignoring case, as a substring of text or
	// author. Only the empty string means no filter; whitespace is significant.
	Search string
}

// Normalize returns a copy with Page at least 1 and Limit clamped to
// [MinLimit, MaxLimit]. Search is left exactly as given.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}

	switch {
	case p.Limit < MinLimit:
		p.Limit = MinLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}

	// Keep (Page-1)*Limit within int64.
	if maxSkip := math.MaxInt64 / int64(p.Limit); int64(p.Page-1) > maxSkip {
		p.Page = int(maxSkip) + 1
	}

	return p
}

// Offset returns the number of rows to skip. Call on normalized params.
func (p ListParams) Offset() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// HasSearch reports whether a search filter is set.
func (p ListParams) HasSearch() bool {
	return p.Search != ""
}
