package domain

import "strings"

// ModerationFilter is a denylist of forbidden substrings.
// It is built once at startup and never modified, so concurrent reads need no locking.
type ModerationFilter struct {
	words []string
}

// NewModerationFilter parses a comma-separated denylist.
// Entries are trimmed and lower-cased; empty and duplicate entries are dropped.
func NewModerationFilter(csv string) *ModerationFilter {
	seen := make(map[string]struct{})
	words := make([]string, 0)

	for _, raw := range strings.Split(csv, ",") {
		word := strings.ToLower(strings.TrimSpace(raw))
		if word == "" {
			continue
		}

		if _, dup := seen[word]; dup {
			continue
		}

		seen[word] = struct{}{}
		words = append(words, word)
	}

	return &ModerationFilter{words: words}
}

// CheckText reports whether s contains any denylisted entry, ignoring case.
func (f *ModerationFilter) CheckText(s string) bool {
	if f == nil || len(f.words) == 0 || s == "" {
		return false
	}

	lower := strings.ToLower(s)
	for _, word := range f.words {
		if strings.Contains(lower, word) {
			return true
		}
	}

	return false
}

// Len returns the number of denylist entries.
func (f *ModerationFilter) Len() int {
	if f == nil {
		return 0
	}

	return len(f.words)
}
