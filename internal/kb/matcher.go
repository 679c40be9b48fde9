package kb

import "strings"

// Snippet bounds around the first full-phrase match.
const (
	snippetBefore = 100
	snippetAfter  = 200
)

// Matches reports whether text contains the full query as a substring, or
// failing that, any single whitespace-delimited query token. The
// OR-of-tokens policy deliberately favours recall over precision. text is
// assumed already normalised (NormalizeText); query may be raw user input.
func Matches(text, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return false
	}
	if strings.Contains(text, query) {
		return true
	}
	for _, token := range strings.Fields(query) {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// Snippet returns a window around the first occurrence of the FULL query
// phrase: 100 characters before the match position to 200 after, clamped
// to the text, trimmed, with a trailing ellipsis. When the full phrase is
// absent the snippet is empty even if Matches returned true through a
// token hit; that asymmetry is part of the contract.
func Snippet(text, query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return ""
	}
	idx := strings.Index(text, query)
	if idx < 0 {
		return ""
	}
	start := idx - snippetBefore
	if start < 0 {
		start = 0
	}
	end := idx + snippetAfter
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end]) + "..."
}
