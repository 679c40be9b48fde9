// Package kb implements the knowledge-base search pipeline: discover
// article links on the landing page, fetch and normalise article text
// through a cache, and match articles against a query.
package kb

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ArticleRef is the crawler's unit of discovery: one link found on the
// landing page, with its URL already resolved to canonical absolute form.
type ArticleRef struct {
	Title string
	URL   string
}

// ArticleContent is the normalised text of one fetched article. Once a
// cache holds it for a URL, it is never re-fetched while present.
type ArticleContent struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// SearchResult is one matched article. Snippet may be empty: matching is
// OR-of-tokens but the snippet anchors on the full query phrase only.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// FetchError reports a failed page retrieval. Status is zero for transport
// failures and the HTTP status code for non-2xx responses.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a per-fetch timeout rather than
// a hard transport or status error.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
