package kb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/safakhou/helpbot/internal/telemetry"
)

// kbSite simulates the knowledge-base website and counts fetches per path.
type kbSite struct {
	mu       sync.Mutex
	hits     map[string]int
	articles map[string]string // path -> body text
	landing  string
}

func newKBSite(landing string, articles map[string]string) *kbSite {
	return &kbSite{hits: make(map[string]int), articles: articles, landing: landing}
}

func (s *kbSite) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		if r.URL.Path == "/knowledge-base/" {
			fmt.Fprint(w, s.landing)
			return
		}
		body, ok := s.articles[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<html><body><article><p>%s</p></article></body></html>", body)
	})
}

func (s *kbSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *kbSite) articleHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for path, n := range s.hits {
		if path != "/knowledge-base/" {
			total += n
		}
	}
	return total
}

// twelveArticleSite lists 12 articles; a03 carries the full query phrase,
// a07 only the "vpn" token, a11 carries the phrase but sits past the
// 10-article crawl window.
func twelveArticleSite() *kbSite {
	var links strings.Builder
	articles := make(map[string]string)
	for i := 1; i <= 12; i++ {
		path := fmt.Sprintf("/knowledge-base/a%02d", i)
		fmt.Fprintf(&links, `<a href="%s">Article number %02d</a>`, path, i)
		articles[path] = fmt.Sprintf("generic helpdesk article body %02d with nothing special", i)
	}
	articles["/knowledge-base/a03"] = strings.Repeat("intro text ", 20) + "full vpn access instructions here " + strings.Repeat("more text ", 30)
	articles["/knowledge-base/a07"] = "this page mentions the vpn token alone, not the phrase"
	articles["/knowledge-base/a11"] = "vpn access appears here but the crawl never reaches it"
	return newKBSite("<html><body>"+links.String()+"</body></html>", articles)
}

func newTestSearcher(t *testing.T, baseURL string, cache ContentCache) *Searcher {
	t.Helper()
	cfg := kbTestConfig(baseURL)
	crawler, err := NewCrawler(cfg, NewHTMLParser("/knowledge-base/"), nil)
	if err != nil {
		t.Fatalf("NewCrawler() error = %v", err)
	}
	return NewSearcher(crawler, cache, cfg, nil, telemetry.New())
}

func TestSearchEndToEnd(t *testing.T) {
	t.Parallel()
	site := twelveArticleSite()
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	s := newTestSearcher(t, srv.URL+"/knowledge-base/", NewMemoryCache(0, 0))
	results, err := s.Search(context.Background(), "vpn access")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2: %+v", len(results), results)
	}
	// Discovery order: a03 before a07.
	if !strings.HasSuffix(results[0].URL, "/a03") || !strings.HasSuffix(results[1].URL, "/a07") {
		t.Fatalf("results out of discovery order: %+v", results)
	}
	if results[0].Title != "Article number 03" {
		t.Errorf("results[0].Title = %q", results[0].Title)
	}
	// Full phrase in a03: non-empty snippet with ellipsis. Token-only
	// match in a07: empty snippet, still a result.
	if results[0].Snippet == "" || !strings.HasSuffix(results[0].Snippet, "...") {
		t.Errorf("results[0].Snippet = %q, want phrase-anchored snippet", results[0].Snippet)
	}
	if !strings.Contains(results[0].Snippet, "vpn access") {
		t.Errorf("results[0].Snippet = %q, want match inside window", results[0].Snippet)
	}
	if results[1].Snippet != "" {
		t.Errorf("results[1].Snippet = %q, want empty for token-only match", results[1].Snippet)
	}

	// Only the first 10 discovered articles are fetched.
	if got := site.articleHits(); got != 10 {
		t.Errorf("article fetches = %d, want 10", got)
	}
	for _, path := range []string{"/knowledge-base/a11", "/knowledge-base/a12"} {
		if site.hitCount(path) != 0 {
			t.Errorf("%s fetched despite the crawl cap", path)
		}
	}
}

func TestSearchUsesCacheAcrossInvocations(t *testing.T) {
	t.Parallel()
	site := twelveArticleSite()
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	s := newTestSearcher(t, srv.URL+"/knowledge-base/", NewMemoryCache(0, 0))
	ctx := context.Background()
	if _, err := s.Search(ctx, "vpn access"); err != nil {
		t.Fatalf("first Search() error = %v", err)
	}
	if _, err := s.Search(ctx, "printer"); err != nil {
		t.Fatalf("second Search() error = %v", err)
	}

	// Landing page refetched per search, article bodies served from cache.
	if got := site.hitCount("/knowledge-base/"); got != 2 {
		t.Errorf("landing fetches = %d, want 2", got)
	}
	if got := site.articleHits(); got != 10 {
		t.Errorf("article fetches = %d, want 10 (second search fully cached)", got)
	}
}

func TestSearchDiscoveryFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // network error on every request

	s := newTestSearcher(t, srv.URL+"/knowledge-base/", NewMemoryCache(0, 0))
	results, err := s.Search(context.Background(), "vpn access")
	if err != nil {
		t.Fatalf("Search() error = %v, want graceful empty", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search() = %+v, want empty", results)
	}
}

func TestSearchSkipsFailingArticles(t *testing.T) {
	t.Parallel()
	site := twelveArticleSite()
	delete(site.articles, "/knowledge-base/a02") // 404s now
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	s := newTestSearcher(t, srv.URL+"/knowledge-base/", NewMemoryCache(0, 0))
	results, err := s.Search(context.Background(), "vpn access")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2 despite one bad article", len(results))
	}
}

func TestSearchHonoursFetchDelay(t *testing.T) {
	t.Parallel()
	site := twelveArticleSite()
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	cfg := kbTestConfig(srv.URL + "/knowledge-base/")
	cfg.FetchDelay = 5 * time.Millisecond
	crawler, err := NewCrawler(cfg, NewHTMLParser("/knowledge-base/"), nil)
	if err != nil {
		t.Fatalf("NewCrawler() error = %v", err)
	}
	s := NewSearcher(crawler, NewMemoryCache(0, 0), cfg, nil, telemetry.New())

	started := time.Now()
	if _, err := s.Search(context.Background(), "vpn access"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// 10 iterations, first is immediate: at least 9 delays.
	if elapsed := time.Since(started); elapsed < 9*cfg.FetchDelay {
		t.Fatalf("search finished in %s, want at least %s of politeness delay", elapsed, 9*cfg.FetchDelay)
	}
}

func TestSearchCancellation(t *testing.T) {
	t.Parallel()
	site := twelveArticleSite()
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	cfg := kbTestConfig(srv.URL + "/knowledge-base/")
	cfg.FetchDelay = time.Hour // every post-first iteration blocks on the limiter
	crawler, err := NewCrawler(cfg, NewHTMLParser("/knowledge-base/"), nil)
	if err != nil {
		t.Fatalf("NewCrawler() error = %v", err)
	}
	s := NewSearcher(crawler, NewMemoryCache(0, 0), cfg, nil, telemetry.New())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := s.Search(ctx, "vpn access"); err == nil {
		t.Fatal("Search() error = nil, want context error while rate limited")
	}
}

func TestWarmPrimesCache(t *testing.T) {
	t.Parallel()
	site := twelveArticleSite()
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	cache := NewMemoryCache(0, 0)
	s := newTestSearcher(t, srv.URL+"/knowledge-base/", cache)
	warmed, err := s.Warm(context.Background())
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if warmed != 10 {
		t.Fatalf("Warm() = %d, want 10", warmed)
	}
	if cache.Len() != 10 {
		t.Fatalf("cache holds %d entries after warm, want 10", cache.Len())
	}

	// A search right after warming touches only the landing page.
	before := site.articleHits()
	if _, err := s.Search(context.Background(), "vpn access"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := site.articleHits(); got != before {
		t.Fatalf("article fetches grew from %d to %d after warm", before, got)
	}
}
