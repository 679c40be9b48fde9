package kb

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/safakhou/helpbot/config"
	"github.com/safakhou/helpbot/internal/telemetry"
)

// Searcher composes the crawler, cache and matcher into one "search the
// knowledge base" operation. Results come back in discovery order, capped
// at maxResults; there is no relevance score beyond the binary match.
type Searcher struct {
	crawler *Crawler
	cache   ContentCache
	limiter *rate.Limiter
	sf      singleflight.Group
	log     *log.Logger
	metrics *telemetry.Metrics

	maxArticles int
	maxResults  int
}

// NewSearcher wires the pipeline. The politeness limiter spaces article
// iterations by cfg.FetchDelay regardless of cache hit or miss; the first
// iteration proceeds immediately.
func NewSearcher(crawler *Crawler, cache ContentCache, cfg config.KBConfig, logger *log.Logger, metrics *telemetry.Metrics) *Searcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	limit := rate.Inf
	if cfg.FetchDelay > 0 {
		limit = rate.Every(cfg.FetchDelay)
	}
	return &Searcher{
		crawler:     crawler,
		cache:       cache,
		limiter:     rate.NewLimiter(limit, 1),
		log:         logger,
		metrics:     metrics,
		maxArticles: cfg.MaxArticles,
		maxResults:  cfg.MaxResults,
	}
}

// Search walks the first maxArticles discovered articles and returns the
// matching ones. Discovery failure degrades to an empty result set; a
// per-article fetch failure skips that article only. The error return is
// reserved for context cancellation.
func (s *Searcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	started := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	refs, err := s.crawler.Discover(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.metrics.SearchCompleted("error", time.Since(started))
			return nil, ctx.Err()
		}
		s.log.Printf("discovery failed, returning no results: %v", err)
		s.metrics.SearchCompleted("empty", time.Since(started))
		return []SearchResult{}, nil
	}
	if len(refs) > s.maxArticles {
		refs = refs[:s.maxArticles]
	}

	results := make([]SearchResult, 0, s.maxResults)
	for _, ref := range refs {
		// One delay per article iteration, hit or miss.
		if err := s.limiter.Wait(ctx); err != nil {
			s.metrics.SearchCompleted("error", time.Since(started))
			return results, err
		}
		content, err := s.lookup(ctx, ref.URL)
		if err != nil {
			s.log.Printf("skipping %s: %v", ref.URL, err)
			continue
		}
		if !Matches(content.Text, query) {
			continue
		}
		results = append(results, SearchResult{
			Title:   ref.Title,
			URL:     ref.URL,
			Snippet: Snippet(content.Text, query),
		})
		if len(results) >= s.maxResults {
			break
		}
	}

	outcome := "ok"
	if len(results) == 0 {
		outcome = "empty"
	}
	s.metrics.SearchCompleted(outcome, time.Since(started))
	return results, nil
}

// Warm primes the cache: discovery plus a fetch of every article in the
// crawl window, no matching. Returns how many articles are now cached.
func (s *Searcher) Warm(ctx context.Context) (int, error) {
	refs, err := s.crawler.Discover(ctx)
	if err != nil {
		return 0, err
	}
	if len(refs) > s.maxArticles {
		refs = refs[:s.maxArticles]
	}

	warmed := 0
	for _, ref := range refs {
		if err := s.limiter.Wait(ctx); err != nil {
			return warmed, err
		}
		if _, err := s.lookup(ctx, ref.URL); err != nil {
			s.log.Printf("warm skipping %s: %v", ref.URL, err)
			continue
		}
		warmed++
	}
	return warmed, nil
}

// lookup returns the article content for url, consulting the cache first
// and deduplicating concurrent fetches of the same URL.
func (s *Searcher) lookup(ctx context.Context, url string) (ArticleContent, error) {
	content, ok, err := s.cache.Get(ctx, url)
	if err != nil {
		s.log.Printf("cache get failed for %s, fetching: %v", url, err)
	} else if ok {
		s.metrics.CacheLookup(true)
		return content, nil
	} else {
		s.metrics.CacheLookup(false)
	}

	v, err, _ := s.sf.Do(url, func() (any, error) {
		text, err := s.crawler.Fetch(ctx, url)
		s.metrics.FetchCompleted(err)
		if err != nil {
			return nil, err
		}
		fetched := ArticleContent{URL: url, Text: text}
		if err := s.cache.Put(ctx, url, fetched); err != nil {
			s.log.Printf("cache put failed for %s: %v", url, err)
		}
		return fetched, nil
	})
	if err != nil {
		return ArticleContent{}, err
	}
	return v.(ArticleContent), nil
}
