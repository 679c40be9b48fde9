package kb

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/safakhou/helpbot/config"
	"github.com/safakhou/helpbot/internal/helpers"
)

// maxPageBytes caps how much of a scraped page gets buffered.
const maxPageBytes = 2 << 20

// Crawler fetches the knowledge-base landing page and individual articles.
// Every request carries the configured User-Agent and the per-fetch timeout.
type Crawler struct {
	client    *http.Client
	parser    PageParser
	landing   *url.URL
	userAgent string
	log       *log.Logger
}

func NewCrawler(cfg config.KBConfig, parser PageParser, logger *log.Logger) (*Crawler, error) {
	landing, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing kb.base_url: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CRAWL] ", log.LstdFlags)
	}
	return &Crawler{
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		parser:    parser,
		landing:   landing,
		userAgent: cfg.UserAgent,
		log:       logger,
	}, nil
}

// Discover fetches the landing page and returns the article links found on
// it. Landing-page retrieval failure is propagated as *FetchError, not
// retried; the caller decides how to degrade.
func (c *Crawler) Discover(ctx context.Context) ([]ArticleRef, error) {
	body, err := c.get(ctx, c.landing.String())
	if err != nil {
		return nil, err
	}
	refs, err := c.parser.Links(c.landing, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing landing page: %w", err)
	}
	return refs, nil
}

// Fetch retrieves one article page and returns its normalised text. A 2xx
// page that defeats text extraction yields empty text rather than an error.
func (c *Crawler) Fetch(ctx context.Context, pageURL string) (string, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	text, err := c.parser.ArticleText(pageURL, bytes.NewReader(body))
	if err != nil {
		c.log.Printf("text extraction failed for %s: %v", pageURL, err)
		return "", nil
	}
	return text, nil
}

func (c *Crawler) get(ctx context.Context, raw string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, &FetchError{URL: raw, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: raw, Err: err}
	}
	body, err := helpers.ReadAllAndClose(resp.Body, maxPageBytes)
	if err != nil {
		return nil, &FetchError{URL: raw, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: raw, Status: resp.StatusCode}
	}
	return body, nil
}
