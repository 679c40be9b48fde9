package kb

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/safakhou/helpbot/internal/helpers"
)

// PageParser extracts structure from scraped pages. The knowledge-base
// site's markup is third-party and can change under us, so the brittle
// parsing lives behind this interface and the crawler stays testable
// against fakes.
type PageParser interface {
	// Links returns the knowledge-base article links found in a landing
	// page, resolved against base. Missing or unexpected markup yields an
	// empty slice, not an error.
	Links(base *url.URL, body io.Reader) ([]ArticleRef, error)

	// ArticleText returns the visible body text of an article page,
	// lowercased with whitespace collapsed. Extraction trouble degrades to
	// an empty string.
	ArticleText(pageURL string, body io.Reader) (string, error)
}

// HTMLParser is the production PageParser: goquery for link extraction,
// go-readability for article text with a bare DOM-text fallback.
type HTMLParser struct {
	pathSegment string
}

func NewHTMLParser(pathSegment string) *HTMLParser {
	return &HTMLParser{pathSegment: pathSegment}
}

// minTitleRunes: link texts of three characters or fewer are navigation
// chrome ("FAQ" survives, "..." and icons do not).
const minTitleRunes = 4

func (p *HTMLParser) Links(base *url.URL, body io.Reader) ([]ArticleRef, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	var refs []ArticleRef
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.Join(strings.Fields(sel.Text()), " ")
		if utf8.RuneCountInString(title) < minTitleRunes {
			return
		}
		resolved, err := helpers.ResolveRef(base, href)
		if err != nil {
			return
		}
		target, err := url.Parse(resolved)
		if err != nil || !strings.Contains(target.Path, p.pathSegment) {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		refs = append(refs, ArticleRef{Title: title, URL: resolved})
	})
	return refs, nil
}

func (p *HTMLParser) ArticleText(pageURL string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	if parsedURL, perr := url.Parse(pageURL); perr == nil {
		article, rerr := readability.FromReader(bytes.NewReader(raw), parsedURL)
		if rerr == nil && strings.TrimSpace(article.TextContent) != "" {
			return NormalizeText(article.TextContent), nil
		}
	}

	// Readability refuses pages it cannot score (very short articles,
	// unusual markup). Fall back to the raw DOM text rather than failing.
	return NormalizeText(domText(raw)), nil
}

func domText(raw []byte) string {
	node, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript"):
			return
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}

// NormalizeText lowercases s and collapses all whitespace runs to single
// spaces. Matching and snippets operate on this form only.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
