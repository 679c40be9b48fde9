package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"
)

var trackingQueryParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"gclid":        {},
	"fbclid":       {},
	"msclkid":      {},
}

// CanonicalURL normalises an article URL for cache keys and de-duplication.
// It lowercases scheme/host, removes default ports, strips fragments and
// tracking query parameters (utm_*, fbclid, etc.), cleans path segments and
// sorts the remaining query parameters deterministically.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return "", errors.New("url missing host")
	}
	if h, port, ok := strings.Cut(host, ":"); ok {
		if (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443") {
			host = h
		}
	}
	parsed.Host = host

	hadTrailingSlash := strings.HasSuffix(parsed.Path, "/")
	cleaned := path.Clean(parsed.Path)
	if cleaned == "." || cleaned == "" {
		cleaned = "/"
	}
	if cleaned != "/" && hadTrailingSlash {
		cleaned += "/"
	}
	parsed.Path = cleaned

	parsed.Fragment = ""
	query := parsed.Query()
	for key := range query {
		if _, drop := trackingQueryParams[strings.ToLower(key)]; drop {
			query.Del(key)
		}
	}
	if len(query) == 0 {
		parsed.RawQuery = ""
	} else {
		for _, values := range query {
			sort.Strings(values)
		}
		parsed.RawQuery = query.Encode() // Encode sorts keys
	}

	return parsed.String(), nil
}

// ResolveRef resolves an href found in a page against that page's URL and
// canonicalises the result. Fragment-only and javascript: hrefs yield errors.
func ResolveRef(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", errors.New("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	switch ref.Scheme {
	case "", "http", "https":
	default:
		return "", errors.New("unsupported scheme " + ref.Scheme)
	}
	return CanonicalURL(base.ResolveReference(ref).String())
}

// URLFingerprint returns a deterministic SHA-256 hex digest of the canonical
// URL, used as a fixed-width Redis key component.
func URLFingerprint(raw string) (string, error) {
	canonical, err := CanonicalURL(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}
