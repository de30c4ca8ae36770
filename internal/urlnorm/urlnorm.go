package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// Normalization errors. ErrMalformedURL wraps any input that cannot be
// reduced to an absolute http(s) URL; callers that need the root-URL fatal
// path check for it with errors.Is.
var (
	// ErrMalformedURL is returned when the input cannot be parsed as a URL.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrEmptyHost is returned when the resolved URL has no host component.
	ErrEmptyHost = errors.New("URL has no host")
)

// normalizationFlags is the purell flag set used for canonicalization.
// FlagsSafe would be close, but we spell the set out so the dedup contract
// is explicit: lowercase scheme/host, remove default ports, resolve dot
// segments, and clean up escaping without changing semantics.
const normalizationFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagUppercaseEscapes |
	purell.FlagDecodeUnnecessaryEscapes |
	purell.FlagEncodeNecessaryEscapes |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveEmptyQuerySeparator |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveEmptyPortSeparator |
	purell.FlagRemoveUnnecessaryHostDots

// Normalize resolves raw against base (when base is non-nil) and returns
// the canonical absolute form. The fragment is always stripped: two URLs
// that differ only by fragment identify the same page.
func Normalize(raw string, base *url.URL) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}

	if base != nil {
		u = base.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyHost, raw)
	}

	u.Fragment = ""

	normalized, err := url.Parse(purell.NormalizeURL(u, normalizationFlags))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}

	// Root pages without a path and with "/" are the same page; use the
	// slash form so the two never coexist in the visited set.
	if normalized.Path == "" {
		normalized.Path = "/"
	}

	return normalized.String(), nil
}

// NormalizeRoot validates and canonicalizes the crawl root URL.
// Unlike Normalize it returns the parsed form, which the crawler keeps as
// the resolution base and same-site reference. Any error here is a
// configuration error: the input must already be absolute.
func NormalizeRoot(raw string) (*url.URL, error) {
	normalized, err := Normalize(raw, nil)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}
	return u, nil
}

// SameHost reports whether the normalized URL belongs to rootHost.
// Hosts compare case-insensitively and include any non-default port, so
// example.com:8080 is a different site from example.com. Subdomains do not
// match: the crawl does not cross from example.com to www.example.com.
func SameHost(normalized, rootHost string) bool {
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, rootHost)
}
