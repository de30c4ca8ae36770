package extractor

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/nao1215/webwalk/internal/fetcher"
)

// Result holds everything extracted from one page in a single parse pass.
type Result struct {
	// Title is the text of the first <title> element, if any.
	Title string

	// Links contains the absolute form of every navigational hyperlink
	// found in the markup, in document order, deduplicated. Resolution
	// honors a <base href> element when present.
	Links []string
}

// nonNavigational lists href schemes that never lead to a fetchable page.
var nonNavigational = []string{
	"javascript:",
	"mailto:",
	"tel:",
	"data:",
}

// Extract parses body as HTML and returns the page title and all candidate
// link URLs, resolved against baseURL. Non-HTML content types return an
// empty Result without parsing. Parse problems are absorbed: the result
// holds whatever was recovered before the problem.
func Extract(body []byte, contentType string, baseURL *url.URL) Result {
	if !fetcher.IsHTML(contentType) {
		return Result{}
	}

	doc, err := html.Parse(decode(body, contentType))
	if err != nil {
		return Result{}
	}

	base := baseURL
	var result Result
	seen := make(map[string]struct{})

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}

			case "base":
				// The first <base href> replaces the resolution base for
				// the whole document.
				if href := getAttr(n, "href"); href != "" && base == baseURL {
					if u, err := url.Parse(href); err == nil {
						base = baseURL.ResolveReference(u)
					}
				}

			case "a":
				if resolved := resolve(base, getAttr(n, "href")); resolved != "" {
					if _, dup := seen[resolved]; !dup {
						seen[resolved] = struct{}{}
						result.Links = append(result.Links, resolved)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result
}

// decode wraps body in a reader that converts the document encoding to
// UTF-8, using the content type header and in-document hints. Unknown
// encodings fall back to passing bytes through unchanged.
func decode(body []byte, contentType string) io.Reader {
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	return transform.NewReader(bytes.NewReader(body), enc.NewDecoder())
}

// resolve turns an href attribute into an absolute URL string, or ""
// when the reference is empty, fragment-only, non-navigational, or
// unparsable.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range nonNavigational {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return base.ResolveReference(u).String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
