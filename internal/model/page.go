package model

// Page records one successfully fetched page.
type Page struct {
	// URL is the normalized URL of the page.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the response Content-Type header.
	ContentType string `json:"content_type,omitempty"`

	// Title is the page title for HTML pages, if present.
	Title string `json:"title,omitempty"`

	// Depth is the link distance from the crawl root (root = 0).
	Depth int `json:"depth"`

	// Origin is the normalized URL of the page this one was discovered
	// on. Empty for the root.
	Origin string `json:"origin,omitempty"`

	// Links are the same-site links found on this page, normalized and
	// deduplicated. Links beyond the crawl's depth limit still appear
	// here even though they were not followed.
	Links []string `json:"links,omitempty"`
}
