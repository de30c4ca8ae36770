package extractor

import (
	"net/url"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

// TestExtract tests link extraction from HTML documents.
func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("extracts and resolves links", func(t *testing.T) {
		t.Parallel()

		page := `<html><body>
			<a href="/about">About</a>
			<a href="contact">Contact</a>
			<a href="http://example.com/absolute">Absolute</a>
			<a href="http://other.com/external">External</a>
		</body></html>`

		result := Extract([]byte(page), "text/html", mustParse(t, "http://example.com/x/y"))

		want := []string{
			"http://example.com/about",
			"http://example.com/x/contact",
			"http://example.com/absolute",
			"http://other.com/external",
		}
		if len(result.Links) != len(want) {
			t.Fatalf("expected %d links, got %d: %v", len(want), len(result.Links), result.Links)
		}
		for i, w := range want {
			if result.Links[i] != w {
				t.Errorf("link %d: expected %q, got %q", i, w, result.Links[i])
			}
		}
	})

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		page := `<html><head><title>  Test Page </title></head><body></body></html>`
		result := Extract([]byte(page), "text/html", mustParse(t, "http://example.com/"))

		if result.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", result.Title)
		}
	})

	t.Run("ignores non-navigational schemes and fragments", func(t *testing.T) {
		t.Parallel()

		page := `<html><body>
			<a href="mailto:a@example.com">Mail</a>
			<a href="javascript:void(0)">JS</a>
			<a href="tel:+123456">Call</a>
			<a href="data:text/plain,hi">Data</a>
			<a href="#section">Anchor</a>
			<a href="">Empty</a>
			<a>No href</a>
			<a href="/real">Real</a>
		</body></html>`

		result := Extract([]byte(page), "text/html", mustParse(t, "http://example.com/"))

		if len(result.Links) != 1 || result.Links[0] != "http://example.com/real" {
			t.Errorf("expected only the real link, got %v", result.Links)
		}
	})

	t.Run("honors base tag", func(t *testing.T) {
		t.Parallel()

		page := `<html><head><base href="http://example.com/docs/"></head><body>
			<a href="intro">Intro</a>
		</body></html>`

		result := Extract([]byte(page), "text/html", mustParse(t, "http://example.com/x/y"))

		if len(result.Links) != 1 || result.Links[0] != "http://example.com/docs/intro" {
			t.Errorf("expected link resolved against base tag, got %v", result.Links)
		}
	})

	t.Run("deduplicates links within a page", func(t *testing.T) {
		t.Parallel()

		page := `<html><body>
			<a href="/a">One</a>
			<a href="/a">Two</a>
			<a href="/b">Three</a>
		</body></html>`

		result := Extract([]byte(page), "text/html", mustParse(t, "http://example.com/"))

		if len(result.Links) != 2 {
			t.Errorf("expected 2 unique links, got %v", result.Links)
		}
	})

	t.Run("non-HTML content yields no links", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"link": "http://example.com/api"}`)
		result := Extract(body, "application/json", mustParse(t, "http://example.com/"))

		if len(result.Links) != 0 {
			t.Errorf("expected no links from JSON, got %v", result.Links)
		}
	})

	t.Run("malformed markup still yields links", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><a href="/ok">ok<div><a href="/also-ok"` // truncated
		result := Extract([]byte(page), "text/html", mustParse(t, "http://example.com/"))

		if len(result.Links) == 0 {
			t.Error("expected links recovered from malformed markup")
		}
	})

	t.Run("decodes non-UTF-8 pages", func(t *testing.T) {
		t.Parallel()

		// "Señal" in ISO-8859-1; ñ is 0xF1.
		raw := []byte("<html><head><title>Se\xf1al</title></head><body><a href=\"/p\">x</a></body></html>")

		// Sanity check the fixture really is Latin-1.
		if _, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err != nil {
			t.Fatalf("bad fixture: %v", err)
		}

		result := Extract(raw, "text/html; charset=iso-8859-1", mustParse(t, "http://example.com/"))

		if result.Title != "Señal" {
			t.Errorf("expected decoded title 'Señal', got %q", result.Title)
		}
		if len(result.Links) != 1 {
			t.Errorf("expected 1 link, got %v", result.Links)
		}
	})
}
