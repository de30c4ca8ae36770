package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// StatusClass classifies the outcome of a fetch attempt.
type StatusClass int

const (
	// Success is a 2xx (or followed-redirect) response.
	Success StatusClass = iota

	// ClientError is a 4xx response.
	ClientError

	// ServerError is a 5xx response.
	ServerError

	// NetworkFailure means no usable HTTP response was obtained after the
	// retry budget was exhausted: DNS failure, refused connection, reset,
	// or timeout.
	NetworkFailure
)

// String returns a human-readable name for the status class.
func (c StatusClass) String() string {
	switch c {
	case Success:
		return "success"
	case ClientError:
		return "client_error"
	case ServerError:
		return "server_error"
	case NetworkFailure:
		return "network_failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of fetching one URL.
type Result struct {
	// URL is the URL that was requested.
	URL string

	// Class is the coarse outcome classification.
	Class StatusClass

	// StatusCode is the HTTP status code, or 0 when no response was
	// received (Class == NetworkFailure).
	StatusCode int

	// ContentType is the Content-Type header of the response, if any.
	ContentType string

	// Body holds the response body for successful fetches, bounded by the
	// fetcher's body size limit. Nil for all other outcomes.
	Body []byte

	// Err is the final network error for NetworkFailure results.
	Err error

	// Attempts is the number of requests made, including retries.
	Attempts int
}

// Default fetcher settings. The crawl engine overrides these from its
// configuration; the constants exist so the fetcher is usable standalone.
const (
	// DefaultTimeout is the per-request deadline.
	DefaultTimeout = 15 * time.Second

	// DefaultRetryBudget is the number of retries after the first attempt
	// for transient network failures.
	DefaultRetryBudget = 2

	// DefaultBackoffBase is the first retry delay; it doubles per attempt.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultMaxBodySize bounds how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies webwalk in request logs.
	DefaultUserAgent = "webwalk/1.0 (+https://github.com/nao1215/webwalk)"
)

// Fetcher retrieves URLs over HTTP(S).
// It is safe for concurrent use; the politeness limiter, when set, is
// shared across all callers so the whole pool respects one request rate.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	retryBudget int
	backoffBase time.Duration
	limiter     *rate.Limiter
	headers     map[string]string
	cookie      string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithRetryBudget sets how many times a transient failure is retried.
// Zero disables retries entirely.
func WithRetryBudget(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retryBudget = n
		}
	}
}

// WithBackoffBase sets the initial retry delay. The delay doubles on each
// subsequent attempt.
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.backoffBase = d
		}
	}
}

// WithMaxBodySize bounds the number of response body bytes read.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithDelay enforces a minimum interval between requests across all
// callers sharing this Fetcher. Zero disables the limiter.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithHeaders sets extra request headers, e.g. site-specific
// authentication from the configuration file.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithCookie sets a Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithClient replaces the underlying HTTP client. Used by tests to
// inject transports; the configured timeout is preserved on the new
// client only if it has none of its own.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client.Timeout == 0 {
			client.Timeout = f.client.Timeout
		}
		f.client = client
	}
}

// New creates a Fetcher with default settings, adjusted by opts.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		retryBudget: DefaultRetryBudget,
		backoffBase: DefaultBackoffBase,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves url and classifies the outcome. Transient network
// failures are retried up to the retry budget with exponential backoff;
// HTTP 4xx/5xx responses are terminal and returned immediately.
//
// Cancellation of ctx stops retries and is reported as a NetworkFailure
// carrying the context error.
func (f *Fetcher) Fetch(ctx context.Context, url string) Result {
	result := Result{URL: url}

	for attempt := 0; ; attempt++ {
		result.Attempts = attempt + 1

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				result.Class = NetworkFailure
				result.Err = err
				return result
			}
		}

		resp, err := f.do(ctx, url)
		if err == nil {
			f.classify(resp, &result)
			return result
		}

		result.Err = err

		if !IsTransient(err) || attempt >= f.retryBudget {
			result.Class = NetworkFailure
			return result
		}

		// Exponential backoff: base, 2*base, 4*base, ...
		backoff := f.backoffBase << uint(attempt)
		select {
		case <-ctx.Done():
			result.Class = NetworkFailure
			result.Err = ctx.Err()
			return result
		case <-time.After(backoff):
		}
	}
}

// do performs a single GET request.
func (f *Fetcher) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	return f.client.Do(req)
}

// classify fills result from an HTTP response, reading the body only for
// successful responses.
func (f *Fetcher) classify(resp *http.Response, result *Result) {
	defer func() {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	switch {
	case resp.StatusCode >= 500:
		result.Class = ServerError
	case resp.StatusCode >= 400:
		result.Class = ClientError
	default:
		result.Class = Success

		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
		if err != nil {
			// The connection died mid-body. The page was reachable, but
			// without its content it cannot be parsed for links.
			result.Class = NetworkFailure
			result.StatusCode = 0
			result.Err = err
			return
		}
		result.Body = body
	}
}

// IsTransient reports whether err looks like a failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Timeouts, refused connections, resets, and DNS failures all surface
	// as url.Error values from the client; all are retryable from the
	// crawler's perspective.
	return true
}

// IsHTML reports whether contentType indicates an HTML document.
func IsHTML(contentType string) bool {
	mediaType := contentType
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
