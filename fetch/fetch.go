// Package fetch performs the outbound HTTP GETs for listing pages and article
// pages. Every request carries a fixed browser-like identity header and a
// bounded timeout; every failure is reported as a typed *Error so callers can
// tell transport problems apart from empty pages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds each request so a single hanging source cannot stall
// a whole run.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent is the identity sent with every request. Several of the
// regulators reject requests that identify as a non-browser client.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Error is a failed fetch: either a transport-level failure (DNS, timeout,
// reset) or a non-2xx response. StatusCode is zero when the request never
// completed.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher issues single GET requests with a shared client. It is safe for
// concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New creates a Fetcher. A non-positive timeout falls back to DefaultTimeout
// and an empty userAgent falls back to DefaultUserAgent.
func New(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch GETs rawURL and returns the response body. Transport failures and
// non-2xx statuses both come back as a *Error; a parsing stage never runs on
// a non-success response.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return body, nil
}
