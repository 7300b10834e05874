package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
)

// DefaultUserAgent is sent with every provider request.
const DefaultUserAgent = "scripture-resolver/1.0"

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 8 << 20

// Option configures a remote source.
type Option func(*httpClient)

// WithHTTPClient sets the client used for provider requests.
func WithHTTPClient(c *http.Client) Option {
	return func(h *httpClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithBaseURL overrides the provider base URL (tests, mirrors).
func WithBaseURL(base string) Option {
	return func(h *httpClient) {
		if base != "" {
			h.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(h *httpClient) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(h *httpClient) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// httpClient fetches provider JSON and maps every failure onto the
// NotFound/Unavailable taxonomy.
type httpClient struct {
	source    string
	client    *http.Client
	baseURL   string
	userAgent string
	timeout   time.Duration
}

func newHTTPClient(source, baseURL string, opts ...Option) *httpClient {
	h := &httpClient{
		source:    source,
		baseURL:   baseURL,
		userAgent: DefaultUserAgent,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = &http.Client{Timeout: h.timeout}
	}
	return h
}

// getJSON fetches baseURL+path and decodes the body into out. Any non-2xx
// status, transport error or undecodable body is Unavailable; the status is
// kept for diagnostics.
func (h *httpClient) getJSON(ctx context.Context, path string, out any) error {
	url := h.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewUnavailable(h.source, 0, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.NewUnavailable(h.source, 0, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewUnavailable(h.source, resp.StatusCode, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.NewUnavailable(h.source, resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewUnavailable(h.source, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
