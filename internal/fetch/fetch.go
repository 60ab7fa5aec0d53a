package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodyBytes caps how much of a page is read
const maxBodyBytes = 16 << 20

// Browser-like request headers; some sites answer plain Go clients with a
// bot-check page that never contains the watched phrase.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	DefaultAcceptLanguage = "no,nb;q=0.9,en;q=0.8"
)

// Response is a fully read 2xx response
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher retrieves a URL. Implementations return *NetworkError when no
// response was received and *HTTPError for non-2xx statuses.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
	Close()
}

// Options configures a Fetcher
type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	Headers            map[string]string // merged over the browser defaults
}

// New creates the fetcher named by client ("standard" or "browser")
func New(client string, opts Options) (Fetcher, error) {
	switch strings.ToLower(client) {
	case "", "standard":
		return NewHTTPFetcher(opts), nil
	case "browser":
		return NewBrowserFetcher(opts)
	default:
		return nil, fmt.Errorf("unknown fetch client: %s", client)
	}
}

// RequestHeaders returns the browser defaults with extra merged over them
func RequestHeaders(extra map[string]string) map[string]string {
	headers := map[string]string{
		"User-Agent":      DefaultUserAgent,
		"Accept":          DefaultAccept,
		"Accept-Language": DefaultAcceptLanguage,
	}
	for key, value := range extra {
		headers[http.CanonicalHeaderKey(key)] = value
	}
	return headers
}

// HTTPFetcher fetches pages with net/http
type HTTPFetcher struct {
	client  *http.Client
	headers map[string]string
}

// NewHTTPFetcher creates a new net/http based fetcher
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		// Certificate validation is disabled on purpose for this fetcher;
		// see fetch.insecure_skip_verify.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		headers: RequestHeaders(opts.Headers),
	}
}

// Close closes the HTTP client's connection pool
func (h *HTTPFetcher) Close() {
	if h.client != nil {
		h.client.CloseIdleConnections()
	}
}

// Fetch performs a GET request and reads the whole body
func (h *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
