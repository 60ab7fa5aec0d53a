package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// headerOrder mirrors the order Chrome sends these headers in
var headerOrder = []string{
	"accept",
	"accept-language",
	"user-agent",
}

// BrowserFetcher fetches pages with a Chrome TLS fingerprint
type BrowserFetcher struct {
	client  tls_client.HttpClient
	headers map[string]string
}

// NewBrowserFetcher creates a fetcher backed by tls-client
func NewBrowserFetcher(opts Options) (*BrowserFetcher, error) {
	timeoutSeconds := int(opts.Timeout / time.Second)
	if timeoutSeconds < 1 {
		timeoutSeconds = 1
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}
	if opts.InsecureSkipVerify {
		options = append(options, tls_client.WithInsecureSkipVerify())
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser client: %w", err)
	}

	return &BrowserFetcher{
		client:  client,
		headers: RequestHeaders(opts.Headers),
	}, nil
}

// Close closes idle connections
func (b *BrowserFetcher) Close() {
	b.client.CloseIdleConnections()
}

// Fetch performs a GET request and reads the whole body
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header = fhttp.Header{}
	for key, value := range b.headers {
		req.Header.Set(key, value)
	}
	req.Header[fhttp.HeaderOrderKey] = headerOrder

	start := time.Now()
	resp, err := b.client.Do(req)
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
		Header:     http.Header(resp.Header),
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
