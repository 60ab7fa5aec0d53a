package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcherSendsBrowserHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Accept-Language") != DefaultAcceptLanguage {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("X-Custom") != "yes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(Options{Timeout: time.Second, Headers: map[string]string{"x-custom": "yes"}})
	defer f.Close()

	resp, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(resp.Body) != "<html>ok</html>" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestHTTPFetcherNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(Options{Timeout: time.Second})
	defer f.Close()

	_, err := f.Fetch(context.Background(), ts.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", httpErr.StatusCode)
	}
	if httpErr.Reason != "Service Unavailable" {
		t.Errorf("Unexpected reason %q", httpErr.Reason)
	}
}

func TestHTTPFetcherFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved here"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := NewHTTPFetcher(Options{Timeout: time.Second})
	defer f.Close()

	resp, err := f.Fetch(context.Background(), ts.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(resp.Body) != "moved here" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	f := NewHTTPFetcher(Options{Timeout: 50 * time.Millisecond})
	defer f.Close()

	_, err := f.Fetch(context.Background(), ts.URL)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %v", err)
	}
	if !netErr.Timeout() || !IsTimeout(err) {
		t.Errorf("Expected a timeout, got %v", err)
	}
}

func TestHTTPFetcherConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	f := NewHTTPFetcher(Options{Timeout: time.Second})
	defer f.Close()

	_, err = f.Fetch(context.Background(), "http://"+addr)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %v", err)
	}
	if netErr.Timeout() {
		t.Errorf("Connection refused should not be a timeout")
	}
}

func TestHTTPFetcherTLSVerification(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure"))
	}))
	defer ts.Close()

	// The test server uses a self-signed certificate
	strict := NewHTTPFetcher(Options{Timeout: time.Second})
	defer strict.Close()
	if _, err := strict.Fetch(context.Background(), ts.URL); err == nil {
		t.Error("Expected certificate error with verification enabled")
	}

	insecure := NewHTTPFetcher(Options{Timeout: time.Second, InsecureSkipVerify: true})
	defer insecure.Close()
	resp, err := insecure.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch with verification disabled failed: %v", err)
	}
	if string(resp.Body) != "secure" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
}

func TestNew(t *testing.T) {
	f, err := New("standard", Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("New(standard) failed: %v", err)
	}
	if _, ok := f.(*HTTPFetcher); !ok {
		t.Errorf("Expected *HTTPFetcher, got %T", f)
	}
	f.Close()

	if _, err := New("curl", Options{}); err == nil {
		t.Error("Expected error for unknown client")
	}
}

func TestRequestHeaders(t *testing.T) {
	headers := RequestHeaders(map[string]string{"accept-language": "en-US"})
	if headers["Accept-Language"] != "en-US" {
		t.Errorf("Expected override, got %q", headers["Accept-Language"])
	}
	if headers["User-Agent"] != DefaultUserAgent {
		t.Errorf("Expected default user agent, got %q", headers["User-Agent"])
	}
}
