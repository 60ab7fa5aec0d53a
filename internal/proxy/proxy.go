// Package proxy relays GET requests for arbitrary URLs through the same
// fetch stack the monitor uses. It is a debugging aid: point a browser at
// http://localhost:9097/https://example.com to see what lookout sees.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/juststeveking/lookout/internal/fetch"
	"github.com/juststeveking/lookout/internal/logging"
)

// Headers not copied from the upstream response. The body is relayed
// already decoded and fully read, so length and encoding are recomputed.
var skipHeaders = map[string]bool{
	"Connection":        true,
	"Transfer-Encoding": true,
	"Content-Length":    true,
	"Content-Encoding":  true,
}

const usage = "lookout proxy\n\nRequest a page with GET /<absolute-url>, e.g.\n  /https://www.example.com\n"

// Server is the forwarding proxy
type Server struct {
	fetcher fetch.Fetcher
	log     *logging.Logger
	router  chi.Router
}

// New creates a proxy server using fetcher for upstream requests
func New(fetcher fetch.Fetcher, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{
		fetcher: fetcher,
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleUsage)
	r.Get("/*", s.handleForward)

	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Proxy listening on %s", addr)
		s.log.Infof("Access URLs like: http://localhost%s/https://www.example.com", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("proxy server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Infof("Shutting down proxy...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(usage))
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	target, err := TargetURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.log.Infof("Requesting: %s", target)

	resp, err := s.fetcher.Fetch(r.Context(), target)
	if err != nil {
		var httpErr *fetch.HTTPError
		if errors.As(err, &httpErr) {
			s.log.Warnf("HTTP Error %d: %s", httpErr.StatusCode, httpErr.Reason)
			http.Error(w, httpErr.Reason, httpErr.StatusCode)
			return
		}
		s.log.Errorf("URL Error: %v", err)
		http.Error(w, fmt.Sprintf("URL Error: %v", err), http.StatusBadGateway)
		return
	}

	for key, values := range resp.Header {
		if skipHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// TargetURL extracts the absolute upstream URL from a proxy request path
func TargetURL(r *http.Request) (string, error) {
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/")
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid target %q: want /http(s)://host/path", raw)
	}
	return raw, nil
}
