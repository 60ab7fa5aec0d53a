package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/fetch"
)

// Poller fetches the target page and looks for the phrase
type Poller struct {
	target  config.Target
	fetcher fetch.Fetcher
	policy  DecodePolicy
}

// NewPoller creates a poller for target
func NewPoller(target config.Target, fetcher fetch.Fetcher, policy DecodePolicy) *Poller {
	return &Poller{
		target:  target,
		fetcher: fetcher,
		policy:  policy,
	}
}

// Check performs one fetch and one case-sensitive substring test.
// It never retries.
func (p *Poller) Check(ctx context.Context) CheckResult {
	result := CheckResult{
		Status:    StatusError,
		CheckedAt: time.Now(),
	}

	start := time.Now()
	resp, err := p.fetcher.Fetch(ctx, p.target.URL)
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = err

		var httpErr *fetch.HTTPError
		switch {
		case errors.As(err, &httpErr):
			result.StatusCode = httpErr.StatusCode
			result.Message = fmt.Sprintf("HTTP %d", httpErr.StatusCode)
		case fetch.IsTimeout(err):
			result.Message = "Request timed out"
		default:
			result.Message = "Connection failed"
		}
		return result
	}

	result.StatusCode = resp.StatusCode

	text, err := Decode(resp.Body, resp.Header.Get("Content-Type"), p.policy)
	if err != nil {
		result.Err = err
		result.Message = "Undecodable response"
		return result
	}

	result.Success = true
	if strings.Contains(text, p.target.Phrase) {
		result.Status = StatusClosed
		result.Message = "Phrase found"
	} else {
		result.Status = StatusOpen
		result.Message = "Phrase not found"
	}

	return result
}
