package monitor

import "time"

// Status is the outcome of a single phrase check
type Status string

const (
	// StatusClosed means the phrase was found; registration is still closed
	StatusClosed Status = "closed"
	// StatusOpen means the page loaded but the phrase is gone
	StatusOpen Status = "open"
	// StatusError means the page could not be fetched or decoded
	StatusError Status = "error"
)

// CheckResult is produced once per check and only ever logged
type CheckResult struct {
	Success    bool
	Status     Status
	CheckedAt  time.Time
	Duration   time.Duration
	StatusCode int
	Err        error
	Message    string
}

// Outcome is what one monitoring cycle did
type Outcome struct {
	RunID     string
	Result    CheckResult
	Alerted   bool // an alert was composed and dispatched
	Delivered bool // a non-advisory notifier (email) delivered it
}
