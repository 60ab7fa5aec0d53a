package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/fetch"
	"github.com/juststeveking/lookout/internal/logging"
	"github.com/juststeveking/lookout/internal/notify"
)

// Monitor runs monitoring cycles: one check, then at most one alert
type Monitor struct {
	Config     *config.Config
	poller     *Poller
	fetcher    fetch.Fetcher
	dispatcher *notify.Dispatcher
	log        *logging.Logger
	newRunID   func() string
}

// Option customizes a Monitor
type Option func(*Monitor)

// WithFetcher replaces the fetcher built from the config
func WithFetcher(f fetch.Fetcher) Option {
	return func(m *Monitor) {
		m.fetcher = f
	}
}

// WithNotifiers replaces the email and desktop notifiers
func WithNotifiers(notifiers ...notify.Notifier) Option {
	return func(m *Monitor) {
		m.dispatcher = notify.NewDispatcher(notifiers...)
	}
}

// WithRunID replaces the run ID generator
func WithRunID(fn func() string) Option {
	return func(m *Monitor) {
		m.newRunID = fn
	}
}

// NewMonitor creates a new monitor instance
func NewMonitor(cfg *config.Config, log *logging.Logger, opts ...Option) (*Monitor, error) {
	if log == nil {
		log = logging.Discard()
	}

	policy, err := ParseDecodePolicy(cfg.Fetch.DecodePolicy)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		Config:   cfg,
		log:      log,
		newRunID: NewRunID,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.fetcher == nil {
		timeout, err := cfg.Fetch.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		m.fetcher, err = fetch.New(cfg.Fetch.Client, fetch.Options{
			Timeout:            timeout,
			InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
			Headers:            cfg.Fetch.Headers,
		})
		if err != nil {
			return nil, err
		}
	}

	if m.dispatcher == nil {
		m.dispatcher = notify.NewDispatcher(
			notify.NewEmailNotifier(cfg.Email, nil, log),
			notify.NewDesktopNotifier(cfg.DesktopNotifications, log),
		)
	}

	m.poller = NewPoller(cfg.Target, m.fetcher, policy)
	return m, nil
}

// NewRunID returns a short random identifier for a cycle
func NewRunID() string {
	return uuid.NewString()[:8]
}

// RunOnce performs a single cycle. Every failure is logged and reflected in
// the Outcome; nothing is returned as an error and nothing panics. The
// completion line is logged only when the page was checked.
func (m *Monitor) RunOnce(ctx context.Context) (out Outcome) {
	out.RunID = m.newRunID()
	log := m.log.WithPrefix("[" + out.RunID + "]")

	defer func() {
		if r := recover(); r != nil {
			out.Result = CheckResult{
				Status:    StatusError,
				CheckedAt: time.Now(),
				Err:       fmt.Errorf("unexpected failure: %v", r),
			}
			log.Errorf("Error checking website: %v", r)
		}
	}()

	target := m.Config.Target
	log.Infof("=== %s monitor started ===", target.Name)
	log.Infof("Monitoring URL: %s", target.URL)
	log.Infof("Looking for phrase: '%s'", target.Phrase)

	out.Result = m.poller.Check(ctx)
	result := out.Result

	if !result.Success {
		log.Errorf("Error checking website: %v", result.Err)
		log.Warnf("Failed to check website - will try again next time")
		return out
	}

	if result.Status == StatusClosed {
		log.Infof("✓ Phrase found - registration still closed")
		log.Infof("=== Check completed ===")
		return out
	}

	log.Warnf("⚠️ PHRASE NOT FOUND - REGISTRATION MIGHT BE OPEN!")

	out.Alerted = true
	out.Delivered = m.dispatcher.Dispatch(ctx, BuildAlert(target, result))
	if !out.Delivered {
		log.Errorf("Alert could not be delivered")
	}

	log.Infof("=== Check completed ===")
	return out
}

// Close releases the fetcher's connections
func (m *Monitor) Close() {
	if m.fetcher != nil {
		m.fetcher.Close()
	}
}
