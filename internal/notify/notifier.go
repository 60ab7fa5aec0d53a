package notify

import (
	"context"
	"time"
)

// AlertMessage is the content of a "phrase disappeared" alert
type AlertMessage struct {
	Subject     string
	Body        string
	GeneratedAt time.Time
}

// Notifier delivers alerts over one channel. Notify never panics or returns
// an error: failures are logged by the implementation and reported as false.
type Notifier interface {
	// Name returns the channel name (e.g. "email", "desktop").
	Name() string

	// Notify makes a single delivery attempt.
	Notify(ctx context.Context, msg AlertMessage) bool
}

// Dispatcher fans an alert out to several notifiers
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher; nil notifiers are skipped
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

// Notifiers returns the configured notifiers
func (d *Dispatcher) Notifiers() []Notifier {
	return d.notifiers
}

// Advisory is implemented by notifiers whose delivery cannot be confirmed.
// They are still attempted but never count as delivering an alert.
type Advisory interface {
	Advisory() bool
}

func isAdvisory(n Notifier) bool {
	a, ok := n.(Advisory)
	return ok && a.Advisory()
}

// Dispatch sends msg once through every notifier, in order, and reports
// whether at least one non-advisory notifier delivered it.
func (d *Dispatcher) Dispatch(ctx context.Context, msg AlertMessage) bool {
	delivered := false
	for _, n := range d.notifiers {
		if n.Notify(ctx, msg) && !isAdvisory(n) {
			delivered = true
		}
	}
	return delivered
}
