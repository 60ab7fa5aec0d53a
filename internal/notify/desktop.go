package notify

import (
	"context"

	"github.com/juststeveking/lookout/internal/logging"
	"github.com/martinlindhe/notify"
)

// AppName is shown as the source of desktop notifications
const AppName = "Lookout"

// notifyFunc is replaced in tests
var notifyFunc = notify.Notify

// DesktopNotifier shows a local desktop notification. The platform backend
// reports no errors, so the notifier is advisory.
type DesktopNotifier struct {
	enabled bool
	log     *logging.Logger
}

// NewDesktopNotifier creates a desktop notifier
func NewDesktopNotifier(enabled bool, log *logging.Logger) *DesktopNotifier {
	if log == nil {
		log = logging.Discard()
	}
	return &DesktopNotifier{
		enabled: enabled,
		log:     log,
	}
}

// Name returns "desktop"
func (d *DesktopNotifier) Name() string {
	return "desktop"
}

// Advisory returns true; a shown notification is not a delivered alert
func (d *DesktopNotifier) Advisory() bool {
	return true
}

// Notify shows the alert subject as a desktop notification
func (d *DesktopNotifier) Notify(_ context.Context, msg AlertMessage) bool {
	if !d.enabled {
		return false
	}

	notifyFunc(AppName, msg.Subject, "Registration might be open!", "")
	d.log.Infof("Desktop notification shown")
	return true
}
