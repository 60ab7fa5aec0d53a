package notify

import (
	"context"
	"errors"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/logging"
)

// EmailNotifier sends alerts by email. Credentials are resolved on every
// attempt so that fixing the environment takes effect on the next run.
type EmailNotifier struct {
	section config.Email
	sender  Sender
	log     *logging.Logger
}

// NewEmailNotifier creates an email notifier. A nil sender means SMTP.
func NewEmailNotifier(section config.Email, sender Sender, log *logging.Logger) *EmailNotifier {
	if sender == nil {
		sender = SMTPSender{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &EmailNotifier{
		section: section,
		sender:  sender,
		log:     log,
	}
}

// Name returns "email"
func (e *EmailNotifier) Name() string {
	return "email"
}

// Deliver loads the credentials and makes one delivery attempt. It returns
// a *config.MissingKeysError when the credentials are incomplete and a
// *DeliveryError when sending fails.
func (e *EmailNotifier) Deliver(ctx context.Context, msg AlertMessage) (config.EmailConfig, error) {
	ec, err := config.LoadEmailConfig(e.section)
	if err != nil {
		return ec, err
	}
	return ec, e.sender.Send(ctx, ec, msg)
}

// Notify delivers msg and logs the result
func (e *EmailNotifier) Notify(ctx context.Context, msg AlertMessage) bool {
	ec, err := e.Deliver(ctx, msg)
	if err != nil {
		if errors.Is(err, config.ErrConfigMissing) {
			e.log.Errorf("Email alert not sent: %v", err)
		} else {
			e.log.Errorf("Failed to send email: %v", err)
		}
		return false
	}

	e.log.Infof("Email alert sent successfully to %s", ec.RecipientEmail)
	return true
}
