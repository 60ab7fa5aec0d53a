package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/wneessen/go-mail"
)

// Delivery stages reported by DeliveryError
const (
	StageCompose = "compose"
	StageConnect = "connect"
	StageAuth    = "auth"
	StageSend    = "send"
)

// DeliveryError is a failed email delivery attempt
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery failed at %s: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Sender delivers one message with the given credentials
type Sender interface {
	Send(ctx context.Context, ec config.EmailConfig, msg AlertMessage) error
}

// SMTPSender sends mail over SMTP with mandatory STARTTLS
type SMTPSender struct{}

// Send makes exactly one delivery attempt bounded by ec.Timeout.
// Failures are returned as *DeliveryError.
func (SMTPSender) Send(ctx context.Context, ec config.EmailConfig, msg AlertMessage) error {
	m, err := composeMessage(ec, msg)
	if err != nil {
		return &DeliveryError{Stage: StageCompose, Err: err}
	}

	opts := []mail.Option{
		mail.WithPort(ec.SMTPPort),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(ec.SenderEmail),
		mail.WithPassword(ec.SenderCredential),
	}
	if ec.Timeout > 0 {
		opts = append(opts,
			mail.WithTimeout(ec.Timeout),
			mail.WithDialContextFunc(deadlineDialer(ec.Timeout)),
		)

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ec.Timeout)
		defer cancel()
	}

	client, err := mail.NewClient(ec.SMTPServer, opts...)
	if err != nil {
		return &DeliveryError{Stage: StageConnect, Err: err}
	}

	if err := client.DialWithContext(ctx); err != nil {
		return &DeliveryError{Stage: dialStage(err), Err: err}
	}
	defer client.Close()

	if err := client.Send(m); err != nil {
		return &DeliveryError{Stage: StageSend, Err: err}
	}
	return nil
}

// deadlineDialer dials TCP and sets a read/write deadline on the connection,
// so a server that accepts but never answers cannot stall the exchange.
// go-mail extends the deadline before each message it sends.
func deadlineDialer(timeout time.Duration) mail.DialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func composeMessage(ec config.EmailConfig, msg AlertMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(ec.SenderEmail); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(ec.RecipientEmail); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	if msg.GeneratedAt.IsZero() {
		m.SetDate()
	} else {
		m.SetDateWithValue(msg.GeneratedAt)
	}
	return m, nil
}

// dialStage tells authentication failures apart from connection failures.
// Dialing covers connect, STARTTLS and AUTH.
func dialStage(err error) string {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535:
			return StageAuth
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "auth") {
		return StageAuth
	}
	return StageConnect
}

// IsAuthError reports whether err is an SMTP authentication failure
func IsAuthError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Stage == StageAuth
}
