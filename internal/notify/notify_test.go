package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/logging"
)

type fakeSender struct {
	calls []config.EmailConfig
	sent  []AlertMessage
	err   error
}

func (f *fakeSender) Send(_ context.Context, ec config.EmailConfig, msg AlertMessage) error {
	f.calls = append(f.calls, ec)
	f.sent = append(f.sent, msg)
	return f.err
}

type staticNotifier struct {
	name   string
	result bool
	calls  int
}

func (s *staticNotifier) Name() string { return s.name }

func (s *staticNotifier) Notify(context.Context, AlertMessage) bool {
	s.calls++
	return s.result
}

func completeSection() config.Email {
	return config.Email{
		SMTPServer:       "smtp.example.com",
		SMTPPort:         587,
		SenderEmail:      "monitor@example.com",
		SenderCredential: "app-password",
		RecipientEmail:   "runner@example.com",
		Timeout:          "5s",
	}
}

func clearEmailEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvSMTPServer, config.EnvSMTPPort, config.EnvSenderEmail,
		config.EnvSenderCredential, config.EnvRecipientEmail,
		"SENDER_EMAIL", "SENDER_PASSWORD", "RECIPIENT_EMAIL",
	} {
		t.Setenv(key, "")
	}
}

func alert() AlertMessage {
	return AlertMessage{
		Subject:     "Race registration alert: phrase not found",
		Body:        "Please check immediately: https://example.com/race\n\nMonitoring phrase: \"ingen plasser\"",
		GeneratedAt: time.Date(2025, 3, 1, 6, 0, 0, 0, time.Local),
	}
}

func TestEmailNotifierMissingConfig(t *testing.T) {
	clearEmailEnv(t)

	var buf bytes.Buffer
	sender := &fakeSender{}
	section := completeSection()
	section.SenderCredential = ""

	n := NewEmailNotifier(section, sender, logging.NewWriter("notify-test", &buf))

	if n.Notify(context.Background(), alert()) {
		t.Error("Expected Notify to report failure")
	}
	if len(sender.calls) != 0 {
		t.Errorf("Expected no send attempt, got %d", len(sender.calls))
	}
	if !strings.Contains(buf.String(), "sender_credential") {
		t.Errorf("Log missing the missing key:\n%s", buf.String())
	}

	_, err := n.Deliver(context.Background(), alert())
	if !errors.Is(err, config.ErrConfigMissing) {
		t.Errorf("Expected ErrConfigMissing, got %v", err)
	}
}

func TestEmailNotifierSendsOnce(t *testing.T) {
	clearEmailEnv(t)

	var buf bytes.Buffer
	sender := &fakeSender{}
	n := NewEmailNotifier(completeSection(), sender, logging.NewWriter("notify-test", &buf))

	if !n.Notify(context.Background(), alert()) {
		t.Fatal("Expected Notify to succeed")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Expected one send, got %d", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Body, "https://example.com/race") {
		t.Errorf("Body missing URL: %s", sender.sent[0].Body)
	}
	if !strings.Contains(sender.sent[0].Body, `"ingen plasser"`) {
		t.Errorf("Body missing phrase: %s", sender.sent[0].Body)
	}
	if sender.calls[0].Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %s", sender.calls[0].Timeout)
	}
	if !strings.Contains(buf.String(), "Email alert sent successfully to runner@example.com") {
		t.Errorf("Log missing success line:\n%s", buf.String())
	}
}

func TestEmailNotifierAuthFailure(t *testing.T) {
	clearEmailEnv(t)

	var buf bytes.Buffer
	authErr := &DeliveryError{
		Stage: StageAuth,
		Err:   fmt.Errorf("SMTP AUTH failed: %w", &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}),
	}
	sender := &fakeSender{err: authErr}
	n := NewEmailNotifier(completeSection(), sender, logging.NewWriter("notify-test", &buf))

	if n.Notify(context.Background(), alert()) {
		t.Error("Expected Notify to report failure")
	}
	if len(sender.calls) != 1 {
		t.Errorf("Expected exactly one attempt, got %d", len(sender.calls))
	}
	if !strings.Contains(buf.String(), "Username and Password not accepted") {
		t.Errorf("Log missing cause:\n%s", buf.String())
	}
}

func TestDialStage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"535", fmt.Errorf("SMTP AUTH failed: %w", &textproto.Error{Code: 535, Msg: "bad credentials"}), StageAuth},
		{"534", &textproto.Error{Code: 534, Msg: "application-specific password required"}, StageAuth},
		{"auth text", errors.New("server does not support SMTP AUTH"), StageAuth},
		{"refused", errors.New("dial tcp 127.0.0.1:587: connect: connection refused"), StageConnect},
		{"starttls", &textproto.Error{Code: 454, Msg: "TLS not available"}, StageConnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dialStage(tt.err); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIsAuthError(t *testing.T) {
	err := fmt.Errorf("test email: %w", &DeliveryError{Stage: StageAuth, Err: errors.New("535")})
	if !IsAuthError(err) {
		t.Error("Expected auth error")
	}
	if IsAuthError(&DeliveryError{Stage: StageSend, Err: errors.New("552")}) {
		t.Error("Send failure is not an auth error")
	}
}

func TestComposeMessageRejectsBadAddress(t *testing.T) {
	ec := config.EmailConfig{SenderEmail: "not an address", RecipientEmail: "runner@example.com"}
	if _, err := composeMessage(ec, alert()); err == nil {
		t.Error("Expected error for invalid sender")
	}

	ec.SenderEmail = "monitor@example.com"
	if _, err := composeMessage(ec, alert()); err != nil {
		t.Errorf("composeMessage failed: %v", err)
	}
}

func TestDispatcher(t *testing.T) {
	failing := &staticNotifier{name: "email", result: false}
	working := &staticNotifier{name: "webhook", result: true}

	d := NewDispatcher(failing, nil, working)
	if len(d.Notifiers()) != 2 {
		t.Fatalf("Expected nil notifier to be skipped, got %d", len(d.Notifiers()))
	}

	if !d.Dispatch(context.Background(), alert()) {
		t.Error("Expected delivery when one notifier succeeds")
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("Expected one call each, got %d and %d", failing.calls, working.calls)
	}

	if NewDispatcher(failing).Dispatch(context.Background(), alert()) {
		t.Error("Expected no delivery when all notifiers fail")
	}
	if NewDispatcher().Dispatch(context.Background(), alert()) {
		t.Error("Expected no delivery without notifiers")
	}
}

func TestDispatcherIgnoresAdvisoryDelivery(t *testing.T) {
	clearEmailEnv(t)

	orig := notifyFunc
	shown := 0
	notifyFunc = func(_, _, _, _ string) { shown++ }
	defer func() { notifyFunc = orig }()

	// Email without credentials fails; the desktop notification is still shown
	email := NewEmailNotifier(config.Email{}, &fakeSender{}, nil)
	d := NewDispatcher(email, NewDesktopNotifier(true, nil))

	if d.Dispatch(context.Background(), alert()) {
		t.Error("Expected no delivery when only the desktop notification was shown")
	}
	if shown != 1 {
		t.Errorf("Expected the desktop notification to be shown once, got %d", shown)
	}

	sender := &fakeSender{}
	section := completeSection()
	d = NewDispatcher(NewEmailNotifier(section, sender, nil), NewDesktopNotifier(true, nil))
	if !d.Dispatch(context.Background(), alert()) {
		t.Error("Expected delivery when email was sent")
	}
}

func TestDesktopNotifier(t *testing.T) {
	var title string
	orig := notifyFunc
	notifyFunc = func(_, shown, _, _ string) { title = shown }
	defer func() { notifyFunc = orig }()

	if NewDesktopNotifier(false, nil).Notify(context.Background(), alert()) {
		t.Error("Disabled notifier should not deliver")
	}
	if title != "" {
		t.Error("Disabled notifier should not show anything")
	}

	if !NewDesktopNotifier(true, nil).Notify(context.Background(), alert()) {
		t.Error("Expected delivery")
	}
	if title != alert().Subject {
		t.Errorf("Expected title %q, got %q", alert().Subject, title)
	}
}
