package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
)

// ErrConfigMissing is returned when the email settings are incomplete.
// It disables alert delivery but never polling.
var ErrConfigMissing = errors.New("email configuration missing")

// MissingKeysError lists the email keys that could not be resolved
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfigMissing, strings.Join(e.Keys, ", "))
}

func (e *MissingKeysError) Unwrap() error {
	return ErrConfigMissing
}

// EmailConfig is the resolved set of delivery credentials
type EmailConfig struct {
	SMTPServer       string
	SMTPPort         int
	SenderEmail      string
	SenderCredential string
	RecipientEmail   string
	Timeout          time.Duration
}

// Environment variables consulted for email settings. The unprefixed names
// are kept for installs that ran the CI variant of the monitor.
const (
	EnvSMTPServer       = "LOOKOUT_SMTP_SERVER"
	EnvSMTPPort         = "LOOKOUT_SMTP_PORT"
	EnvSenderEmail      = "LOOKOUT_SENDER_EMAIL"
	EnvSenderCredential = "LOOKOUT_SENDER_CREDENTIAL"
	EnvRecipientEmail   = "LOOKOUT_RECIPIENT_EMAIL"

	envLegacySender    = "SENDER_EMAIL"
	envLegacyPassword  = "SENDER_PASSWORD"
	envLegacyRecipient = "RECIPIENT_EMAIL"
)

// LoadDotEnv loads variables from the given .env files (default ".env").
// Missing files are ignored and variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadEmailConfig resolves the delivery credentials. Sources are applied in
// order, later ones winning: legacy JSON file, config file section,
// environment. The server and port fall back to DefaultSMTPServer and
// DefaultSMTPPort. A *MissingKeysError is returned when a required key is absent.
func LoadEmailConfig(section Email) (EmailConfig, error) {
	var ec EmailConfig

	if section.LegacyFile != "" {
		legacy, err := LoadLegacyEmailFile(section.LegacyFile)
		switch {
		case err == nil:
			ec = legacy
		case errors.Is(err, os.ErrNotExist):
			// absent legacy file is not an error
		default:
			return EmailConfig{}, err
		}
	}

	merge(&ec, EmailConfig{
		SMTPServer:       section.SMTPServer,
		SMTPPort:         section.SMTPPort,
		SenderEmail:      section.SenderEmail,
		SenderCredential: section.SenderCredential,
		RecipientEmail:   section.RecipientEmail,
	})

	env, err := emailFromEnv()
	if err != nil {
		return EmailConfig{}, err
	}
	merge(&ec, env)

	// Server defaults apply only when no source named a server, so a legacy
	// file on another host is not overridden.
	if ec.SMTPServer == "" {
		ec.SMTPServer = DefaultSMTPServer
	}
	if ec.SMTPPort == 0 {
		ec.SMTPPort = DefaultSMTPPort
	}

	timeout := section.Timeout
	if timeout == "" {
		timeout = DefaultSMTPTimeout
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return EmailConfig{}, fmt.Errorf("invalid email timeout %q: %w", timeout, err)
	}
	ec.Timeout = d

	if err := ec.Validate(); err != nil {
		return ec, err
	}
	return ec, nil
}

// LoadLegacyEmailFile reads an email_config.json file
func LoadLegacyEmailFile(path string) (EmailConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EmailConfig{}, fmt.Errorf("failed to read legacy email config: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return EmailConfig{}, fmt.Errorf("invalid JSON in legacy email config %s", path)
	}

	fields := gjson.GetManyBytes(data,
		"smtp_server", "smtp_port", "sender_email", "sender_password", "recipient_email")

	return EmailConfig{
		SMTPServer:       fields[0].String(),
		SMTPPort:         int(fields[1].Int()),
		SenderEmail:      fields[2].String(),
		SenderCredential: fields[3].String(),
		RecipientEmail:   fields[4].String(),
	}, nil
}

// Validate reports the required keys that are empty
func (e EmailConfig) Validate() error {
	var missing []string
	if e.SMTPServer == "" {
		missing = append(missing, "smtp_server")
	}
	if e.SMTPPort == 0 {
		missing = append(missing, "smtp_port")
	}
	if e.SenderEmail == "" {
		missing = append(missing, "sender_email")
	}
	if e.SenderCredential == "" {
		missing = append(missing, "sender_credential")
	}
	if e.RecipientEmail == "" {
		missing = append(missing, "recipient_email")
	}

	if len(missing) > 0 {
		return &MissingKeysError{Keys: missing}
	}
	return nil
}

// MaskedCredential returns the credential with all but the last two characters hidden
func (e EmailConfig) MaskedCredential() string {
	return Mask(e.SenderCredential)
}

// Mask hides a secret for display
func Mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-2) + secret[len(secret)-2:]
}

func emailFromEnv() (EmailConfig, error) {
	ec := EmailConfig{
		SMTPServer:       os.Getenv(EnvSMTPServer),
		SenderEmail:      firstEnv(EnvSenderEmail, envLegacySender),
		SenderCredential: firstEnv(EnvSenderCredential, envLegacyPassword),
		RecipientEmail:   firstEnv(EnvRecipientEmail, envLegacyRecipient),
	}

	if port := os.Getenv(EnvSMTPPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return EmailConfig{}, fmt.Errorf("invalid %s %q: %w", EnvSMTPPort, port, err)
		}
		ec.SMTPPort = p
	}

	return ec, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// merge copies the non-empty fields of src over dst
func merge(dst *EmailConfig, src EmailConfig) {
	if src.SMTPServer != "" {
		dst.SMTPServer = src.SMTPServer
	}
	if src.SMTPPort != 0 {
		dst.SMTPPort = src.SMTPPort
	}
	if src.SenderEmail != "" {
		dst.SenderEmail = src.SenderEmail
	}
	if src.SenderCredential != "" {
		dst.SenderCredential = src.SenderCredential
	}
	if src.RecipientEmail != "" {
		dst.RecipientEmail = src.RecipientEmail
	}
}
