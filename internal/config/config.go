package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTargetName   = "Bislett 24-timers"
	DefaultTargetURL    = "https://www.romerikeultra.no/next/p/24684/bislett-24-timers"
	DefaultPhrase       = "Det er i øyeblikket ingen plasser til salgs"
	DefaultTimeout      = "30s"
	DefaultClient       = "standard"
	DefaultDecodePolicy = "ignore"
	DefaultLogFile      = "lookout.log"
	DefaultProxyListen  = ":9097"
	DefaultSMTPServer   = "smtp.gmail.com"
	DefaultSMTPPort     = 587
	DefaultSMTPTimeout  = "30s"
)

// DefaultScheduleTimes is the daily time table, local wall-clock.
var DefaultScheduleTimes = []string{
	"06:00", "08:30", "10:00", "12:00", "14:00",
	"16:00", "18:00", "20:00", "22:00", "23:30",
}

// Known values for fetch.client and fetch.decode_policy
var (
	Clients        = []string{"standard", "browser"}
	DecodePolicies = []string{"ignore", "replace", "strict"}
)

// Config represents the lookout configuration
type Config struct {
	Target               Target   `yaml:"target"`
	Fetch                Fetch    `yaml:"fetch"`
	Email                Email    `yaml:"email"`
	Schedule             Schedule `yaml:"schedule"`
	Proxy                Proxy    `yaml:"proxy"`
	LogFile              string   `yaml:"log_file"`
	DesktopNotifications bool     `yaml:"desktop_notifications"`
}

// Target is the page being watched and the phrase expected on it
type Target struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Phrase string `yaml:"phrase"`
}

// Fetch controls how the page is requested and decoded
type Fetch struct {
	Timeout            string            `yaml:"timeout"`
	Client             string            `yaml:"client"` // "standard" or "browser"
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"`
	DecodePolicy       string            `yaml:"decode_policy"` // "ignore", "replace" or "strict"
	Headers            map[string]string `yaml:"headers,omitempty"`
}

// Email holds the alert delivery settings as written in the config file.
// Values may reference environment variables with ${VAR}.
type Email struct {
	SMTPServer       string `yaml:"smtp_server"`
	SMTPPort         int    `yaml:"smtp_port"`
	SenderEmail      string `yaml:"sender_email"`
	SenderCredential string `yaml:"sender_credential"`
	RecipientEmail   string `yaml:"recipient_email"`
	Timeout          string `yaml:"timeout"`
	LegacyFile       string `yaml:"legacy_file,omitempty"` // email_config.json from older installs
}

// Schedule is the fixed daily time table for `lookout schedule`
type Schedule struct {
	Times      []string `yaml:"times"`
	RunOnStart bool     `yaml:"run_on_start"`
}

// Proxy configures the forwarding proxy
type Proxy struct {
	Listen string `yaml:"listen"`
}

// Default returns a configuration populated with defaults
func Default() *Config {
	times := make([]string, len(DefaultScheduleTimes))
	copy(times, DefaultScheduleTimes)

	return &Config{
		Target: Target{
			Name:   DefaultTargetName,
			URL:    DefaultTargetURL,
			Phrase: DefaultPhrase,
		},
		Fetch: Fetch{
			Timeout:            DefaultTimeout,
			Client:             DefaultClient,
			InsecureSkipVerify: true,
			DecodePolicy:       DefaultDecodePolicy,
		},
		Email: Email{
			Timeout: DefaultSMTPTimeout,
		},
		Schedule: Schedule{
			Times:      times,
			RunOnStart: true,
		},
		Proxy: Proxy{
			Listen: DefaultProxyListen,
		},
		LogFile:              DefaultLogFile,
		DesktopNotifications: true,
	}
}

// GetConfigPath returns the path to the global config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "lookout", "config.yml"), nil
}

// InitConfig creates the config directory and writes the default config to path
func InitConfig(path string, force bool) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(getDefaultConfig()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads and parses the config file at path. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.resolveEnv()

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when no file
// exists at path. found reports whether a file was read. It never creates
// files; that is left to the caller (see InitConfig).
func LoadOrDefault(path string) (cfg *Config, found bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.resolveEnv()
		return cfg, false, nil
	}
	return nil, false, err
}

// SaveConfig writes the config to path
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable for polling
func (c *Config) Validate() error {
	u, err := url.Parse(c.Target.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("target url must be an absolute http(s) URL, got %q", c.Target.URL)
	}
	if c.Target.Phrase == "" {
		return fmt.Errorf("target phrase must not be empty")
	}

	if _, err := c.Fetch.TimeoutDuration(); err != nil {
		return err
	}
	if !contains(Clients, c.Fetch.Client) {
		return fmt.Errorf("unknown fetch client %q (want one of %s)", c.Fetch.Client, strings.Join(Clients, ", "))
	}
	if !contains(DecodePolicies, c.Fetch.DecodePolicy) {
		return fmt.Errorf("unknown decode policy %q (want one of %s)", c.Fetch.DecodePolicy, strings.Join(DecodePolicies, ", "))
	}

	for _, t := range c.Schedule.Times {
		if _, _, err := ParseClock(t); err != nil {
			return err
		}
	}

	return nil
}

// TimeoutDuration parses the fetch timeout
func (f Fetch) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid fetch timeout %q: %w", f.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("fetch timeout must be positive, got %s", f.Timeout)
	}
	return d, nil
}

// ParseClock parses an "HH:MM" wall-clock time
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule time %q (want HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}

// resolveEnv expands ${VAR} placeholders in the string settings
func (c *Config) resolveEnv() {
	c.Target.URL = ResolveEnv(c.Target.URL)
	c.Target.Phrase = ResolveEnv(c.Target.Phrase)
	c.Email.SMTPServer = ResolveEnv(c.Email.SMTPServer)
	c.Email.SenderEmail = ResolveEnv(c.Email.SenderEmail)
	c.Email.SenderCredential = ResolveEnv(c.Email.SenderCredential)
	c.Email.RecipientEmail = ResolveEnv(c.Email.RecipientEmail)
	c.Email.LegacyFile = ResolveEnv(c.Email.LegacyFile)
	c.LogFile = ResolveEnv(c.LogFile)
	for key, value := range c.Fetch.Headers {
		c.Fetch.Headers[key] = ResolveEnv(value)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// getDefaultConfig returns the default configuration as YAML
func getDefaultConfig() string {
	return fmt.Sprintf(`# Lookout Configuration
# The page to watch. An alert is sent when the phrase is NOT found.
target:
  name: %s
  url: %s
  phrase: "%s"

fetch:
  timeout: %s
  client: %s              # standard or browser (Chrome TLS fingerprint)
  insecure_skip_verify: true    # certificate validation is disabled
  decode_policy: %s         # ignore, replace or strict

# Alert delivery. Leave sender/recipient empty to disable email alerts.
# Values may reference environment variables, e.g. ${LOOKOUT_SENDER_CREDENTIAL}
email:
  smtp_server: %s
  smtp_port: %d
  sender_email: ""
  sender_credential: ""
  recipient_email: ""
  timeout: %s

schedule:
  run_on_start: true
  times: [%s]

proxy:
  listen: "%s"

log_file: %s
desktop_notifications: true
`,
		DefaultTargetName, DefaultTargetURL, DefaultPhrase,
		DefaultTimeout, DefaultClient, DefaultDecodePolicy,
		DefaultSMTPServer, DefaultSMTPPort, DefaultSMTPTimeout,
		quoteList(DefaultScheduleTimes),
		DefaultProxyListen, DefaultLogFile)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = `"` + item + `"`
	}
	return strings.Join(quoted, ", ")
}

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ResolveEnv replaces environment variable placeholders with actual values.
// Only the ${VAR_NAME} form is expanded so a bare "$" in a phrase survives.
func ResolveEnv(value string) string {
	return envPlaceholder.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
