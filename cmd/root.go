package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "lookout",
	Short: "Watch a web page and get an email when a phrase disappears",
	Long: `Lookout fetches a single page, checks whether a known phrase is still there,
and sends an email alert when it is gone. The default target is the Bislett
24-hour race page, where the phrase disappearing means registration opened.

Run it once from cron or CI, or let 'lookout schedule' run it on a fixed daily
time table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
	RunE: runCheck,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/lookout/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "event log file (overrides log_file)")
}

// loadConfig loads and validates the configuration named by --config.
// A missing file is not an error: the defaults are used.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "No config at %s, using defaults (run 'lookout init' to create one)\n", path)
	}

	if logFile != "" {
		cfg.LogFile = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
