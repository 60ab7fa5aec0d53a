package cmd

import (
	"fmt"
	"os"

	"github.com/juststeveking/lookout/internal/logging"
	"github.com/juststeveking/lookout/internal/monitor"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check",
	Long: `Fetch the target page once, look for the phrase and send an alert if it
is missing. Every outcome of the check exits 0; only startup problems such as
an unreadable config file exit non-zero.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New("lookout", cfg.LogFile, os.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()

	mon, err := monitor.NewMonitor(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	defer mon.Close()

	ctx, cancel := signalContext()
	defer cancel()

	mon.RunOnce(ctx)
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
