package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/juststeveking/lookout/internal/logging"
	"github.com/juststeveking/lookout/internal/monitor"
	"github.com/juststeveking/lookout/internal/schedule"
	"github.com/juststeveking/lookout/internal/tui"
	"github.com/spf13/cobra"
)

var headless bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run checks on a fixed daily time table",
	Long: `Run the check at every time listed in schedule.times (local time), plus once
on start unless schedule.run_on_start is false.

A dashboard shows the time table and the latest result; press r to run a check
now. Use --headless on servers to log to stdout instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// The dashboard owns the terminal, so only the file gets log lines
		var console io.Writer
		if headless {
			console = os.Stdout
		}
		log, err := logging.New("lookout", cfg.LogFile, console)
		if err != nil {
			return err
		}
		defer log.Close()

		mon, err := monitor.NewMonitor(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create monitor: %w", err)
		}
		defer mon.Close()

		sched, err := schedule.New(mon, cfg.Schedule.Times, cfg.Schedule.RunOnStart, log)
		if err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		sched.Start(ctx)
		defer sched.Stop()

		if headless {
			<-ctx.Done()
			return nil
		}

		model := tui.NewModel(sched, cfg.Target, cancel)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}

		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&headless, "headless", false, "log to stdout instead of showing the dashboard")
	rootCmd.AddCommand(scheduleCmd)
}
