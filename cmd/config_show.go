package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/spf13/cobra"
)

var configShowCmd = &cobra.Command{
	Use:   "config:show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the config file, .env and
environment variables are applied. The sender credential is masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Target: %s\n", cfg.Target.Name)
		fmt.Println("─────────────────────────────────────")
		fmt.Printf("URL:              %s\n", cfg.Target.URL)
		fmt.Printf("Phrase:           %q\n", cfg.Target.Phrase)
		fmt.Printf("Timeout:          %s\n", cfg.Fetch.Timeout)
		fmt.Printf("Client:           %s\n", cfg.Fetch.Client)
		fmt.Printf("Verify TLS:       %t\n", !cfg.Fetch.InsecureSkipVerify)
		fmt.Printf("Decode policy:    %s\n", cfg.Fetch.DecodePolicy)

		if len(cfg.Fetch.Headers) > 0 {
			fmt.Println("Headers:")
			for key, value := range cfg.Fetch.Headers {
				fmt.Printf("  %s: %s\n", key, value)
			}
		}

		fmt.Println("\nEmail")
		fmt.Println("─────────────────────────────────────")
		ec, err := config.LoadEmailConfig(cfg.Email)
		var missing *config.MissingKeysError
		if err != nil && !errors.As(err, &missing) {
			return err
		}
		fmt.Printf("SMTP server:      %s:%d\n", ec.SMTPServer, ec.SMTPPort)
		fmt.Printf("Sender:           %s\n", valueOrUnset(ec.SenderEmail))
		fmt.Printf("Credential:       %s\n", ec.MaskedCredential())
		fmt.Printf("Recipient:        %s\n", valueOrUnset(ec.RecipientEmail))
		fmt.Printf("Timeout:          %s\n", ec.Timeout)
		if missing != nil {
			fmt.Printf("Status:           disabled (missing %s)\n", strings.Join(missing.Keys, ", "))
		}

		fmt.Println("\nSchedule")
		fmt.Println("─────────────────────────────────────")
		fmt.Printf("Times:            %s\n", strings.Join(cfg.Schedule.Times, " "))
		fmt.Printf("Run on start:     %t\n", cfg.Schedule.RunOnStart)

		fmt.Println()
		fmt.Printf("Log file:         %s\n", cfg.LogFile)
		fmt.Printf("Proxy listen:     %s\n", cfg.Proxy.Listen)
		fmt.Printf("Desktop notify:   %t\n", cfg.DesktopNotifications)

		return nil
	},
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configShowCmd)
}
