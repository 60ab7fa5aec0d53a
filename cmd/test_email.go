package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/monitor"
	"github.com/juststeveking/lookout/internal/notify"
	"github.com/spf13/cobra"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF94")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055")).Bold(true)
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

var testEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Send a test email to verify the alert configuration",
	Long: `Send a fixed test message with the configured SMTP settings. Unlike a
check, a failure here exits non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		msg := testMessage(cfg.Target.Name, time.Now())
		n := notify.NewEmailNotifier(cfg.Email, nil, nil)

		fmt.Println("📤 Sending test email...")
		ec, err := n.Deliver(cmd.Context(), msg)
		if err == nil {
			fmt.Println(okStyle.Render("✓ Test email sent successfully"))
			fmt.Printf("  Check your inbox at %s\n", ec.RecipientEmail)
			return nil
		}

		var missing *config.MissingKeysError
		switch {
		case errors.As(err, &missing):
			fmt.Println(failStyle.Render("✗ Email configuration is incomplete"))
			fmt.Println(hintStyle.Render("  Missing: " + strings.Join(missing.Keys, ", ")))
			fmt.Println(hintStyle.Render(fmt.Sprintf("  Set them in the config file or with %s, %s and %s",
				config.EnvSenderEmail, config.EnvSenderCredential, config.EnvRecipientEmail)))
		case notify.IsAuthError(err):
			fmt.Println(failStyle.Render("✗ SMTP authentication failed"))
			fmt.Println(hintStyle.Render("  Check the sender email and credential"))
			fmt.Println(hintStyle.Render("  Gmail needs an App Password, not your regular password"))
		default:
			fmt.Println(failStyle.Render("✗ Failed to send test email"))
		}

		return err
	},
}

// testMessage is the fixed self-test email
func testMessage(name string, now time.Time) notify.AlertMessage {
	body := fmt.Sprintf(`This is a TEST email from your %s monitor.

Email configuration is working correctly:
SMTP connection and authentication succeeded.

Test sent at: %s

If you receive this email, lookout is ready to send alerts.`, name, now.Format(monitor.TimeLayout))

	return notify.AlertMessage{
		Subject:     name + " monitor test email",
		Body:        body,
		GeneratedAt: now,
	}
}

func init() {
	rootCmd.AddCommand(testEmailCmd)
}
