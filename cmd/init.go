package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/juststeveking/lookout/internal/config"
	"github.com/spf13/cobra"
)

var (
	forceInit   bool
	interactive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize lookout configuration",
	Long: `Create a new lookout configuration file at ~/.config/lookout/config.yml
(or --config) with sensible defaults. Use --interactive to fill in the target
and email addresses with a form.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		if interactive {
			if err := initInteractive(path); err != nil {
				return err
			}
		} else if err := config.InitConfig(path, forceInit); err != nil {
			return err
		}

		if forceInit {
			fmt.Printf("✓ Configuration reset at %s\n", path)
		} else {
			fmt.Printf("✓ Configuration initialized at %s\n", path)
		}

		fmt.Println("\nSet the sender credential in the environment or a .env file:")
		fmt.Printf("  %s=<app password>\n", config.EnvSenderCredential)
		fmt.Println("\nThen verify email delivery and run a check:")
		fmt.Println("  lookout test-email")
		fmt.Println("  lookout")

		return nil
	},
}

// initInteractive asks for the main settings and writes them to path
func initInteractive(path string) error {
	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.Default()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&cfg.Target.Name),
			huh.NewInput().
				Title("Page URL").
				Validate(validateURL).
				Value(&cfg.Target.URL),
			huh.NewInput().
				Title("Phrase").
				Description("An alert is sent when this text is no longer on the page").
				Validate(validateRequired("phrase")).
				Value(&cfg.Target.Phrase),
			huh.NewSelect[string]().
				Title("HTTP client").
				Options(
					huh.NewOption("Standard", "standard"),
					huh.NewOption("Browser (Chrome TLS fingerprint)", "browser"),
				).
				Value(&cfg.Fetch.Client),
		).Title("Target"),
		huh.NewGroup(
			huh.NewInput().
				Title("Sender email").
				Value(&cfg.Email.SenderEmail),
			huh.NewInput().
				Title("Recipient email").
				Value(&cfg.Email.RecipientEmail),
			huh.NewConfirm().
				Title("Desktop notifications").
				Value(&cfg.DesktopNotifications),
		).Title("Alerts"),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return fmt.Errorf("init cancelled: %w", err)
	}

	cfg.Email.SenderCredential = "${" + config.EnvSenderCredential + "}"

	return config.SaveConfig(path, cfg)
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an absolute http(s) URL")
	}
	return nil
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// resolveConfigPath returns --config or the default path
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite existing configuration")
	initCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "fill in the configuration with a form")
	rootCmd.AddCommand(initCmd)
}
