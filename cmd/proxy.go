package cmd

import (
	"fmt"
	"os"

	"github.com/juststeveking/lookout/internal/fetch"
	"github.com/juststeveking/lookout/internal/logging"
	"github.com/juststeveking/lookout/internal/proxy"
	"github.com/spf13/cobra"
)

var listenAddr string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Serve a forwarding proxy that fetches pages the way lookout does",
	Long: `Start an HTTP server that fetches any URL given as its path with the same
headers, TLS policy and timeout as the check, and relays the response.

Example:
  lookout proxy --listen :9097
  curl http://localhost:9097/https://www.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		addr := cfg.Proxy.Listen
		if listenAddr != "" {
			addr = listenAddr
		}

		log, err := logging.New("proxy", cfg.LogFile, os.Stdout)
		if err != nil {
			return err
		}
		defer log.Close()

		timeout, err := cfg.Fetch.TimeoutDuration()
		if err != nil {
			return err
		}
		fetcher, err := fetch.New(cfg.Fetch.Client, fetch.Options{
			Timeout:            timeout,
			InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
			Headers:            cfg.Fetch.Headers,
		})
		if err != nil {
			return fmt.Errorf("failed to create fetcher: %w", err)
		}
		defer fetcher.Close()

		ctx, cancel := signalContext()
		defer cancel()

		return proxy.New(fetcher, log).ListenAndServe(ctx, addr)
	},
}

func init() {
	proxyCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (default proxy.listen, \":9097\")")
	rootCmd.AddCommand(proxyCmd)
}
