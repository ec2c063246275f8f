// Package cmd implements the gns3-proxy command-line entry point: flag
// parsing, log-level wiring, and the startup/shutdown sequence around
// internal/proxy.Server.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gns3/gns3-proxy/internal/clog"
	"github.com/gns3/gns3-proxy/internal/version"
)

var (
	configFileFlag string
	logLevelFlag   string
)

// rootCmd is gns3-proxy's only command: there are no subcommands, per
// spec.md §6 ("A single invocation `gns3-proxy`").
var rootCmd = &cobra.Command{
	Use:     "gns3-proxy",
	Short:   "Authenticating reverse proxy for a pool of GNS3 backends",
	Long: `gns3-proxy accepts HTTP/1.1 connections from GNS3 client applications,
authenticates them against a configured user list, routes each one to a
backend server by username, and tunnels the connection transparently
including WebSocket upgrades.`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		return run(configFileFlag, logLevelFlag)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFileFlag, "config-file", "./gns3_proxy_config.ini", "path to the INI configuration file")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "INFO", "log level: DEBUG|INFO|WARNING|ERROR|CRITICAL")
}

// Execute runs the root command and returns any error, including an
// *ExitCodeError when the caller should exit with a specific code.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("gns3-proxy: %w", err)
	}
	return nil
}

func configureLogging(level string) {
	clog.SetLevel(clog.ParseLevel(level))
}
