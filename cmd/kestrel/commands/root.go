// Package commands implements the kestrel CLI.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/marmos91/kestrel/cmd/kestrel/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel - browser shell application host",
	Long: `kestrel runs the browser shell application: it decides whether the
current process is the primary one, defers subsystem wiring until after
start-up, and exposes the bootstrap state over a local diagnostics server.

Use "kestrel [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetConfigFile returns the value of the --config flag.
func GetConfigFile() string {
	return configFile
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/kestrel/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configcmd.Cmd)
}
