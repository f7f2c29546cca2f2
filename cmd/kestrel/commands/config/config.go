// Package config implements the "kestrel config" subcommands.
package config

import "github.com/spf13/cobra"

// Cmd is the parent of the config subcommands.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(schemaCmd)
}

func configPathFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
