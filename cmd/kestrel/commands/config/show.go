package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/kestrel/internal/cli/output"
	"github.com/marmos91/kestrel/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and environment overrides have
been applied. Without a configuration file the defaults are shown.`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (json|yaml)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}

	cfg, err := config.Load(configPathFlag(cmd))
	if err != nil {
		return err
	}
	return output.Print(cmd.OutOrStdout(), format, cfg)
}
