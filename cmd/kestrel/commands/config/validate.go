package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/kestrel/internal/cli/output"
	"github.com/marmos91/kestrel/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Check the configuration file for syntax errors, missing required fields
and invalid values.

Examples:
  kestrel config validate
  kestrel config validate --config /etc/kestrel/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPathFlag(cmd)

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Diagnostics.EnableDebug {
		warnings = append(warnings, "diagnostics debug routes are enabled; anyone with local access can inject push messages")
	}
	if cfg.Push.Enabled && cfg.Engine.Type == "headless" {
		warnings = append(warnings, "push is enabled with the headless engine; web push messages are recorded, not delivered to service workers")
	}
	if cfg.CrashReporting.Enabled && cfg.CrashReporting.Database.Type == "sqlite" && cfg.CrashReporting.Database.Path == "" {
		warnings = append(warnings, "crash reporting has no database path")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	output.PrintPairs(out, [][2]string{
		{"Main process", cfg.Process.MainProcess},
		{"Engine", cfg.Engine.Type},
		{"Startup delay", cfg.Startup.Delay.String()},
		{"Push", enabled(cfg.Push.Enabled)},
		{"Crash reporting", enabled(cfg.CrashReporting.Enabled)},
		{"Log level", cfg.Logging.Level},
	})
	return nil
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
