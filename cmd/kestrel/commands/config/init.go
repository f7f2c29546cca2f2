package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/kestrel/internal/cli/prompt"
	"github.com/marmos91/kestrel/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Write a configuration file holding the built-in defaults.

Examples:
  # Write the default config to $XDG_CONFIG_HOME/kestrel/config.yaml
  kestrel config init

  # Answer a few questions first
  kestrel config init --interactive

  # Overwrite an existing file at a custom location
  kestrel config init --config ./kestrel.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPathFlag(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.GetDefaultConfig()
	if initInteractive {
		if err := ask(cfg); err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				return errors.New("configuration not written")
			}
			return err
		}
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	if err := config.WriteConfig(cfg, path, initForce); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}

// ask fills in the settings most users change.
func ask(cfg *config.Config) error {
	var err error

	if cfg.Engine.Type, err = prompt.Select("Browser engine", []string{"headless", "chromium"}); err != nil {
		return err
	}
	if cfg.Engine.Type == "chromium" {
		cfg.Engine.Chromium.Headless = true
		debugger, err := prompt.Input("Chromium debugger URL (empty to launch a browser)", "", validURL)
		if err != nil {
			return err
		}
		cfg.Engine.Chromium.DebuggerURL = debugger
	}

	if cfg.Logging.Level, err = prompt.Select("Log level", []string{"INFO", "DEBUG", "WARN", "ERROR"}); err != nil {
		return err
	}

	if cfg.Diagnostics.Port, err = prompt.InputInt("Diagnostics port", cfg.Diagnostics.Port, 1, 65535); err != nil {
		return err
	}

	if cfg.Push.Enabled, err = prompt.Confirm("Enable push messaging", false); err != nil {
		return err
	}

	if cfg.CrashReporting.Enabled, err = prompt.Confirm("Enable crash reporting", false); err != nil {
		return err
	}
	return nil
}

func validURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(s); err != nil {
		return errors.New("must be a URL")
	}
	return nil
}
