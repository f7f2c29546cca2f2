package bootstrap

import (
	"fmt"

	"github.com/marmos91/kestrel/internal/logger"
)

// InstallLogging configures the process-wide logger. It runs in every
// process, before anything else logs. A zero Config keeps the current
// logger settings.
func InstallLogging(cfg logger.Config) error {
	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("install logging: %w", err)
	}
	return nil
}
