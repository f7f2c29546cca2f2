package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks cfg against its struct tags and the cross-field rules
// tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if err := getValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value %v)", fe.Namespace(), formatTag(fe), fe.Value()))
			}
			return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
		}
		return err
	}

	if cfg.CrashReporting.Enabled && cfg.CrashReporting.Database.Type == "postgres" {
		pg := cfg.CrashReporting.Database.Postgres
		if pg.Host == "" || pg.Database == "" || pg.User == "" {
			return errors.New("crash_reporting.database.postgres: host, database and user are required")
		}
	}

	if cfg.Engine.Type == "chromium" && cfg.Engine.Chromium.DebuggerURL == "" && !cfg.Engine.Chromium.Headless && cfg.Engine.Chromium.Bin == "" {
		// A headed browser launched from a service has no display to use.
		return errors.New("engine.chromium: set debugger_url, bin, or headless")
	}

	seen := make(map[string]struct{}, len(cfg.Addons))
	for _, a := range cfg.Addons {
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("addons: duplicate id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}

	return nil
}

func formatTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
