package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/kestrel/internal/bytesize"
	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/crash"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyProcessDefaults(&cfg.Process)
	applyStartupDefaults(&cfg.Startup)
	applyCrashReportingDefaults(&cfg.CrashReporting)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyDiagnosticsDefaults(&cfg.Diagnostics)
	applyEngineDefaults(&cfg.Engine)
	applySessionsDefaults(&cfg.Sessions)
	applyIconsDefaults(&cfg.Icons)
	applyPushDefaults(&cfg.Push)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyProcessDefaults(cfg *ProcessConfig) {
	if cfg.MainProcess == "" {
		cfg.MainProcess = "kestrel"
	}
}

// applyStartupDefaults keeps the deferral short: long enough to get off
// the first frame, short enough that the signal fires promptly.
func applyStartupDefaults(cfg *StartupConfig) {
	if cfg.Delay == 0 {
		cfg.Delay = 100 * time.Millisecond
	}
	if cfg.FatalExitCode == 0 {
		cfg.FatalExitCode = 1
	}
}

func applyCrashReportingDefaults(cfg *CrashReportingConfig) {
	store := cfg.Database.StoreConfig()
	store.ApplyDefaults()

	cfg.Database.Type = string(store.Type)
	cfg.Database.Path = store.Path
	if store.Type == crash.DatabaseTypePostgres {
		cfg.Database.Postgres.Port = store.Postgres.Port
		cfg.Database.Postgres.SSLMode = store.Postgres.SSLMode
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = append([]string(nil), telemetry.DefaultProfileTypes...)
	}
}

func applyDiagnosticsDefaults(cfg *DiagnosticsConfig) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 9240
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applyEngineDefaults(cfg *EngineConfig) {
	if cfg.Type == "" {
		cfg.Type = "headless"
	}
	if cfg.Type == "chromium" && cfg.Chromium.PushTimeout == 0 {
		cfg.Chromium.PushTimeout = 10 * time.Second
	}
}

func applySessionsDefaults(cfg *SessionsConfig) {
	if cfg.Path == "" && !cfg.InMemory {
		cfg.Path = filepath.Join(getDataDir(), "sessions")
	}
}

func applyIconsDefaults(cfg *IconsConfig) {
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 512
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 16 * bytesize.MiB
	}
}

func applyPushDefaults(cfg *PushConfig) {
	if cfg.AccountScope == "" {
		cfg.AccountScope = "chrome://fxa-push"
	}
	if cfg.AccountHistory == 0 {
		cfg.AccountHistory = 100
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
