package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/kestrel/internal/bytesize"
	"github.com/marmos91/kestrel/pkg/crash"
)

// Config represents the kestrel configuration.
//
// It covers the host process (logging, diagnostics, shutdown) and the
// browser subsystems the orchestrator wires at startup: process gating,
// deferred initialization, crash reporting, telemetry, the rendering
// engine, session persistence, the icon cache and push messaging.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (KESTREL_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Process identifies the main process; only it wires subsystems
	Process ProcessConfig `mapstructure:"process" yaml:"process"`

	Startup StartupConfig `mapstructure:"startup" yaml:"startup"`

	CrashReporting CrashReportingConfig `mapstructure:"crash_reporting" yaml:"crash_reporting"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling.
	// Both are started as telemetry subsystems during wiring.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Diagnostics is the local HTTP surface (health, status, metrics)
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`

	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`

	Sessions SessionsConfig `mapstructure:"sessions" yaml:"sessions"`

	Icons IconsConfig `mapstructure:"icons" yaml:"icons"`

	Push PushConfig `mapstructure:"push" yaml:"push"`

	// Addons lists the add-ons installed at startup
	Addons []AddonConfig `mapstructure:"addons" yaml:"addons,omitempty"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ProcessConfig controls process role detection.
type ProcessConfig struct {
	// MainProcess is the process name that is allowed to initialize
	// heavyweight subsystems. Auxiliary processes use "name:suffix".
	// Default: "kestrel"
	MainProcess string `mapstructure:"main_process" validate:"required" yaml:"main_process"`

	// Identity overrides the name read from the OS process table.
	// Hosts that spawn kestrel under a wrapper set this explicitly.
	Identity string `mapstructure:"identity" yaml:"identity,omitempty"`
}

// StartupConfig controls when subsystem wiring runs.
type StartupConfig struct {
	// Delay defers wiring off the critical startup path when the host does
	// not signal readiness.
	// Default: 100ms
	Delay time.Duration `mapstructure:"delay" validate:"gte=0" yaml:"delay"`

	// WaitForHostReady schedules wiring when the host reports it has drawn
	// its first frame instead of after Delay.
	WaitForHostReady bool `mapstructure:"wait_for_host_ready" yaml:"wait_for_host_ready"`

	// FatalExitCode is the exit status used when a mandatory step fails.
	// Default: 1
	FatalExitCode int `mapstructure:"fatal_exit_code" validate:"min=1,max=255" yaml:"fatal_exit_code"`
}

// CrashReportingConfig controls the crash hook and where reports are kept.
type CrashReportingConfig struct {
	// Enabled installs the crash hook. It is read once at startup.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	Database CrashDatabaseConfig `mapstructure:"database" yaml:"database"`
}

// CrashDatabaseConfig selects the crash report store.
type CrashDatabaseConfig struct {
	// Type is sqlite (default) or postgres
	Type string `mapstructure:"type" validate:"omitempty,oneof=sqlite postgres" yaml:"type"`

	// Path is the SQLite database file
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	User     string `mapstructure:"user" yaml:"user,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full" yaml:"sslmode,omitempty"`
}

// StoreConfig converts the section into a crash.StoreConfig.
func (c CrashDatabaseConfig) StoreConfig() *crash.StoreConfig {
	return &crash.StoreConfig{
		Type: crash.DatabaseType(c.Type),
		Path: c.Path,
		Postgres: crash.PostgresConfig{
			Host:     c.Postgres.Host,
			Port:     c.Postgres.Port,
			Database: c.Postgres.Database,
			User:     c.Postgres.User,
			Password: c.Postgres.Password,
			SSLMode:  c.Postgres.SSLMode,
		},
	}
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// MetricsConfig controls Prometheus metrics collection. When enabled the
// registry is exposed on the diagnostics server at /metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DiagnosticsConfig configures the diagnostics HTTP server.
type DiagnosticsConfig struct {
	// Enabled controls whether the server is started.
	// Use a pointer to distinguish "not set" from "explicitly false".
	Enabled *bool `mapstructure:"enabled" yaml:"enabled,omitempty"`

	// Address is the listen host. Default: "127.0.0.1"
	Address string `mapstructure:"address" yaml:"address"`

	// Port is the HTTP port. Default: 9240
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// EnableDebug mounts the /debug endpoints that inject push messages
	// and memory pressure.
	EnableDebug bool `mapstructure:"enable_debug" yaml:"enable_debug"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled returns whether the diagnostics server is enabled.
// Defaults to true if not explicitly set.
func (c *DiagnosticsConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// EngineConfig selects and configures the rendering engine.
type EngineConfig struct {
	// Type is headless (in-process, default) or chromium
	Type string `mapstructure:"type" validate:"required,oneof=headless chromium" yaml:"type"`

	// WarmUpDelay simulates runtime start-up for the headless engine
	WarmUpDelay time.Duration `mapstructure:"warm_up_delay" validate:"gte=0" yaml:"warm_up_delay,omitempty"`

	Chromium ChromiumConfig `mapstructure:"chromium" yaml:"chromium,omitempty"`
}

// ChromiumConfig configures the DevTools-driven Chromium engine.
type ChromiumConfig struct {
	// DebuggerURL attaches to a running browser (ws://...). When empty a
	// browser is launched.
	DebuggerURL string `mapstructure:"debugger_url" validate:"omitempty,url" yaml:"debugger_url,omitempty"`

	Bin string `mapstructure:"bin" yaml:"bin,omitempty"`

	Headless bool `mapstructure:"headless" yaml:"headless"`

	// PushTimeout bounds the wait for a service worker registration
	PushTimeout time.Duration `mapstructure:"push_timeout" yaml:"push_timeout,omitempty"`
}

// SessionsConfig controls session persistence.
type SessionsConfig struct {
	// Persist saves open tabs to BadgerDB and restores them on start
	Persist bool `mapstructure:"persist" yaml:"persist"`

	// Path is the BadgerDB directory.
	// Default: $XDG_DATA_HOME/kestrel/sessions
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// InMemory keeps the store in memory (tests, ephemeral profiles)
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory,omitempty"`
}

// IconsConfig bounds the favicon cache.
type IconsConfig struct {
	// MaxEntries is the LRU capacity. Default: 512
	MaxEntries int `mapstructure:"max_entries" validate:"gte=1" yaml:"max_entries"`

	// MaxBytes bounds the total icon payload ("16Mi", "10MB", or bytes).
	// Default: 16Mi. 0 disables the byte bound.
	MaxBytes bytesize.ByteSize `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// PushConfig controls push messaging.
type PushConfig struct {
	// Enabled wires the push feature. When false the push step is skipped.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// AccountScope is the service worker scope reserved for account sync
	// messages. Messages on it go to the account manager, not the engine.
	AccountScope string `mapstructure:"account_scope" validate:"required_if=Enabled true" yaml:"account_scope"`

	// AccountHistory is how many account messages are retained
	AccountHistory int `mapstructure:"account_history" validate:"gte=0" yaml:"account_history,omitempty"`
}

// AddonConfig describes an add-on installed at startup.
type AddonConfig struct {
	ID      string `mapstructure:"id" validate:"required" yaml:"id"`
	Name    string `mapstructure:"name" yaml:"name"`
	Version string `mapstructure:"version" yaml:"version"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (KESTREL_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the
// configuration file does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  kestrel config init\n\n"+
				"Or specify a custom config file:\n"+
				"  kestrel <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  kestrel config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold a database password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: KESTREL_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("KESTREL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/kestrel/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize so
// config files can say "16Mi" or "10MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "100ms" or "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/kestrel, ~/.config/kestrel, or "."
// when no home directory can be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kestrel")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "kestrel")
}

// getDataDir returns $XDG_DATA_HOME/kestrel or ~/.local/share/kestrel.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "kestrel")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share", "kestrel")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
