package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use.
// If no config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

// set stores a new Config atomically.
func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Config is the top-level configuration for the worker fleet daemon
// (SPEC_FULL.md §6).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   toml:"server"`
	Storage  StorageConfig  `mapstructure:"storage"  toml:"storage"`
	Platform PlatformConfig `mapstructure:"platform" toml:"platform"`
	WLSC     WLSCConfig     `mapstructure:"wlsc"     toml:"wlsc"`
	Tracing  TracingConfig  `mapstructure:"tracing"  toml:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  toml:"metrics"`
}

// ServerConfig holds the HTTP ingress settings. Except for log_level, which
// the config watcher re-applies on reload, these are read once at startup:
// a listener restart would be required to change addr/timeouts, matching
// the teacher's own treatment of server.proxy_port.
type ServerConfig struct {
	HTTPAddr        string `mapstructure:"http_addr"        toml:"http_addr"`
	LogLevel        string `mapstructure:"log_level"        toml:"log_level"`
	DataDir         string `mapstructure:"data_dir"         toml:"data_dir"`
	ReadTimeout     int    `mapstructure:"read_timeout"     toml:"read_timeout"`     // seconds
	WriteTimeout    int    `mapstructure:"write_timeout"    toml:"write_timeout"`    // seconds
	IdleTimeout     int    `mapstructure:"idle_timeout"     toml:"idle_timeout"`     // seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"` // seconds
	MaxInFlight     int    `mapstructure:"max_in_flight"    toml:"max_in_flight"`    // load-shed ceiling
	RequestTimeout  int    `mapstructure:"request_timeout"  toml:"request_timeout"`  // seconds, per-request
}

// StorageConfig holds the persistence settings.
type StorageConfig struct {
	DSN string `mapstructure:"dsn" toml:"dsn"` // sqlite file path
}

// PlatformConfig holds the upstream platform and proxy settings. They are
// read once at startup; a config reload does not change them. Proxy
// credentials are resolved
// through the vault by key reference, never stored here in the clear.
type PlatformConfig struct {
	EntitlementURL string `mapstructure:"entitlement_url" toml:"entitlement_url"`
	TicketURL      string `mapstructure:"ticket_url"      toml:"ticket_url"`
	RequestTimeout int    `mapstructure:"request_timeout" toml:"request_timeout"` // seconds

	ProxyURL      string `mapstructure:"proxy_url"      toml:"proxy_url"`
	ProxyUsername string `mapstructure:"proxy_username" toml:"proxy_username"`
	ProxyKeyRef   string `mapstructure:"proxy_key_ref"  toml:"proxy_key_ref"` // vault reference, resolved at startup

	ExtraParams map[string]string `mapstructure:"extra_params" toml:"extra_params"`

	RetryMaxAttempts   int `mapstructure:"retry_max_attempts"       toml:"retry_max_attempts"`
	RetryBaseDelayMs   int `mapstructure:"retry_base_delay_ms"      toml:"retry_base_delay_ms"`
	RetryMaxDelayMs    int `mapstructure:"retry_max_delay_ms"       toml:"retry_max_delay_ms"`
	CBFailureThreshold int `mapstructure:"cb_failure_threshold"     toml:"cb_failure_threshold"`
	CBResetTimeoutSec  int `mapstructure:"cb_reset_timeout_seconds" toml:"cb_reset_timeout_seconds"`
	CBHalfOpenMax      int `mapstructure:"cb_half_open_max_calls"   toml:"cb_half_open_max_calls"`

	IdempotencyCacheSize int `mapstructure:"idempotency_cache_size"        toml:"idempotency_cache_size"`
	IdempotencyCacheTTLS int `mapstructure:"idempotency_cache_ttl_seconds" toml:"idempotency_cache_ttl_seconds"`
}

// RequestTimeoutDuration returns PlatformConfig.RequestTimeout as a
// time.Duration, defaulting to 8 seconds when unset.
func (p PlatformConfig) RequestTimeoutDuration() time.Duration {
	if p.RequestTimeout <= 0 {
		return 8 * time.Second
	}
	return time.Duration(p.RequestTimeout) * time.Second
}

// WLSCConfig holds the worker-lifecycle scheduling tunables. TickPeriod,
// HeartbeatTimeout, and MinHeartbeatInterval document the cadence an
// operator expects (and are surfaced so they can be seen and audited in an
// exported config); the running values are the package constants in
// internal/wlsc and are read once at daemon startup, not hot-reloadable
// mid-flight, since they are woven into already-running worker goroutines
// (internal/daemon/daemon.go).
type WLSCConfig struct {
	TickPeriodSeconds          int `mapstructure:"tick_period"             toml:"tick_period"`
	HeartbeatTimeoutSeconds    int `mapstructure:"heartbeat_timeout"       toml:"heartbeat_timeout"`
	MinHeartbeatIntervalSecond int `mapstructure:"min_heartbeat_interval"  toml:"min_heartbeat_interval"`
	InitialAccountFloor        int `mapstructure:"initial_account_floor"   toml:"initial_account_floor"`
}

// TracingConfig controls OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"      toml:"enabled"`
	Exporter    string  `mapstructure:"exporter"     toml:"exporter"`     // "stdout", "otlp-grpc", "otlp-http"
	Endpoint    string  `mapstructure:"endpoint"     toml:"endpoint"`     // e.g. "localhost:4317"
	ServiceName string  `mapstructure:"service_name" toml:"service_name"` // defaults to "botfleet"
	SampleRate  float64 `mapstructure:"sample_rate"  toml:"sample_rate"`  // 0.0 to 1.0
	Insecure    bool    `mapstructure:"insecure"     toml:"insecure"`     // skip TLS for dev
}

// MetricsConfig controls whether the /metrics endpoint is served.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// Load reads configuration from disk with the following precedence:
//  1. Environment variables (BOTFLEET_ prefix, _ as separator)
//  2. The file at explicitPath if non-empty
//  3. ~/.botfleet/botfleet.toml
//  4. ./botfleet.toml
//  5. Built-in defaults
//
// The loaded config is validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	setViperDefaults(v)

	v.SetEnvPrefix("BOTFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".botfleet"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("botfleet")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.DataDir = expandHome(cfg.Server.DataDir)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// InitConfig writes the default configuration file to ~/.botfleet/botfleet.toml.
// If the file already exists it is not overwritten.
func InitConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".botfleet")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}

	cfg := DefaultConfig()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}

// ExportConfig writes the current config to the given path in TOML format.
func ExportConfig(path string) error {
	cfg := Get()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ImportConfig reads a TOML config file and merges it into the current config.
// The imported config is also persisted to the active config file so changes
// survive restarts.
func ImportConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return err
	}
	set(cfg)

	if dest := ConfigFilePath(); dest != "" {
		out, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshalling config for persistence: %w", err)
		}
		if err := os.WriteFile(dest, out, 0o600); err != nil {
			return fmt.Errorf("persisting imported config: %w", err)
		}
	}

	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every known key with viper so that env var binding
// works for all fields even when no config file is present.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server
	v.SetDefault("server.http_addr", d.Server.HTTPAddr)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.data_dir", d.Server.DataDir)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_in_flight", d.Server.MaxInFlight)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	// Storage
	v.SetDefault("storage.dsn", d.Storage.DSN)

	// Platform
	v.SetDefault("platform.entitlement_url", d.Platform.EntitlementURL)
	v.SetDefault("platform.ticket_url", d.Platform.TicketURL)
	v.SetDefault("platform.request_timeout", d.Platform.RequestTimeout)
	v.SetDefault("platform.proxy_url", d.Platform.ProxyURL)
	v.SetDefault("platform.proxy_username", d.Platform.ProxyUsername)
	v.SetDefault("platform.proxy_key_ref", d.Platform.ProxyKeyRef)
	v.SetDefault("platform.extra_params", d.Platform.ExtraParams)
	v.SetDefault("platform.retry_max_attempts", d.Platform.RetryMaxAttempts)
	v.SetDefault("platform.retry_base_delay_ms", d.Platform.RetryBaseDelayMs)
	v.SetDefault("platform.retry_max_delay_ms", d.Platform.RetryMaxDelayMs)
	v.SetDefault("platform.cb_failure_threshold", d.Platform.CBFailureThreshold)
	v.SetDefault("platform.cb_reset_timeout_seconds", d.Platform.CBResetTimeoutSec)
	v.SetDefault("platform.cb_half_open_max_calls", d.Platform.CBHalfOpenMax)
	v.SetDefault("platform.idempotency_cache_size", d.Platform.IdempotencyCacheSize)
	v.SetDefault("platform.idempotency_cache_ttl_seconds", d.Platform.IdempotencyCacheTTLS)

	// WLSC
	v.SetDefault("wlsc.tick_period", d.WLSC.TickPeriodSeconds)
	v.SetDefault("wlsc.heartbeat_timeout", d.WLSC.HeartbeatTimeoutSeconds)
	v.SetDefault("wlsc.min_heartbeat_interval", d.WLSC.MinHeartbeatIntervalSecond)
	v.SetDefault("wlsc.initial_account_floor", d.WLSC.InitialAccountFloor)

	// Tracing
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	// Metrics
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
