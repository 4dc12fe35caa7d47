package config

import (
	"fmt"
	"strings"
)

// validate checks the Config for invalid or out-of-range values.
// It returns a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.HTTPAddr == "" {
		errs = append(errs, "server.http_addr must not be empty")
	}
	if !isValidEnum(cfg.Server.LogLevel, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("server.log_level must be one of %v, got %q", ValidLogLevels, cfg.Server.LogLevel))
	}
	if cfg.Server.DataDir == "" {
		errs = append(errs, "server.data_dir must not be empty")
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.read_timeout must be non-negative, got %d", cfg.Server.ReadTimeout))
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.write_timeout must be non-negative, got %d", cfg.Server.WriteTimeout))
	}
	if cfg.Server.IdleTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.idle_timeout must be non-negative, got %d", cfg.Server.IdleTimeout))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.shutdown_timeout must be non-negative, got %d", cfg.Server.ShutdownTimeout))
	}
	if cfg.Server.MaxInFlight < 0 {
		errs = append(errs, fmt.Sprintf("server.max_in_flight must be non-negative, got %d", cfg.Server.MaxInFlight))
	}
	if cfg.Server.RequestTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.request_timeout must be non-negative, got %d", cfg.Server.RequestTimeout))
	}

	// Storage validation
	if cfg.Storage.DSN == "" {
		errs = append(errs, "storage.dsn must not be empty")
	}

	// Platform validation
	if cfg.Platform.RequestTimeout < 0 {
		errs = append(errs, fmt.Sprintf("platform.request_timeout must be non-negative, got %d", cfg.Platform.RequestTimeout))
	}
	if cfg.Platform.ProxyURL != "" && cfg.Platform.ProxyUsername != "" && cfg.Platform.ProxyKeyRef == "" {
		errs = append(errs, "platform.proxy_key_ref must be set when platform.proxy_username is set")
	}
	if cfg.Platform.RetryMaxAttempts < 0 {
		errs = append(errs, fmt.Sprintf("platform.retry_max_attempts must be non-negative, got %d", cfg.Platform.RetryMaxAttempts))
	}
	if cfg.Platform.RetryBaseDelayMs < 0 {
		errs = append(errs, fmt.Sprintf("platform.retry_base_delay_ms must be non-negative, got %d", cfg.Platform.RetryBaseDelayMs))
	}
	if cfg.Platform.RetryMaxDelayMs < 0 {
		errs = append(errs, fmt.Sprintf("platform.retry_max_delay_ms must be non-negative, got %d", cfg.Platform.RetryMaxDelayMs))
	}
	if cfg.Platform.CBFailureThreshold < 1 {
		errs = append(errs, fmt.Sprintf("platform.cb_failure_threshold must be at least 1, got %d", cfg.Platform.CBFailureThreshold))
	}
	if cfg.Platform.CBResetTimeoutSec <= 0 {
		errs = append(errs, fmt.Sprintf("platform.cb_reset_timeout_seconds must be positive, got %d", cfg.Platform.CBResetTimeoutSec))
	}
	if cfg.Platform.CBHalfOpenMax < 1 {
		errs = append(errs, fmt.Sprintf("platform.cb_half_open_max_calls must be at least 1, got %d", cfg.Platform.CBHalfOpenMax))
	}
	if cfg.Platform.IdempotencyCacheSize < 0 {
		errs = append(errs, fmt.Sprintf("platform.idempotency_cache_size must be non-negative, got %d", cfg.Platform.IdempotencyCacheSize))
	}
	if cfg.Platform.IdempotencyCacheTTLS < 0 {
		errs = append(errs, fmt.Sprintf("platform.idempotency_cache_ttl_seconds must be non-negative, got %d", cfg.Platform.IdempotencyCacheTTLS))
	}

	// WLSC validation
	if cfg.WLSC.TickPeriodSeconds < 1 {
		errs = append(errs, fmt.Sprintf("wlsc.tick_period must be at least 1, got %d", cfg.WLSC.TickPeriodSeconds))
	}
	if cfg.WLSC.HeartbeatTimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("wlsc.heartbeat_timeout must be at least 1, got %d", cfg.WLSC.HeartbeatTimeoutSeconds))
	}
	if cfg.WLSC.MinHeartbeatIntervalSecond < 0 {
		errs = append(errs, fmt.Sprintf("wlsc.min_heartbeat_interval must be non-negative, got %d", cfg.WLSC.MinHeartbeatIntervalSecond))
	}
	if cfg.WLSC.MinHeartbeatIntervalSecond > cfg.WLSC.HeartbeatTimeoutSeconds {
		errs = append(errs, "wlsc.min_heartbeat_interval must not exceed wlsc.heartbeat_timeout")
	}
	if cfg.WLSC.InitialAccountFloor < 0 {
		errs = append(errs, fmt.Sprintf("wlsc.initial_account_floor must be non-negative, got %d", cfg.WLSC.InitialAccountFloor))
	}

	// Tracing validation
	if cfg.Tracing.Enabled {
		if !isValidEnum(cfg.Tracing.Exporter, ValidTracingExporters) {
			errs = append(errs, fmt.Sprintf("tracing.exporter must be one of %v, got %q", ValidTracingExporters, cfg.Tracing.Exporter))
		}
		if cfg.Tracing.ServiceName == "" {
			errs = append(errs, "tracing.service_name must not be empty when tracing is enabled")
		}
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate must be between 0 and 1, got %f", cfg.Tracing.SampleRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isValidEnum returns true if val is in the allowed list (case-insensitive).
func isValidEnum(val string, allowed []string) bool {
	lower := strings.ToLower(val)
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return true
		}
	}
	return false
}
