package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Server.DataDir = "/tmp/test"
	cfg.Storage.DSN = "/tmp/test/botfleet.db"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("validate valid config: %v", err)
	}
}

func TestValidate_EmptyHTTPAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTPAddr = ""

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for empty http_addr")
	}
	if !strings.Contains(err.Error(), "http_addr") {
		t.Errorf("error should mention http_addr: %v", err)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Server.LogLevel = "verbose"

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level: %v", err)
	}
}

func TestValidate_EmptyDataDir(t *testing.T) {
	cfg := validConfig()
	cfg.Server.DataDir = ""

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for empty data_dir")
	}
}

func TestValidate_EmptyDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DSN = ""

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for empty storage.dsn")
	}
}

func TestValidate_NegativeReadTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ReadTimeout = -1

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative read_timeout")
	}
}

func TestValidate_NegativeMaxInFlight(t *testing.T) {
	cfg := validConfig()
	cfg.Server.MaxInFlight = -1

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative max_in_flight")
	}
}

func TestValidate_ProxyKeyRefRequiredWithUsername(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.ProxyURL = "http://proxy.example.com:10000"
	cfg.Platform.ProxyUsername = "customer-example"
	cfg.Platform.ProxyKeyRef = ""

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for proxy_username set without proxy_key_ref")
	}
	if !strings.Contains(err.Error(), "proxy_key_ref") {
		t.Errorf("error should mention proxy_key_ref: %v", err)
	}
}

func TestValidate_Resilience_NegativeRetryAttempts(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.RetryMaxAttempts = -1

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative retry_max_attempts")
	}
}

func TestValidate_Resilience_ZeroFailureThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.CBFailureThreshold = 0

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for cb_failure_threshold = 0")
	}
}

func TestValidate_Resilience_ZeroResetTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.CBResetTimeoutSec = 0

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for cb_reset_timeout_seconds = 0")
	}
}

func TestValidate_Resilience_ZeroHalfOpenMax(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.CBHalfOpenMax = 0

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for cb_half_open_max_calls = 0")
	}
}

func TestValidate_WLSC_TickPeriodZero(t *testing.T) {
	cfg := validConfig()
	cfg.WLSC.TickPeriodSeconds = 0

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for tick_period = 0")
	}
}

func TestValidate_WLSC_HeartbeatTimeoutZero(t *testing.T) {
	cfg := validConfig()
	cfg.WLSC.HeartbeatTimeoutSeconds = 0

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for heartbeat_timeout = 0")
	}
}

func TestValidate_WLSC_MinIntervalExceedsTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.WLSC.HeartbeatTimeoutSeconds = 10
	cfg.WLSC.MinHeartbeatIntervalSecond = 20

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for min_heartbeat_interval exceeding heartbeat_timeout")
	}
}

func TestValidate_WLSC_NegativeAccountFloor(t *testing.T) {
	cfg := validConfig()
	cfg.WLSC.InitialAccountFloor = -1

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative initial_account_floor")
	}
}

func TestValidate_Tracing_BadExporter(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "carrier-pigeon"

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for invalid tracing exporter")
	}
}

func TestValidate_Tracing_SampleRateOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.SampleRate = 1.5

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for sample_rate > 1")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTPAddr = ""
	cfg.Server.LogLevel = "bad"
	cfg.WLSC.TickPeriodSeconds = 0

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "http_addr") || !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention multiple fields: %v", err)
	}
}

func TestIsValidEnum(t *testing.T) {
	if !isValidEnum("INFO", ValidLogLevels) {
		t.Error("INFO should be valid (case-insensitive)")
	}
	if isValidEnum("verbose", ValidLogLevels) {
		t.Error("verbose should not be valid")
	}
}
