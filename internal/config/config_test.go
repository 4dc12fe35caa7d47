package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nonexistent.toml"))
	if err == nil {
		_ = cfg
	}
}

func TestLoad_WithExplicitFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "test.toml")

	content := `
[server]
http_addr = "127.0.0.1:9090"
log_level = "debug"
data_dir = "` + dir + `"

[storage]
dsn = "` + filepath.Join(dir, "test.db") + `"

[platform]
entitlement_url = "https://platform.example.com/entitlement"
ticket_url = "https://platform.example.com/ticket"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("HTTPAddr: got %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:9090")
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want %q", cfg.Server.LogLevel, "debug")
	}
	if cfg.Platform.EntitlementURL != "https://platform.example.com/entitlement" {
		t.Errorf("EntitlementURL: got %q", cfg.Platform.EntitlementURL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "test.toml")

	content := `
[server]
http_addr = "127.0.0.1:7677"
log_level = "info"
data_dir = "` + dir + `"

[storage]
dsn = "` + filepath.Join(dir, "test.db") + `"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("BOTFLEET_SERVER_HTTP_ADDR", "127.0.0.1:8888")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:8888" {
		t.Errorf("HTTPAddr with env override: got %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:8888")
	}
}

func TestLoad_ValidationFailure_BadLogLevel(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")

	content := `
[server]
http_addr = "127.0.0.1:7677"
log_level = "not-a-level"
data_dir = "` + dir + `"

[storage]
dsn = "` + filepath.Join(dir, "test.db") + `"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
}

func TestLoad_ValidationFailure_TickPeriodTooLow(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad-tick.toml")

	content := `
[server]
http_addr = "127.0.0.1:7677"
log_level = "info"
data_dir = "` + dir + `"

[storage]
dsn = "` + filepath.Join(dir, "test.db") + `"

[wlsc]
tick_period = 0
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error for tick_period of 0")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("HTTPAddr: got %q, want %q", cfg.Server.HTTPAddr, DefaultHTTPAddr)
	}
	if cfg.WLSC.TickPeriodSeconds != DefaultTickPeriodSeconds {
		t.Errorf("TickPeriodSeconds: got %d, want %d", cfg.WLSC.TickPeriodSeconds, DefaultTickPeriodSeconds)
	}
	if cfg.Platform.RetryMaxAttempts != DefaultRetryMaxAttempts {
		t.Errorf("RetryMaxAttempts: got %d, want %d", cfg.Platform.RetryMaxAttempts, DefaultRetryMaxAttempts)
	}
	if cfg.Metrics.Enabled != true {
		t.Error("Metrics.Enabled: got false, want true")
	}
}

func TestPlatformConfig_RequestTimeoutDuration(t *testing.T) {
	tests := []struct {
		timeout int
		wantSec int
	}{
		{0, 8},  // default
		{-1, 8}, // negative defaults
		{60, 60},
		{10, 10},
	}

	for _, tt := range tests {
		p := PlatformConfig{RequestTimeout: tt.timeout}
		got := p.RequestTimeoutDuration().Seconds()
		if int(got) != tt.wantSec {
			t.Errorf("RequestTimeoutDuration(%d): got %v, want %ds", tt.timeout, got, tt.wantSec)
		}
	}
}

func TestConfigFilePath_BeforeLoad(t *testing.T) {
	loadedConfigFile.Store("")
	path := ConfigFilePath()
	if path != "" {
		t.Errorf("ConfigFilePath before load: got %q, want empty", path)
	}
}

func TestExportConfig(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "exported.toml")

	cfg := DefaultConfig()
	set(cfg)

	if err := ExportConfig(exportPath); err != nil {
		t.Fatalf("ExportConfig: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Error("exported config is empty")
	}
}

func TestImportConfig(t *testing.T) {
	dir := t.TempDir()
	importPath := filepath.Join(dir, "import.toml")

	content := `
[server]
http_addr = "127.0.0.1:9999"
log_level = "warn"
data_dir = "` + dir + `"

[storage]
dsn = "` + filepath.Join(dir, "test.db") + `"
`
	if err := os.WriteFile(importPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := ImportConfig(importPath); err != nil {
		t.Fatalf("ImportConfig: %v", err)
	}

	cfg := Get()
	if cfg.Server.HTTPAddr != "127.0.0.1:9999" {
		t.Errorf("HTTPAddr after import: got %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:9999")
	}

	set(DefaultConfig())
}
