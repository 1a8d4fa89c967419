package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
	if err := ValidateConfigPath("configs/default.yaml"); err != nil {
		t.Errorf("expected relative configs path to be valid, got: %v", err)
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"configs/../../../etc/shadow",
		"configs/../configs/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default.txt",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_NotInConfigsDir(t *testing.T) {
	cases := []string{
		"other/default.yaml",
		"default.yaml",
		"/tmp/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for path outside configs/ %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
camera:
  type: "nikon_d90_gpio"
  focus_pin: 24
  shutter_pin: 25
  spool_dir: "/var/spool/tether"
  spool_timeout_ms: 4000
storage:
  data_dir: "/srv/snapkeep/data"
fetch:
  timeout_ms: 5000
web:
  port: 8980
defaults:
  debug_level: 2
  mock_gpio: true
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.Type != CameraNikonD90GPIO {
		t.Errorf("camera.type = %q, want %q", cfg.Camera.Type, CameraNikonD90GPIO)
	}
	if cfg.Camera.FocusPin != 24 || cfg.Camera.ShutterPin != 25 {
		t.Errorf("pins = %d/%d, want 24/25", cfg.Camera.FocusPin, cfg.Camera.ShutterPin)
	}
	if cfg.Camera.SpoolDir != "/var/spool/tether" {
		t.Errorf("spool_dir = %q", cfg.Camera.SpoolDir)
	}
	if cfg.Storage.DataDir != "/srv/snapkeep/data" {
		t.Errorf("data_dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Web.Port != 8980 {
		t.Errorf("web.port = %d, want 8980", cfg.Web.Port)
	}
	if cfg.Defaults.DebugLevel != 2 || !cfg.Defaults.MockGPIO {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if got := cfg.SpoolTimeout(); got != 4*time.Second {
		t.Errorf("SpoolTimeout() = %v, want 4s", got)
	}
	if got := cfg.FetchTimeout(); got != 5*time.Second {
		t.Errorf("FetchTimeout() = %v, want 5s", got)
	}
}

func TestLoad_MissingCameraType(t *testing.T) {
	path := writeConfig(t, "storage:\n  data_dir: x\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing camera.type, got nil")
	}
}

func TestLoad_UnsupportedCameraType(t *testing.T) {
	path := writeConfig(t, "camera:\n  type: polaroid\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported camera.type, got nil")
	}
}

func TestLoad_TetheredNeedsSpoolDir(t *testing.T) {
	path := writeConfig(t, "camera:\n  type: nikon_d90_gpio\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing spool_dir, got nil")
	}
}

func TestLoad_DebugLevelOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		level string
	}{
		{"negative", "-1"},
		{"over_4", "5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "camera:\n  type: test_pattern\ndefaults:\n  debug_level: "+tc.level+"\n")
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for debug_level=%s, got nil", tc.level)
			}
		})
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, "camera:\n  type: test_pattern\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.FocusDelayMs != 500 {
		t.Errorf("focus_delay_ms default = %d, want 500", cfg.Camera.FocusDelayMs)
	}
	if cfg.Camera.ShutterDelayMs != 200 {
		t.Errorf("shutter_delay_ms default = %d, want 200", cfg.Camera.ShutterDelayMs)
	}
	if cfg.Camera.SpoolPollMs != 100 {
		t.Errorf("spool_poll_ms default = %d, want 100", cfg.Camera.SpoolPollMs)
	}
	if cfg.Camera.SpoolTimeoutMs != 10000 {
		t.Errorf("spool_timeout_ms default = %d, want 10000", cfg.Camera.SpoolTimeoutMs)
	}
	if cfg.Camera.WidthPx != 640 || cfg.Camera.HeightPx != 480 {
		t.Errorf("frame default = %dx%d, want 640x480", cfg.Camera.WidthPx, cfg.Camera.HeightPx)
	}
	if cfg.Storage.DataDir != filepath.Join("var", "data") {
		t.Errorf("data_dir default = %q", cfg.Storage.DataDir)
	}
	if cfg.Fetch.TimeoutMs != 30000 {
		t.Errorf("fetch.timeout_ms default = %d, want 30000", cfg.Fetch.TimeoutMs)
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	path := writeConfig(t, strings.Repeat("#", MaxConfigFileBytes+1))
	if _, err := Load(path); err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := Load(path); err == nil {
		t.Error("expected error for empty config (camera.type missing), got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	path := writeConfig(t, "camera:\n  type: test_pattern\nunknown_section:\n  foo: bar\n")
	if _, err := Load(path); err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "nonexistent.yaml")
	if _, err := Load(path); err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

// ---------- LoadEnv ----------

func TestLoadEnv_EnvironmentOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, "camera:\n  type: test_pattern\n"))
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvDataDir, "/tmp/photos")
	t.Setenv(EnvDebugLevel, "3")
	t.Setenv(EnvWebPort, "9000")
	t.Setenv(EnvMockGPIO, "true")

	if err := LoadEnv(cfg, ""); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Storage.DataDir != "/tmp/photos" {
		t.Errorf("data_dir = %q, want /tmp/photos", cfg.Storage.DataDir)
	}
	if cfg.Defaults.DebugLevel != 3 {
		t.Errorf("debug_level = %d, want 3", cfg.Defaults.DebugLevel)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("web.port = %d, want 9000", cfg.Web.Port)
	}
	if !cfg.Defaults.MockGPIO {
		t.Error("mock_gpio should be true")
	}
}

func TestLoadEnv_EnvFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "camera:\n  type: test_pattern\n"))
	if err != nil {
		t.Fatal(err)
	}
	// Register for cleanup, then clear so the file value is used.
	t.Setenv(EnvCameraType, "")
	os.Unsetenv(EnvCameraType)

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte(EnvCameraType+"=webcam\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnv(cfg, envFile); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Camera.Type != CameraWebcam {
		t.Errorf("camera.type = %q, want %q", cfg.Camera.Type, CameraWebcam)
	}
}

func TestLoadEnv_MissingEnvFileIgnored(t *testing.T) {
	cfg, err := Load(writeConfig(t, "camera:\n  type: test_pattern\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := LoadEnv(cfg, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got: %v", err)
	}
}

func TestLoadEnv_InvalidValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{EnvDebugLevel, "loud"},
		{EnvWebPort, "eighty"},
		{EnvMockGPIO, "maybe"},
		{EnvDebugLevel, "9"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "camera:\n  type: test_pattern\n"))
			if err != nil {
				t.Fatal(err)
			}
			t.Setenv(tc.key, tc.value)
			if err := LoadEnv(cfg, ""); err == nil {
				t.Errorf("expected error for %s=%q, got nil", tc.key, tc.value)
			}
		})
	}
}

// ---------- Helper methods ----------

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		Camera: CameraConfig{FocusDelayMs: 500, ShutterDelayMs: 200, SpoolPollMs: 50},
	}
	if got := cfg.FocusDelay(); got != 500*time.Millisecond {
		t.Errorf("FocusDelay() = %v, want 500ms", got)
	}
	if got := cfg.ShutterDelay(); got != 200*time.Millisecond {
		t.Errorf("ShutterDelay() = %v, want 200ms", got)
	}
	if got := cfg.SpoolPoll(); got != 50*time.Millisecond {
		t.Errorf("SpoolPoll() = %v, want 50ms", got)
	}
}

func TestConfig_ValidateAfterEdit(t *testing.T) {
	cfg := &Config{Camera: CameraConfig{Type: CameraTestPattern}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Camera.WidthPx != 640 || cfg.Fetch.TimeoutMs != 30000 {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	cfg.Defaults.DebugLevel = 9
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for debug level 9")
	}
}
