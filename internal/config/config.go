package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file read by Load.
const MaxConfigFileBytes = 1 << 20

// Camera types understood by the capture provider factory.
const (
	CameraNikonD90GPIO = "nikon_d90_gpio"
	CameraTestPattern  = "test_pattern"
	CameraWebcam       = "webcam"
)

// Environment variables that override file values.
const (
	EnvDataDir    = "SNAPKEEP_DATA_DIR"
	EnvCameraType = "SNAPKEEP_CAMERA_TYPE"
	EnvDebugLevel = "SNAPKEEP_DEBUG_LEVEL"
	EnvWebPort    = "SNAPKEEP_WEB_PORT"
	EnvMockGPIO   = "SNAPKEEP_MOCK_GPIO"
)

// CameraConfig describes how photos are captured.
// Type selects a concrete provider (e.g., "nikon_d90_gpio").
type CameraConfig struct {
	Type           string `yaml:"type"`             // nikon_d90_gpio, test_pattern, webcam
	FocusPin       int    `yaml:"focus_pin"`        // GPIO pin for FOCUS line
	ShutterPin     int    `yaml:"shutter_pin"`      // GPIO pin for SHUTTER line
	FocusDelayMs   int    `yaml:"focus_delay_ms"`   // autofocus delay (ms)
	ShutterDelayMs int    `yaml:"shutter_delay_ms"` // shutter hold time (ms)
	SpoolDir       string `yaml:"spool_dir"`        // where tether software drops downloaded shots
	SpoolPollMs    int    `yaml:"spool_poll_ms"`    // spool directory poll interval (ms)
	SpoolTimeoutMs int    `yaml:"spool_timeout_ms"` // max wait for the shot to land (ms)
	Device         int    `yaml:"device"`           // webcam device index
	WidthPx        int    `yaml:"width_px"`         // test pattern / webcam frame width
	HeightPx       int    `yaml:"height_px"`        // test pattern / webcam frame height
}

// StorageConfig locates app-private storage.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"` // saved photos
}

// FetchConfig tunes byte retrieval of preview references.
type FetchConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

// WebConfig holds the HTTP listener settings.
type WebConfig struct {
	Port int `yaml:"port"` // 0 = use the CLI default
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Storage  StorageConfig  `yaml:"storage"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath accepts only *.yaml files located directly in a
// "configs" directory.
func ValidateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv loads envFile (if it exists) into the process environment, then
// applies SNAPKEEP_* overrides to cfg. Variables already set in the
// environment win over the file.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv(EnvCameraType); v != "" {
		cfg.Camera.Type = v
	}
	if v := os.Getenv(EnvDebugLevel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebugLevel, err)
		}
		cfg.Defaults.DebugLevel = n
	}
	if v := os.Getenv(EnvWebPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWebPort, err)
		}
		cfg.Web.Port = n
	}
	if v := os.Getenv(EnvMockGPIO); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMockGPIO, err)
		}
		cfg.Defaults.MockGPIO = b
	}
	return cfg.applyDefaults()
}

// Validate checks c and fills in defaults for unset values. Call it after
// changing a loaded config by hand.
func (c *Config) Validate() error {
	return c.applyDefaults()
}

func (c *Config) applyDefaults() error {
	// Basic validation
	switch c.Camera.Type {
	case "":
		return fmt.Errorf("camera.type is required")
	case CameraNikonD90GPIO, CameraTestPattern, CameraWebcam:
	default:
		return fmt.Errorf("unsupported camera.type %q", c.Camera.Type)
	}
	if c.Camera.Type == CameraNikonD90GPIO && c.Camera.SpoolDir == "" {
		return fmt.Errorf("camera.spool_dir is required for %s", CameraNikonD90GPIO)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be 0-65535, got %d", c.Web.Port)
	}

	// Default values for camera delays
	if c.Camera.FocusDelayMs <= 0 {
		c.Camera.FocusDelayMs = 500 // 500ms for autofocus
	}
	if c.Camera.ShutterDelayMs <= 0 {
		c.Camera.ShutterDelayMs = 200 // 200ms shutter hold
	}
	if c.Camera.SpoolPollMs <= 0 {
		c.Camera.SpoolPollMs = 100
	}
	if c.Camera.SpoolTimeoutMs <= 0 {
		c.Camera.SpoolTimeoutMs = 10000 // DSLR write + tether download
	}
	if c.Camera.WidthPx <= 0 {
		c.Camera.WidthPx = 640
	}
	if c.Camera.HeightPx <= 0 {
		c.Camera.HeightPx = 480
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = filepath.Join("var", "data")
	}

	if c.Fetch.TimeoutMs <= 0 {
		c.Fetch.TimeoutMs = 30000
	}
	return nil
}

// FocusDelay returns the autofocus delay duration.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Camera.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Camera.ShutterDelayMs) * time.Millisecond
}

// SpoolPoll returns the interval between two spool directory scans.
func (c *Config) SpoolPoll() time.Duration {
	return time.Duration(c.Camera.SpoolPollMs) * time.Millisecond
}

// SpoolTimeout returns how long to wait for a shot to land in the spool directory.
func (c *Config) SpoolTimeout() time.Duration {
	return time.Duration(c.Camera.SpoolTimeoutMs) * time.Millisecond
}

// FetchTimeout returns the HTTP timeout used when fetching preview references.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutMs) * time.Millisecond
}
