// Package config holds the runtime configuration for the enrichment
// pipeline. A Config is built once at startup (YAML file, then environment
// overrides, then validation) and passed into each component's constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	ShipStation ShipStationConfig `yaml:"shipstation"`
	Console     ConsoleConfig     `yaml:"console"`
	Drive       DriveConfig       `yaml:"drive"`
	Run         RunConfig         `yaml:"run"`
}

// ShipStationConfig configures the order source API.
type ShipStationConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	StoreID   string `yaml:"store_id"`
	BaseURL   string `yaml:"base_url"`
}

// ConsoleConfig configures the device admin console session.
type ConsoleConfig struct {
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Headless      bool   `yaml:"headless"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// DriveConfig configures the document store destination.
type DriveConfig struct {
	FolderID  string `yaml:"folder_id"`
	TokenFile string `yaml:"token_file"`
}

// RunConfig tunes pipeline pacing and retry behavior.
type RunConfig struct {
	PageSize          int     `yaml:"page_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	RetryCeiling      int     `yaml:"retry_ceiling"`
	LookupDelay       string  `yaml:"lookup_delay"`
}

// GetLookupDelay returns the pause between console lookups as a duration.
func (r RunConfig) GetLookupDelay() time.Duration {
	d, err := time.ParseDuration(r.LookupDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// Default returns the baseline configuration before file and env overrides.
func Default() *Config {
	return &Config{
		ShipStation: ShipStationConfig{
			BaseURL: "https://ssapi.shipstation.com",
		},
		Console: ConsoleConfig{
			URL:           "https://admin.gpx.co/",
			Headless:      true,
			ScreenshotDir: "screenshots",
		},
		Drive: DriveConfig{
			TokenFile: "token.json",
		},
		Run: RunConfig{
			PageSize:          100,
			RequestsPerSecond: 2,
			RetryCeiling:      5,
			LookupDelay:       "1s",
		},
	}
}

// Load builds a Config from an optional YAML file plus environment overrides.
// An empty path skips the file stage entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides layers environment variables over the file values.
// Env always wins when set.
func (c *Config) applyEnvOverrides() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.ShipStation.APIKey, "SHIPSTATION_API_KEY")
	setString(&c.ShipStation.APISecret, "SHIPSTATION_API_SECRET")
	setString(&c.ShipStation.StoreID, "SHIPSTATION_STORE_ID")
	setString(&c.ShipStation.BaseURL, "SHIPSTATION_BASE_URL")

	setString(&c.Console.URL, "GPX_ADMIN_URL")
	setString(&c.Console.Username, "GPX_USERNAME")
	setString(&c.Console.Password, "GPX_PASSWORD")
	setString(&c.Console.ScreenshotDir, "GPX_SCREENSHOT_DIR")
	if v := os.Getenv("HEADLESS"); v != "" {
		c.Console.Headless = strings.EqualFold(v, "true")
	}

	setString(&c.Drive.FolderID, "GOOGLE_DRIVE_FOLDER_ID")
	setString(&c.Drive.TokenFile, "GOOGLE_OAUTH_TOKEN_FILE")
}

// Validate checks every credential the full pipeline needs. It reports all
// missing keys at once so the operator can fix the environment in one pass.
func (c *Config) Validate() error {
	var missing []string
	for _, item := range []struct {
		key, val string
	}{
		{"SHIPSTATION_API_KEY", c.ShipStation.APIKey},
		{"SHIPSTATION_API_SECRET", c.ShipStation.APISecret},
		{"SHIPSTATION_STORE_ID", c.ShipStation.StoreID},
		{"GPX_USERNAME", c.Console.Username},
		{"GPX_PASSWORD", c.Console.Password},
		{"GOOGLE_DRIVE_FOLDER_ID", c.Drive.FolderID},
	} {
		if item.val == "" {
			missing = append(missing, item.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	if _, err := os.Stat(c.Drive.TokenFile); err != nil {
		return fmt.Errorf("oauth token file %s not readable: %w", c.Drive.TokenFile, err)
	}
	return nil
}

// ValidateListing checks only what the store-listing command needs.
func (c *Config) ValidateListing() error {
	if c.ShipStation.APIKey == "" || c.ShipStation.APISecret == "" {
		return errors.New("missing configuration: SHIPSTATION_API_KEY, SHIPSTATION_API_SECRET")
	}
	return nil
}
