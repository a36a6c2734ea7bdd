package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tagsync configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
	Stub    StubConfig    `yaml:"stub"`
}

// BackendConfig configures the CMS REST client.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	SID        string `yaml:"sid"`
	Login      string `yaml:"login"`
	Password   string `yaml:"password"`
	ChannelID  int    `yaml:"channel_id"` // 0 = master node
	NodeID     int    `yaml:"node_id"`
	Timeout    string `yaml:"timeout"`
	RetryCount int    `yaml:"retry_count"` // applies to GET requests only
	RetryWait  string `yaml:"retry_wait"`
}

// LoggingConfig configures the zap logger of the binaries.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	DataDir string `yaml:"data_dir"` // logs go to <data_dir>/logs
}

// StubConfig configures the cmsstub development backend.
type StubConfig struct {
	Listen           string `yaml:"listen"`
	DataDir          string `yaml:"data_dir"`
	SessionSecret    string `yaml:"session_secret"`
	Login            string `yaml:"login"` // account created on start
	Password         string `yaml:"password"`
	SnapshotSchedule string `yaml:"snapshot_schedule"` // cron spec, empty disables
	SnapshotKeep     int    `yaml:"snapshot_keep"`
	SeedFile         string `yaml:"seed_file"` // JSON snapshot loaded when no snapshot exists
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:    "http://localhost:8080",
			NodeID:     1,
			Timeout:    "30s",
			RetryCount: 2,
			RetryWait:  "1s",
		},
		Logging: LoggingConfig{
			Level:   "info",
			DataDir: "data",
		},
		Stub: StubConfig{
			Listen:           ":8080",
			DataDir:          "data",
			SessionSecret:    "tagsync-stub-secret-change-me",
			Login:            "editor",
			Password:         "editor",
			SnapshotSchedule: "@every 1m",
			SnapshotKeep:     10,
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if _, err := c.Backend.GetTimeout(); err != nil {
		return fmt.Errorf("invalid backend.timeout: %w", err)
	}
	if _, err := c.Backend.GetRetryWait(); err != nil {
		return fmt.Errorf("invalid backend.retry_wait: %w", err)
	}
	if c.Backend.RetryCount < 0 {
		return fmt.Errorf("backend.retry_count must not be negative")
	}
	if c.Stub.SnapshotKeep < 0 {
		return fmt.Errorf("stub.snapshot_keep must not be negative")
	}
	return nil
}

// GetTimeout parses the request timeout.
func (c BackendConfig) GetTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Timeout)
}

// GetRetryWait parses the wait between GET retries.
func (c BackendConfig) GetRetryWait() (time.Duration, error) {
	if c.RetryWait == "" {
		return time.Second, nil
	}
	return time.ParseDuration(c.RetryWait)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TAGSYNC_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("TAGSYNC_SID"); v != "" {
		c.Backend.SID = v
	}
	if v := os.Getenv("TAGSYNC_LOGIN"); v != "" {
		c.Backend.Login = v
	}
	if v := os.Getenv("TAGSYNC_PASSWORD"); v != "" {
		c.Backend.Password = v
	}
	if v := os.Getenv("TAGSYNC_CHANNEL_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			c.Backend.ChannelID = id
		}
	}
	if v := os.Getenv("TAGSYNC_NODE_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			c.Backend.NodeID = id
		}
	}
	if v := os.Getenv("TAGSYNC_DATA_DIR"); v != "" {
		c.Logging.DataDir = v
		c.Stub.DataDir = v
	}
	if v := os.Getenv("TAGSYNC_STUB_LOGIN"); v != "" {
		c.Stub.Login = v
	}
	if v := os.Getenv("TAGSYNC_STUB_PASSWORD"); v != "" {
		c.Stub.Password = v
	}
	if os.Getenv("DEBUG") != "" {
		c.Logging.Level = "debug"
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Stub.Listen = ":" + v
	}
}
