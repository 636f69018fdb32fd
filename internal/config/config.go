package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models crewboard.yml.
type Config struct {
	Project struct {
		ID          string `yaml:"id" json:"id"`
		Description string `yaml:"description,omitempty" json:"description,omitempty"`
	} `yaml:"project" json:"project"`
	Feed struct {
		PollIntervalMS      int `yaml:"poll_interval_ms" json:"poll_interval_ms"`
		HeartbeatIntervalMS int `yaml:"heartbeat_interval_ms" json:"heartbeat_interval_ms"`
	} `yaml:"feed" json:"feed"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events,omitempty" json:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty" json:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

const (
	defaultPollIntervalMS      = 1000
	defaultHeartbeatIntervalMS = 15000
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with cb project create", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure and fills interval
// defaults.
func (c *Config) Validate() error {
	if c.Project.ID == "" {
		return fmt.Errorf("config.project.id is required")
	}
	if c.Feed.PollIntervalMS < 0 {
		return fmt.Errorf("config.feed.poll_interval_ms must not be negative")
	}
	if c.Feed.HeartbeatIntervalMS < 0 {
		return fmt.Errorf("config.feed.heartbeat_interval_ms must not be negative")
	}
	if c.Feed.PollIntervalMS == 0 {
		c.Feed.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Feed.HeartbeatIntervalMS == 0 {
		c.Feed.HeartbeatIntervalMS = defaultHeartbeatIntervalMS
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %d has negative timeout", i)
		}
	}
	return nil
}

// PollInterval returns the feed poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	if c == nil || c.Feed.PollIntervalMS <= 0 {
		return time.Duration(defaultPollIntervalMS) * time.Millisecond
	}
	return time.Duration(c.Feed.PollIntervalMS) * time.Millisecond
}

// HeartbeatInterval returns the SSE heartbeat interval as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	if c == nil || c.Feed.HeartbeatIntervalMS <= 0 {
		return time.Duration(defaultHeartbeatIntervalMS) * time.Millisecond
	}
	return time.Duration(c.Feed.HeartbeatIntervalMS) * time.Millisecond
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "crewboard.yml")
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	var cfg Config
	cfg.Project.ID = projectID
	cfg.Feed.PollIntervalMS = defaultPollIntervalMS
	cfg.Feed.HeartbeatIntervalMS = defaultHeartbeatIntervalMS
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(projectID string) string {
	return fmt.Sprintf(`project:
  id: %s

feed:
  poll_interval_ms: %d
  heartbeat_interval_ms: %d
`, projectID, defaultPollIntervalMS, defaultHeartbeatIntervalMS)
}
