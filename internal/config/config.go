package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig `yaml:"server"`
	API    APIConfig    `yaml:"api"`
	AWS    AWSConfig    `yaml:"aws"`
	SOS    SOSConfig    `yaml:"sos"`
	State  StateConfig  `yaml:"state"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the local presentation API configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// APIConfig holds the base URLs of the remote REST endpoints
type APIConfig struct {
	SettingsURL string        `yaml:"settings_url"`
	RideURL     string        `yaml:"ride_url"`
	ExpenseURL  string        `yaml:"expense_url"`
	FeedURL     string        `yaml:"feed_url"`
	SOSURL      string        `yaml:"sos_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// AWSConfig holds AWS configuration for media storage and the identity provider
type AWSConfig struct {
	Region              string        `yaml:"region"`
	S3Bucket            string        `yaml:"s3_bucket"`
	AccessKey           string        `yaml:"access_key"`
	SecretKey           string        `yaml:"secret_key"`
	Endpoint            string        `yaml:"endpoint"` // custom S3-compatible endpoint
	MediaURLTTL         time.Duration `yaml:"media_url_ttl"`
	CognitoClientID     string        `yaml:"cognito_client_id"`
	CognitoClientSecret string        `yaml:"cognito_client_secret"`
}

// SOSConfig holds emergency contact settings
type SOSConfig struct {
	DefaultDialCode string `yaml:"default_dial_code"`
}

// StateConfig holds the location of persisted client state
type StateConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file. ${VAR} references are expanded
// from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes configuration from YAML bytes and applies defaults
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 15 * time.Second
	}
	if c.AWS.MediaURLTTL == 0 {
		c.AWS.MediaURLTTL = 1000 * time.Second
	}
	if c.SOS.DefaultDialCode == "" {
		c.SOS.DefaultDialCode = "+91"
	}
	if c.State.Path == "" {
		c.State.Path = "ridemate-state.yaml"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports missing required settings
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"api.settings_url", c.API.SettingsURL},
		{"api.ride_url", c.API.RideURL},
		{"api.expense_url", c.API.ExpenseURL},
		{"api.feed_url", c.API.FeedURL},
		{"api.sos_url", c.API.SOSURL},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required setting %s", r.key)
		}
	}
	return nil
}

// Addr returns the listen address of the local API
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
