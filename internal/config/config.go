package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every sosync client process.
type Config struct {
	// RedisAddress is the host:port of the shared record store.
	RedisAddress string `yaml:"redis_addr"`
	// RedisPassword authenticates against the record store, empty for none.
	RedisPassword string `yaml:"redis_password"`
	// RedisDB selects the Redis logical database.
	RedisDB int `yaml:"redis_db"`
	// UserID identifies the current user; overridable per command, falls
	// back to the OS username when empty.
	UserID string `yaml:"user_id"`
	// WebhookURL is where notifications are POSTed. When empty,
	// notifications are only logged.
	WebhookURL string `yaml:"webhook_url"`
	// SettleDelay is the short wait before a completion evaluation, to
	// reduce redundant recomputation under write bursts.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// StatusResetWindow is how long an all-safe group status lingers before
	// reverting to normal.
	StatusResetWindow time.Duration `yaml:"status_reset_window"`
	// Timeout is the duration for store operations.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for sosync settings.
	DefaultConfigFilename = "sosync-settings.yaml"

	// DefaultSettleDelay is the default completion evaluation debounce.
	DefaultSettleDelay = 2 * time.Second

	// DefaultStatusResetWindow is the default all-safe grace window.
	DefaultStatusResetWindow = time.Hour

	// DefaultTimeout is the default duration for store operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRedisAddressRequired is returned when the record store address is missing.
	errRedisAddressRequired = errors.New("redis address must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling in defaults for unset durations.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.RedisAddress == "" {
		return errRedisAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.RedisAddress); err != nil {
		return fmt.Errorf("invalid redis address: %w", err)
	}

	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}

	if cfg.StatusResetWindow <= 0 {
		cfg.StatusResetWindow = DefaultStatusResetWindow
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.WebhookURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.WebhookURL); err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	return nil
}
