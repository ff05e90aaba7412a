package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"shopdesk/internal/logger"
)

// Client store kinds
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// ErrInvalidStore is returned when store is neither file nor redis
var ErrInvalidStore = errors.New("store must be \"file\" or \"redis\"")

// Client holds the configuration of the shopsync device client
type Client struct {
	Server         string `mapstructure:"server"`
	Token          string `mapstructure:"token"`
	Store          string `mapstructure:"store"`
	QueueFile      string `mapstructure:"queue-file"`
	DeadLetterFile string `mapstructure:"dead-letter-file"`
	RedisURL       string `mapstructure:"redis-url"`
	RedisKey       string `mapstructure:"redis-key"`
	MaxAttempts    int    `mapstructure:"max-attempts"`
	NodeID         int64  `mapstructure:"node-id"`
	LogLevel       string `mapstructure:"log-level"`
	LogFormat      string `mapstructure:"log-format"`
}

// NewClientViper returns a viper instance reading SHOPSYNC_* variables, so
// SHOPSYNC_QUEUE_FILE sets queue-file.
func NewClientViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SHOPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("store", StoreFile)
	v.SetDefault("queue-file", "offline_queue.json")
	v.SetDefault("dead-letter-file", "offline_dead_letters.json")
	v.SetDefault("redis-url", "redis://localhost:6379/0")
	v.SetDefault("redis-key", "offlineQueue")
	v.SetDefault("max-attempts", 0)
	v.SetDefault("node-id", 1)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	return v
}

// LoadClient reads the client configuration from v (flags, environment, defaults).
func LoadClient(v *viper.Viper) (*Client, error) {
	cfg := &Client{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode client config: %w", err)
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if cfg.Store != StoreFile && cfg.Store != StoreRedis {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidStore, cfg.Store)
	}
	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("max-attempts must not be negative, got %d", cfg.MaxAttempts)
	}
	if cfg.NodeID < 0 || cfg.NodeID > 1023 {
		return nil, fmt.Errorf("node-id must be between 0 and 1023, got %d", cfg.NodeID)
	}
	return cfg, nil
}

// LogConfig maps the client settings onto the shared logger configuration
func (c *Client) LogConfig() logger.LogConfig {
	return logger.LogConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}
