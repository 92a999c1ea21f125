package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Socket SocketConfig `mapstructure:"socket"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

// APIConfig holds REST backend configuration
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SocketConfig holds realtime channel configuration
type SocketConfig struct {
	URL               string        `mapstructure:"url"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
}

// AuthConfig holds the dashboard-issued session token.
// Token refresh is owned by the dashboard shell, not the engine.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// Global config instance
var GlobalConfig *Config

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080/api"
	}
	if cfg.API.DialTimeout == 0 {
		cfg.API.DialTimeout = 10 * time.Second
	}
	if cfg.API.ReadTimeout == 0 {
		cfg.API.ReadTimeout = 30 * time.Second
	}
	if cfg.API.WriteTimeout == 0 {
		cfg.API.WriteTimeout = 30 * time.Second
	}
	if cfg.Socket.URL == "" {
		cfg.Socket.URL = "ws://localhost:8080/ws"
	}
	if cfg.Socket.ReconnectAttempts == 0 {
		cfg.Socket.ReconnectAttempts = 5
	}
	if cfg.Socket.ReconnectDelay == 0 {
		cfg.Socket.ReconnectDelay = time.Second
	}
	if cfg.Socket.WriteWait == 0 {
		cfg.Socket.WriteWait = 10 * time.Second
	}
	if cfg.Socket.PongWait == 0 {
		cfg.Socket.PongWait = 30 * time.Second
	}
	if cfg.Socket.PingPeriod == 0 {
		cfg.Socket.PingPeriod = 27 * time.Second
	}
	if cfg.Socket.MaxMessageSize == 0 {
		cfg.Socket.MaxMessageSize = 51200
	}

	GlobalConfig = &cfg
	return &cfg, nil
}
