// Package config holds the engine configuration and the server endpoint
// description shared by every network-facing component.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"turboftp/progress"
)

// ServerEndpoint describes how to reach and authenticate against an FTP
// server. It is immutable for the lifetime of a session; segmented workers
// copy it to open their own connections.
type ServerEndpoint struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
	Passive  bool   `yaml:"passive"`
}

// Addr returns the dialable host:port form of the endpoint.
func (e ServerEndpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Config carries the tunables of the transfer engine.
type Config struct {
	TimeoutSeconds  int   `yaml:"timeout_seconds"`
	ConnectRetries  int   `yaml:"connect_retries"`
	ListRetries     int   `yaml:"list_retries"`
	DownloadRetries int   `yaml:"download_retries"`
	BlockSize       int64 `yaml:"block_size"`
	MaxSegments     int   `yaml:"max_segments"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		TimeoutSeconds:  15,
		ConnectRetries:  3,
		ListRetries:     2,
		DownloadRetries: 4,
		BlockSize:       64 * 1024,
		MaxSegments:     8,
	}
}

// Timeout returns the socket timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks the configuration for values the engine cannot work with.
func (c Config) Validate() error {
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.ConnectRetries < 1 {
		return fmt.Errorf("connect_retries must be at least 1, got %d", c.ConnectRetries)
	}
	if c.ListRetries < 1 {
		return fmt.Errorf("list_retries must be at least 1, got %d", c.ListRetries)
	}
	if c.DownloadRetries < 1 {
		return fmt.Errorf("download_retries must be at least 1, got %d", c.DownloadRetries)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	if c.MaxSegments < 1 {
		return fmt.Errorf("max_segments must be at least 1, got %d", c.MaxSegments)
	}
	return nil
}

// yamlConfig mirrors Config with a human-readable block size ("64KB").
type yamlConfig struct {
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	ConnectRetries  int    `yaml:"connect_retries"`
	ListRetries     int    `yaml:"list_retries"`
	DownloadRetries int    `yaml:"download_retries"`
	BlockSize       string `yaml:"block_size"`
	MaxSegments     int    `yaml:"max_segments"`
}

// Load reads a YAML config file, applying defaults for absent fields.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %v", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return cfg, fmt.Errorf("parse config: %v", err)
	}

	if y.TimeoutSeconds > 0 {
		cfg.TimeoutSeconds = y.TimeoutSeconds
	}
	if y.ConnectRetries > 0 {
		cfg.ConnectRetries = y.ConnectRetries
	}
	if y.ListRetries > 0 {
		cfg.ListRetries = y.ListRetries
	}
	if y.DownloadRetries > 0 {
		cfg.DownloadRetries = y.DownloadRetries
	}
	if y.MaxSegments > 0 {
		cfg.MaxSegments = y.MaxSegments
	}
	if y.BlockSize != "" {
		size, err := progress.ParseBytes(y.BlockSize)
		if err != nil {
			return cfg, fmt.Errorf("parse block_size: %v", err)
		}
		cfg.BlockSize = size
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
