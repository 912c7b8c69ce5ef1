package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.TimeoutSeconds != 15 {
		t.Errorf("timeout: got %d", cfg.TimeoutSeconds)
	}
	if cfg.ConnectRetries != 3 || cfg.ListRetries != 2 || cfg.DownloadRetries != 4 {
		t.Errorf("retries: got %d/%d/%d", cfg.ConnectRetries, cfg.ListRetries, cfg.DownloadRetries)
	}
	if cfg.BlockSize != 64*1024 {
		t.Errorf("block size: got %d", cfg.BlockSize)
	}
	if cfg.MaxSegments != 8 {
		t.Errorf("max segments: got %d", cfg.MaxSegments)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.TimeoutSeconds = 0 }},
		{"zero connect retries", func(c *Config) { c.ConnectRetries = 0 }},
		{"zero list retries", func(c *Config) { c.ListRetries = 0 }},
		{"zero download retries", func(c *Config) { c.DownloadRetries = 0 }},
		{"negative block size", func(c *Config) { c.BlockSize = -1 }},
		{"zero max segments", func(c *Config) { c.MaxSegments = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
timeout_seconds: 30
download_retries: 6
block_size: 128KB
max_segments: 4
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Errorf("timeout: got %d", cfg.TimeoutSeconds)
	}
	if cfg.DownloadRetries != 6 {
		t.Errorf("download retries: got %d", cfg.DownloadRetries)
	}
	if cfg.BlockSize != 128*1024 {
		t.Errorf("block size: got %d", cfg.BlockSize)
	}
	if cfg.MaxSegments != 4 {
		t.Errorf("max segments: got %d", cfg.MaxSegments)
	}
	// untouched fields keep their defaults
	if cfg.ConnectRetries != 3 || cfg.ListRetries != 2 {
		t.Errorf("defaults lost: %d/%d", cfg.ConnectRetries, cfg.ListRetries)
	}
}

func TestLoadBadBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("block_size: chunky\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable block size")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEndpointAddr(t *testing.T) {
	ep := ServerEndpoint{Host: "ftp.example.com", Port: 2121}
	if got := ep.Addr(); got != "ftp.example.com:2121" {
		t.Errorf("addr: got %s", got)
	}
	ep = ServerEndpoint{Host: "::1", Port: 21}
	if got := ep.Addr(); got != "[::1]:21" {
		t.Errorf("ipv6 addr: got %s", got)
	}
}
