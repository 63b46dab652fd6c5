package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/relieflab/reliefd/internal/channel"
	"github.com/relieflab/reliefd/internal/logging"
)

// serviceConfig is the fully resolved daemon configuration.
type serviceConfig struct {
	Channel         channel.Config
	Logging         logging.Config
	AdminListenAddr string
	OutputDir       string
	CorsOrigins     []string
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Channel: channel.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}

// reliefd config.toml key mapping to daemon runtime settings.
type fileConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	Backlog         int      `toml:"backlog"`
	ReadTimeout     string   `toml:"read_timeout"`
	Concurrent      bool     `toml:"concurrent"`
	LogFile         string   `toml:"log_file"`
	AdminListenAddr string   `toml:"admin_listen_addr"`
	OutputDir       string   `toml:"output_dir"`
	CorsOrigins     []string `toml:"cors_origins"`
}

// loadServiceConfig overlays TOML settings on the defaults. Only keys
// present in the file override a default.
func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load reliefd config: %w", err)
	}

	if meta.IsDefined("host") {
		cfg.Channel.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Channel.Port = raw.Port
	}
	if meta.IsDefined("backlog") {
		cfg.Channel.Backlog = raw.Backlog
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("load reliefd config: read_timeout: %w", err)
		}
		cfg.Channel.ReadTimeout = d
	}
	if meta.IsDefined("concurrent") {
		cfg.Channel.Concurrent = raw.Concurrent
	}
	if meta.IsDefined("log_file") {
		cfg.Logging.Path = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if meta.IsDefined("output_dir") {
		cfg.OutputDir = strings.TrimSpace(raw.OutputDir)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}

	if err := validateServiceConfig(cfg); err != nil {
		return serviceConfig{}, err
	}
	return cfg, nil
}

func validateServiceConfig(cfg serviceConfig) error {
	if strings.TrimSpace(cfg.Channel.Host) == "" {
		return fmt.Errorf("load reliefd config: host is required")
	}
	if cfg.Channel.Port <= 0 || cfg.Channel.Port > 65535 {
		return fmt.Errorf("load reliefd config: invalid port %d", cfg.Channel.Port)
	}
	if cfg.Channel.Backlog <= 0 {
		return fmt.Errorf("load reliefd config: invalid backlog %d", cfg.Channel.Backlog)
	}
	return nil
}
