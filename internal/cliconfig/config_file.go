package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations and sizes to make
// TOML and YAML friendly.
type FileConfig struct {
	StoreURL      string  `toml:"store_url" yaml:"store_url"`
	Index         string  `toml:"index" yaml:"index"`
	Type          string  `toml:"type" yaml:"type"`
	Input         string  `toml:"input" yaml:"input"`
	Follow        *bool   `toml:"follow" yaml:"follow"`
	MaxBatchBytes string  `toml:"max_batch_bytes" yaml:"max_batch_bytes"`
	FlushInterval string  `toml:"flush_interval" yaml:"flush_interval"`
	MaxInFlight   int     `toml:"max_in_flight" yaml:"max_in_flight"`
	InputCapacity int     `toml:"input_capacity" yaml:"input_capacity"`
	HTTPTimeout   string  `toml:"http_timeout" yaml:"http_timeout"`
	Retries       int     `toml:"retries" yaml:"retries"`
	DispatchRate  float64 `toml:"dispatch_rate" yaml:"dispatch_rate"`
	Username      string  `toml:"username" yaml:"username"`
	Password      string  `toml:"password" yaml:"password"`
	APIKey        string  `toml:"api_key" yaml:"api_key"`
	Refresh       string  `toml:"refresh" yaml:"refresh"`
	Pipeline      string  `toml:"pipeline" yaml:"pipeline"`
	MetricsAddr   string  `toml:"metrics_addr" yaml:"metrics_addr"`
	LogLevel      string  `toml:"log_level" yaml:"log_level"`
}

// LoadFileConfig reads and parses a config file. Files ending in .yaml or
// .yml are YAML; anything else is TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.bulkship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".bulkship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("store-url", fc.StoreURL, &cfg.StoreURL)
	s.setString("index", fc.Index, &cfg.Index)
	s.setString("type", fc.Type, &cfg.Type)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)
	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("refresh", fc.Refresh, &cfg.Refresh)
	s.setString("pipeline", fc.Pipeline, &cfg.Pipeline)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setSize("max-batch-bytes", fc.MaxBatchBytes, &cfg.MaxBatchBytes); err != nil {
		return err
	}
	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setInt("max-in-flight", fc.MaxInFlight, &cfg.MaxInFlight)
	s.setInt("input-capacity", fc.InputCapacity, &cfg.InputCapacity)
	s.setInt("retries", fc.Retries, &cfg.Retries)
	s.setFloat("dispatch-rate", fc.DispatchRate, &cfg.DispatchRate)

	s.setBool("follow", fc.Follow, &cfg.Follow)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
