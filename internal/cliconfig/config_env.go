package cliconfig

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable bulkship reads.
const EnvPrefix = "BULKSHIP_"

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set are not overridden. A missing default file is not an
// error; an explicitly requested one is.
func LoadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if !explicit && !FileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies BULKSHIP_* environment variables to the Config
// struct. It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("store-url", env("STORE_URL"), &cfg.StoreURL)
	s.setString("index", env("INDEX"), &cfg.Index)
	s.setString("type", env("TYPE"), &cfg.Type)
	s.setString("input", env("INPUT"), &cfg.Input)
	s.setString("username", env("USERNAME"), &cfg.Username)
	s.setString("password", env("PASSWORD"), &cfg.Password)
	s.setString("api-key", env("API_KEY"), &cfg.APIKey)
	s.setString("refresh", env("REFRESH"), &cfg.Refresh)
	s.setString("pipeline", env("PIPELINE"), &cfg.Pipeline)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setSize("max-batch-bytes", env("MAX_BATCH_BYTES"), &cfg.MaxBatchBytes); err != nil {
		return err
	}
	if err := s.setDuration("flush-interval", env("FLUSH_INTERVAL"), &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("max-in-flight", env("MAX_IN_FLIGHT"), &cfg.MaxInFlight); err != nil {
		return err
	}
	if err := s.setIntFromString("input-capacity", env("INPUT_CAPACITY"), &cfg.InputCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("retries", env("RETRIES"), &cfg.Retries); err != nil {
		return err
	}
	if err := s.setFloatFromString("dispatch-rate", env("DISPATCH_RATE"), &cfg.DispatchRate); err != nil {
		return err
	}

	s.setBoolFromString("follow", env("FOLLOW"), &cfg.Follow)

	return nil
}
