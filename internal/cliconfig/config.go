package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

// DefaultStoreURL is the default document store address.
const DefaultStoreURL = "http://localhost:9200"

// StdinInput is the Input value that reads operations from standard input.
const StdinInput = "-"

// Config holds CLI configuration for bulkship.
type Config struct {
	StoreURL string `validate:"required,url"`
	Index    string
	Type     string `validate:"excluded_without=Index"`

	Input  string `validate:"required"`
	Follow bool

	MaxBatchBytes int           `validate:"gte=0"`
	FlushInterval time.Duration `validate:"gt=0"`
	MaxInFlight   int           `validate:"gte=0"`
	InputCapacity int           `validate:"gte=0"`

	HTTPTimeout time.Duration `validate:"gt=0"`
	Retries     int           `validate:"gte=0,lte=20"`
	// DispatchRate limits requests per second. Zero means unlimited.
	DispatchRate float64 `validate:"gte=0"`

	Username string
	Password string `validate:"required_with=Username"`
	APIKey   string `validate:"excluded_with=Username"`

	Refresh  string `validate:"omitempty,oneof=true false wait_for"`
	Pipeline string

	MetricsAddr string
	LogLevel    string `validate:"oneof=debug info warn error"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StoreURL:      DefaultStoreURL,
		Input:         StdinInput,
		MaxBatchBytes: 5 << 20, // 5MiB
		FlushInterval: 30 * time.Second,
		MaxInFlight:   4,
		InputCapacity: 1024,
		HTTPTimeout:   60 * time.Second,
		Retries:       3,
		LogLevel:      "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.StoreURL = strings.TrimRight(c.StoreURL, "/")

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if c.Follow && c.Input == StdinInput {
		return fmt.Errorf("follow requires a file input, not stdin")
	}
	return nil
}

// Params returns the query parameters sent with every bulk request.
func (c *Config) Params() map[string]string {
	params := make(map[string]string)
	if c.Refresh != "" {
		params["refresh"] = c.Refresh
	}
	if c.Pipeline != "" {
		params["pipeline"] = c.Pipeline
	}
	return params
}

var flagNames = map[string]string{
	"StoreURL":      "store-url",
	"Index":         "index",
	"Type":          "type",
	"Input":         "input",
	"MaxBatchBytes": "max-batch-bytes",
	"FlushInterval": "flush-interval",
	"MaxInFlight":   "max-in-flight",
	"InputCapacity": "input-capacity",
	"HTTPTimeout":   "timeout",
	"Retries":       "retries",
	"DispatchRate":  "dispatch-rate",
	"Username":      "username",
	"Password":      "password",
	"APIKey":        "api-key",
	"Refresh":       "refresh",
	"LogLevel":      "log-level",
}

func fieldError(fe validator.FieldError) error {
	name, ok := flagNames[fe.Field()]
	if !ok {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "required_with":
		return fmt.Errorf("%s is required with %s", name, flagNames[fe.Param()])
	case "excluded_with":
		return fmt.Errorf("%s cannot be combined with username", name)
	case "excluded_without":
		return fmt.Errorf("%s requires index", name)
	case "url":
		return fmt.Errorf("%s must be a URL, got %q", name, fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s is invalid (%s %s)", name, fe.Tag(), fe.Param())
	}
}

// ParseSize parses a byte size such as "5MiB", "512kB" or "1048576".
func ParseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > uint64(int(^uint(0)>>1)) {
		return 0, fmt.Errorf("size %s is too large", s)
	}
	return int(n), nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setSize parses a human-readable byte size. Unlike setInt, an explicit
// "0" is applied.
func (s *configSetter) setSize(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	n, err := ParseSize(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = n
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
