package cliconfig

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Weatherlly/sr-transferencias/internal/domain"
)

// Defaults match the existing deployment: all interfaces, port 3000,
// records under ./transferencias and a 10 MiB request body limit.
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 3000
	DefaultDataDir      = "transferencias"
	DefaultMaxBodyBytes = 10 << 20
)

// Config holds runtime configuration for the service.
type Config struct {
	Host string
	Port int

	// DataDir holds one JSON file per transfer record.
	DataDir string

	// StaticDir serves the frontend from disk. Empty uses the embedded copy.
	StaticDir string

	// Timezone is an IANA zone name used for dataHora. Empty means local time.
	Timezone string

	MaxBodyBytes int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CORSOrigins []string

	Watch    bool
	LogLevel string

	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		DataDir:         DefaultDataDir,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		CORSOrigins:     []string{"*"},
		Watch:           true,
		LogLevel:        "info",
		Metrics:         true,
	}
}

// Validate checks the configuration for errors and normalises derived values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, c.Port)
	}

	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		return fmt.Errorf("%w: data-dir is required", domain.ErrInvalidConfig)
	}

	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max body bytes must be positive", domain.ErrInvalidConfig)
	}

	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", domain.ErrInvalidConfig)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.CORSOrigins = origins

	return nil
}

// Address returns the listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// configSetter applies values from a lower-precedence source, skipping any
// setting whose flag was given explicitly on the command line.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) skip(flag, value string) bool {
	return value == "" || s.changed[flag]
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if s.skip(flag, value) {
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

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if s.skip(flag, value) {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setStrings replaces a list if the source has entries and the flag was not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setIntFromString parses an environment value as an int.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if s.skip(flag, value) {
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

// setBoolFromString parses an environment value as a bool.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if s.skip(flag, value) {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}

// setStringsFromString splits a comma separated environment value.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if s.skip(flag, value) {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	s.setStrings(flag, out, dst)
}
