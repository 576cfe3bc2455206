package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML friendly types (durations as strings).
type FileConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	DataDir         string   `toml:"data_dir"`
	StaticDir       string   `toml:"static_dir"`
	Timezone        string   `toml:"timezone"`
	MaxBodyBytes    int      `toml:"max_body_bytes"`
	ReadTimeout     string   `toml:"read_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
	IdleTimeout     string   `toml:"idle_timeout"`
	ShutdownTimeout string   `toml:"shutdown_timeout"`
	CORSOrigins     []string `toml:"cors_origins"`
	Watch           *bool    `toml:"watch"`
	LogLevel        string   `toml:"log_level"`
	Metrics         *bool    `toml:"metrics"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
// Unknown keys are rejected so typos do not pass silently.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.sr-transferencias/config.toml, or "" when the
// home directory cannot be determined.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".sr-transferencias", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file, leaving explicitly set
// flags (changed map) untouched.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setInt("port", fc.Port, &cfg.Port)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("static-dir", fc.StaticDir, &cfg.StaticDir)
	s.setString("timezone", fc.Timezone, &cfg.Timezone)
	s.setInt("max-body-bytes", fc.MaxBodyBytes, &cfg.MaxBodyBytes)
	s.setStrings("cors-origin", fc.CORSOrigins, &cfg.CORSOrigins)
	s.setBool("watch", fc.Watch, &cfg.Watch)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("metrics", fc.Metrics, &cfg.Metrics)

	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("idle-timeout", fc.IdleTimeout, &cfg.IdleTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
