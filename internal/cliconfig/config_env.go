package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "TRANSFERENCIAS_"

// ApplyEnvConfig applies TRANSFERENCIAS_* environment variables, leaving
// explicitly set flags untouched. The bare PORT and IP variables understood
// by earlier deployments are honoured too, below their prefixed forms.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("IP"), &cfg.Host)
	if err := s.setIntFromString("port", os.Getenv("PORT"), &cfg.Port); err != nil {
		return err
	}

	s.setString("host", env("HOST"), &cfg.Host)
	if err := s.setIntFromString("port", env("PORT"), &cfg.Port); err != nil {
		return err
	}
	s.setString("data-dir", env("DATA_DIR"), &cfg.DataDir)
	s.setString("static-dir", env("STATIC_DIR"), &cfg.StaticDir)
	s.setString("timezone", env("TIMEZONE"), &cfg.Timezone)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setStringsFromString("cors-origin", env("CORS_ORIGINS"), &cfg.CORSOrigins)

	if err := s.setIntFromString("max-body-bytes", env("MAX_BODY_BYTES"), &cfg.MaxBodyBytes); err != nil {
		return err
	}
	if err := s.setBoolFromString("watch", env("WATCH"), &cfg.Watch); err != nil {
		return err
	}
	if err := s.setBoolFromString("metrics", env("METRICS"), &cfg.Metrics); err != nil {
		return err
	}

	if err := s.setDuration("read-timeout", env("READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", env("WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("idle-timeout", env("IDLE_TIMEOUT"), &cfg.IdleTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", env("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}
