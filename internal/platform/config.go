package platform

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the environment configuration of the moments CLI.
type Config struct {
	Path        string `env:"MOMENTS_PATH"         envDefault:"."`
	Adapter     string `env:"MOMENTS_ADAPTER"      envDefault:"fs"`
	Format      string `env:"MOMENTS_FORMAT"       envDefault:"json"`
	Strict      bool   `env:"MOMENTS_STRICT"`
	ReadOnly    bool   `env:"MOMENTS_READ_ONLY"`
	DevSafety   bool   `env:"MOMENTS_DEV_SAFETY"   envDefault:"true"`
	EventBuffer int    `env:"MOMENTS_EVENT_BUFFER" envDefault:"100"`
	Watch       string `env:"MOMENTS_WATCH"`
	LogLevel    string `env:"MOMENTS_LOG_LEVEL"    envDefault:"info"`
	MetricsAddr string `env:"MOMENTS_METRICS_ADDR"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Level maps LogLevel onto a slog level. Unknown names mean info.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Options translates the configuration into store options.
func (c Config) Options() []Option {
	opts := []Option{
		WithAdapter(c.Adapter),
		WithFormat(c.Format),
		WithStrict(c.Strict),
		WithDevSafety(c.DevSafety),
		WithEventBuffer(c.EventBuffer),
	}
	if c.ReadOnly {
		opts = append(opts, WithReadOnly(true))
	}
	if c.Watch != "" {
		opts = append(opts, WithWatch(c.Watch))
	}
	return opts
}
