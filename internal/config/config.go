// Package config loads the CLI configuration from YAML, with sane defaults
// for running without any file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Script ScriptConfig `mapstructure:"script"`
	Log    LogConfig    `mapstructure:"log"`
}

// StoreConfig selects and configures the context store backend.
type StoreConfig struct {
	// Type is "memory" or "redis".
	Type     string        `mapstructure:"type"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// ScriptConfig points at the dialog script and its entry labels.
type ScriptConfig struct {
	Path     string `mapstructure:"path"`
	Start    string `mapstructure:"start"`
	Fallback string `mapstructure:"fallback"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Type: "memory",
			Addr: "localhost:6379",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Script: ScriptConfig{
			Start: "start",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &cfg,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw); err != nil {
		return cfg, fmt.Errorf("decode config %q: %w", path, err)
	}
	return cfg, nil
}
