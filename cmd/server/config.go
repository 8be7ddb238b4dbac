package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/deckforge/deckforge/internal/core/ai"
	"github.com/deckforge/deckforge/internal/server"
)

// appConfig is the on-disk configuration: network settings plus the lobby's
// synthetic players. Every field has a working default; an absent file means
// "run with defaults".
type appConfig struct {
	LogLevel string        `yaml:"log_level"`
	Server   server.Config `yaml:"server"`
	Profiles []ai.Profile  `yaml:"profiles"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		LogLevel: "info",
		Server:   server.DefaultConfig(),
		Profiles: ai.DefaultProfiles(),
	}
}

func loadConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	if err := ai.ValidateProfiles(cfg.Profiles); err != nil {
		return cfg, err
	}
	return cfg, nil
}
