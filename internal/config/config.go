// Package config loads daemon configuration from an optional YAML file
// with environment-variable overrides. Secrets (the Discord token and the
// completion API key) are read from the environment only and never live in
// the config file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the non-secret daemon settings.
type Config struct {
	StatePath string `yaml:"state_path"`

	Discord struct {
		ChannelID string `yaml:"channel_id"`
	} `yaml:"discord"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`
}

// Load reads path (missing file is fine) and applies env overrides:
// STATE_PATH, DISCORD_CHANNEL_ID, LLM_BASE_URL, LLM_MODEL.
func Load(path string) (*Config, error) {
	cfg := &Config{StatePath: "state"}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		cfg.Discord.ChannelID = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	return cfg, nil
}
