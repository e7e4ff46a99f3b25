package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz  Quiz `yaml:"quiz"`
	Admin struct {
		Nickname   string `yaml:"nickname"`
		Passphrase string `yaml:"passphrase"`
	} `yaml:"admin"`
	Advisor struct {
		URL     string `yaml:"url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"advisor"`
}

// Quiz holds the tunable game policy. Zero values fall back to defaults.
type Quiz struct {
	TTL             string   `yaml:"ttl"`
	PromotionStreak int      `yaml:"promotion_streak"`
	Ranks           []string `yaml:"ranks"`
	Lifelines       struct {
		Skip     int `yaml:"skip"`
		Sergeant int `yaml:"sergeant"`
		Meta     int `yaml:"meta"`
	} `yaml:"lifelines"`
	SettleDelay     string `yaml:"settle_delay"`
	RankingLimit    int    `yaml:"ranking_limit"`
	RankingDebounce string `yaml:"ranking_debounce"`
	SyncTimeout     string `yaml:"sync_timeout"`
	CatalogRefresh  string `yaml:"catalog_refresh"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v, or fallback when v is not positive.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
