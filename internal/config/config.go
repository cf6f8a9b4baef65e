package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Providers   []ProviderConfig  `json:"providers"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Generation  GenerationConfig  `json:"generation"`
	Interaction InteractionConfig `json:"interaction"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// ProviderConfig configures one language-generation provider.
type ProviderConfig struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Endpoint     string  `json:"endpoint"`
	APIKey       string  `json:"api_key"`
	DefaultModel string  `json:"default_model"`
	TimeoutSecs  int     `json:"timeout_secs,omitempty"`
	RatePerSec   float64 `json:"rate_per_sec,omitempty"`
}

type SchedulerConfig struct {
	IntervalSecs int `json:"interval_secs"` // cycle interval, default 300
	Workers      int `json:"workers"`       // concurrent agents per cycle, default 4
}

type GenerationConfig struct {
	MaxAttempts        int     `json:"max_attempts"`         // dedup retry bound, default 3
	ProblemBias        float64 `json:"problem_bias"`         // chance of problem-statement pattern, default 0.5
	DuplicateThreshold float64 `json:"duplicate_threshold"`  // default 0.70
}

type InteractionConfig struct {
	WindowSecs     int     `json:"window_secs"`      // human-reply lookback, default 600
	CrossChance    float64 `json:"cross_chance"`     // agent-to-agent pass probability, default 0.1
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Scheduler.IntervalSecs == 0 {
		c.Scheduler.IntervalSecs = 300
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 4
	}
	if c.Generation.MaxAttempts == 0 {
		c.Generation.MaxAttempts = 3
	}
	if c.Generation.ProblemBias == 0 {
		c.Generation.ProblemBias = 0.5
	}
	if c.Generation.DuplicateThreshold == 0 {
		c.Generation.DuplicateThreshold = 0.70
	}
	if c.Interaction.WindowSecs == 0 {
		c.Interaction.WindowSecs = 600
	}
	if c.Interaction.CrossChance == 0 {
		c.Interaction.CrossChance = 0.1
	}
}
