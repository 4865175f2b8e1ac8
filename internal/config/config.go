// Package config loads phaselever settings from defaults, an optional TOML
// file and PHASELEVER_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides, e.g. PHASELEVER_SERVER_PORT.
const EnvPrefix = "PHASELEVER_"

// Config holds all runtime settings.
type Config struct {
	Server struct {
		Port        int      `koanf:"port"`
		CORSOrigins []string `koanf:"cors_origins"`
		RateLimit   int      `koanf:"rate_limit"` // requests per minute per IP, 0 disables
	} `koanf:"server"`

	Store struct {
		Path         string `koanf:"path"` // empty disables query history
		HistoryLimit int    `koanf:"history_limit"`
	} `koanf:"store"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`

	Cooling struct {
		Step     float64       `koanf:"step"`
		Interval time.Duration `koanf:"interval"`
	} `koanf:"cooling"`
}

var defaults = map[string]interface{}{
	"server.port":         8080,
	"server.cors_origins": []string{"http://localhost:5173", "http://localhost:3000"},
	"server.rate_limit":   600,
	"store.path":          "data/phaselever.db",
	"store.history_limit": 50,
	"log.level":           "info",
	"cooling.step":        5.0,
	"cooling.interval":    "0s",
}

// Load reads the configuration. An empty path falls back to the default
// locations; a missing default file is not an error.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
	} else {
		for _, path := range []string{"./phaselever.toml", "$HOME/.phaselever.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				slog.Warn("skipping unreadable config", "path", path, "error", err)
				continue
			}
			break
		}
	}

	// PHASELEVER_STORE_HISTORY_LIMIT -> store.history_limit
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Store.HistoryLimit <= 0 {
		return fmt.Errorf("store.history_limit must be positive")
	}
	if c.Cooling.Step <= 0 || math.IsNaN(c.Cooling.Step) {
		return fmt.Errorf("cooling.step must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses log.level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// Sample is written by InitFile.
const Sample = `# phaselever configuration

[server]
port = 8080
cors_origins = ["http://localhost:5173"]
rate_limit = 600

[store]
path = "data/phaselever.db"
history_limit = 50

[log]
level = "info"

[cooling]
step = 5.0
interval = "0s"
`

// InitFile writes a sample configuration, refusing to overwrite.
func InitFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(Sample), 0644)
}
