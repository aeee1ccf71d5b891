package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: DOCNAV_COUNTER__TTL=30m sets counter.ttl.
const EnvPrefix = "DOCNAV_"

type Config struct {
	Port string `koanf:"port"`

	// Content
	ContentDir string   `koanf:"content_dir"`
	Exclude    []string `koanf:"exclude"`
	Watch      bool     `koanf:"watch"`

	// Navigation
	HeaderOffset float64 `koanf:"header_offset"`

	// HTTP
	CORSOrigins []string `koanf:"cors_origins"`

	LogLevel string `koanf:"log_level"`

	Counter CounterConfig `koanf:"counter"`
}

// CounterConfig controls the repository star counter.
type CounterConfig struct {
	Repo    string        `koanf:"repo"` // owner/name; empty disables the counter
	APIURL  string        `koanf:"api_url"`
	TTL     time.Duration `koanf:"ttl"`
	Timeout time.Duration `koanf:"timeout"`
	DBPath  string        `koanf:"db_path"` // empty keeps the cache in memory
}

func Default() *Config {
	return &Config{
		Port:         "8090",
		ContentDir:   "docs",
		Exclude:      []string{"**/_*.md"},
		Watch:        true,
		HeaderOffset: 62,
		CORSOrigins:  []string{"*"},
		LogLevel:     "info",
		Counter: CounterConfig{
			APIURL:  "https://api.github.com",
			TTL:     time.Hour,
			Timeout: 10 * time.Second,
		},
	}
}

// Load starts from defaults, applies the YAML file at path if it exists,
// then overlays DOCNAV_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

var listKeys = map[string]bool{
	"exclude":      true,
	"cors_origins": true,
}

func envKeyValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.ContentDir == "" {
		return fmt.Errorf("content_dir is required")
	}
	if c.HeaderOffset < 0 {
		return fmt.Errorf("header_offset must be >= 0, got %v", c.HeaderOffset)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Counter.Repo != "" {
		parts := strings.Split(c.Counter.Repo, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("counter.repo must be owner/name, got %q", c.Counter.Repo)
		}
	}
	if c.Counter.TTL <= 0 {
		return fmt.Errorf("counter.ttl must be positive")
	}
	if c.Counter.Timeout <= 0 {
		return fmt.Errorf("counter.timeout must be positive")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return lvl, nil
}
