// Package config loads the carebook configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Supported language model providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderScripted  = "scripted"
)

// Config holds all application configuration.
type Config struct {
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port"`
	CORSOrigins []string `koanf:"cors_origins"`

	DBPath   string `koanf:"db_path"`
	SeedFrom string `koanf:"seed_from"`
	SeedTo   string `koanf:"seed_to"`

	Provider    string  `koanf:"provider"`
	Model       string  `koanf:"model"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	Stream      bool    `koanf:"stream"`

	RedisAddr        string        `koanf:"redis_addr"`
	RedisPassword    string        `koanf:"redis_password"`
	RedisDB          int           `koanf:"redis_db"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	SessionCacheSize int           `koanf:"session_cache_size"`

	MaxHistoryMessages int           `koanf:"max_history_messages"`
	RecursionLimit     int           `koanf:"recursion_limit"`
	MaxEmptyRetries    int           `koanf:"max_empty_retries"`
	MaxAdapterRetries  int           `koanf:"max_adapter_retries"`
	MaxConcurrentTurns int           `koanf:"max_concurrent_turns"`
	TurnTimeout        time.Duration `koanf:"turn_timeout"`
	ToolTimeout        time.Duration `koanf:"tool_timeout"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

var defaults = map[string]any{
	"host":                 "0.0.0.0",
	"port":                 8000,
	"cors_origins":         []string{"*"},
	"db_path":              "./data/hospital.db",
	"seed_from":            "31-07-2025",
	"seed_to":              "15-08-2025",
	"provider":             ProviderGemini,
	"model":                "",
	"temperature":          0.0,
	"stream":               false,
	"redis_db":             0,
	"session_ttl":          "24h",
	"session_cache_size":   1024,
	"max_history_messages": 60,
	"recursion_limit":      25,
	"max_empty_retries":    3,
	"max_adapter_retries":  2,
	"max_concurrent_turns": 64,
	"turn_timeout":         "90s",
	"tool_timeout":         "15s",
	"log_level":            "info",
	"log_format":           "json",
}

// envPrefix marks the environment variables read into the configuration.
// CAREBOOK_DB_PATH sets db_path.
const envPrefix = "CAREBOOK_"

// legacyEnv maps the unprefixed names kept for existing deployments. The
// prefixed variables win when both are set.
var legacyEnv = map[string]string{
	"HOST": "host",
	"PORT": "port",
}

// envKeys lists the keys that may be set from the environment.
var envKeys = map[string]bool{
	"host": true, "port": true, "cors_origins": true,
	"db_path": true, "seed_from": true, "seed_to": true,
	"provider": true, "model": true, "api_key": true, "temperature": true, "stream": true,
	"redis_addr": true, "redis_password": true, "redis_db": true,
	"session_ttl": true, "session_cache_size": true,
	"max_history_messages": true, "recursion_limit": true, "max_empty_retries": true,
	"max_adapter_retries": true, "max_concurrent_turns": true,
	"turn_timeout": true, "tool_timeout": true,
	"log_level": true, "log_format": true,
}

// providerKeyEnv names the conventional API key variable of each provider.
var providerKeyEnv = map[string]string{
	ProviderGemini:    "GOOGLE_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// Load builds the configuration. A .env file in the working directory is
// loaded first when present; path names an optional YAML file. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	legacy := env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		return legacyEnv[name], value
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(providerKeyEnv[cfg.Provider])
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// envValue maps CAREBOOK_<KEY> onto key. Unknown names are skipped.
func envValue(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	if !envKeys[key] {
		return "", nil
	}
	if key == "cors_origins" {
		return key, splitList(value)
	}
	return key, value
}

// Validate rejects inconsistent values.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderScripted:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0,2]", c.Temperature))
	}
	if c.RecursionLimit <= 0 {
		errs = append(errs, errors.New("recursion_limit must be > 0"))
	}
	for name, v := range map[string]int{
		"max_history_messages": c.MaxHistoryMessages,
		"max_empty_retries":    c.MaxEmptyRetries,
		"max_adapter_retries":  c.MaxAdapterRetries,
		"max_concurrent_turns": c.MaxConcurrentTurns,
		"session_cache_size":   c.SessionCacheSize,
		"redis_db":             c.RedisDB,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0", name))
		}
	}
	for name, d := range map[string]time.Duration{
		"turn_timeout": c.TurnTimeout,
		"tool_timeout": c.ToolTimeout,
		"session_ttl":  c.SessionTTL,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0", name))
		}
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UsesRedis reports whether conversation states live in Redis.
func (c *Config) UsesRedis() bool { return c.RedisAddr != "" }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
