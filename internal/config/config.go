package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the external configuration surface, read from WGET_* environment
// variables and an optional .env file.
type Config struct {
	// Insecure disables TLS certificate and host name verification. Meant for
	// trusted internal or test environments only.
	Insecure bool   `mapstructure:"insecure"`
	Backend  string `mapstructure:"backend"`
	// LogLevel turns on logging to stderr; empty keeps the library silent.
	LogLevel string `mapstructure:"log_level"`
}

var (
	once    sync.Once
	cached  *Config
	errLoad error
)

// Get loads the configuration on first use and returns the same value afterwards.
func Get() (*Config, error) {
	once.Do(func() { cached, errLoad = Load() })
	return cached, errLoad
}

// Load reads configuration from the environment and .env, without caching.
// Values from .env fill in what the environment leaves unset; the process
// environment itself is not modified.
func Load() (*Config, error) {
	return load(".env")
}

func load(dotenv string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("wget")
	v.SetDefault("insecure", false)
	v.SetDefault("backend", "wire")
	v.SetDefault("log_level", "")

	file, err := godotenv.Read(dotenv)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", dotenv, err)
	}
	for k, val := range file {
		if key, ok := strings.CutPrefix(strings.ToUpper(k), "WGET_"); ok {
			v.SetDefault(strings.ToLower(key), val)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case "wire", "resty":
	default:
		return nil, fmt.Errorf("invalid backend %q (want wire or resty)", cfg.Backend)
	}
	return &cfg, nil
}
