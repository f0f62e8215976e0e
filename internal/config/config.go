// Package config loads process configuration once at startup.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file
// named by CONFIG_FILE, a .env file merged into the environment, and finally
// the environment itself. The resulting Config is treated as immutable.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/calcstore/internal/apperrors"
)

// AddMode selects how the addition endpoint behaves for a deployment.
type AddMode string

const (
	// AddModeStateless sums float operands and persists nothing.
	AddModeStateless AddMode = "stateless"
	// AddModeHistory sums integer operands and records every call.
	AddModeHistory AddMode = "history"
)

// Config is the full process configuration.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Logging     LoggingConfig   `yaml:"logging"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CORSOrigins string          `yaml:"cors_origins" env:"CORS_ORIGINS"`
	AddMode     string          `yaml:"add_mode" env:"ADD_MODE"`
	StaticDir   string          `yaml:"static_dir" env:"STATIC_DIR"`
}

// ServerConfig is the HTTP listener address.
type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// DatabaseConfig describes the backing store and its pool.
type DatabaseConfig struct {
	URL             string `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	Echo            bool   `yaml:"echo" env:"DB_ECHO"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// RateLimitConfig enables per-client throttling when RPS is positive.
type RateLimitConfig struct {
	RPS   int `yaml:"rps" env:"RATE_LIMIT_RPS"`
	Burst int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// Default returns the built-in configuration. DATABASE_URL has no default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "calcstore",
		},
		RateLimit:   RateLimitConfig{Burst: 20},
		CORSOrigins: "*",
		AddMode:     string(AddModeStateless),
	}
}

// Load reads configuration using ./.env as the dotenv file.
func Load() (*Config, error) {
	return LoadWith(".env")
}

// LoadWith reads configuration using envFile as the dotenv file. A missing
// dotenv file is not an error.
func LoadWith(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.KindConfiguration, "load "+envFile, err)
		}
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, apperrors.Wrap(apperrors.KindConfiguration, "decode environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfiguration, "read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperrors.Wrap(apperrors.KindConfiguration, "parse config file", err)
	}
	return nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return apperrors.E(apperrors.KindConfiguration, "DATABASE_URL is required")
	}
	switch c.Mode() {
	case AddModeStateless, AddModeHistory:
	default:
		return apperrors.E(apperrors.KindConfiguration, fmt.Sprintf("unsupported ADD_MODE %q", c.AddMode))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.E(apperrors.KindConfiguration, fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return apperrors.E(apperrors.KindConfiguration, "rate limit values must not be negative")
	}
	return nil
}

// Mode returns the normalised add mode.
func (c *Config) Mode() AddMode {
	return AddMode(strings.ToLower(strings.TrimSpace(c.AddMode)))
}

// AllowedOrigins splits CORSOrigins on commas, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
