// Package config resolves runtime settings: defaults, then the YAML file, then
// OPTIGOV_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"optigov.org/internal/kv"
)

// DefaultPath is read when no --config flag is given. A missing file is not
// an error.
const DefaultPath = "configs/optigov.yaml"

// Config is the resolved runtime configuration.
type Config struct {
	HTTPAddr string
	LogLevel string

	Storage kv.Config

	AuthSecret string
	SessionTTL time.Duration
	BcryptCost int

	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	CORSOrigins    []string

	Seed  bool
	Admin *AdminAccount
}

// AdminAccount is the administrator bootstrapped by seeding.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// configFile mirrors the YAML schema of configs/optigov.yaml.
type configFile struct {
	HTTP struct {
		Addr         string   `yaml:"addr"`
		RateLimitRPS float64  `yaml:"rate_limit_rps"`
		RateBurst    int      `yaml:"rate_limit_burst"`
		MaxBodyBytes int64    `yaml:"max_body_bytes"`
		CORSOrigins  []string `yaml:"cors_origins"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Storage struct {
		Driver      string `yaml:"driver"`
		Dir         string `yaml:"dir"`
		DSN         string `yaml:"dsn"`
		RedisURL    string `yaml:"redis_url"`
		RedisPrefix string `yaml:"redis_prefix"`
	} `yaml:"storage"`
	Auth struct {
		Secret     string `yaml:"secret"`
		SessionTTL string `yaml:"session_ttl"`
		BcryptCost int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Seed struct {
		Enabled *bool `yaml:"enabled"`
		Admin   struct {
			Username string `yaml:"username"`
			Email    string `yaml:"email"`
			Password string `yaml:"password"`
		} `yaml:"admin"`
	} `yaml:"seed"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
		Storage: kv.Config{
			Driver:      kv.DriverFile,
			Dir:         "data",
			RedisPrefix: "optigov:",
		},
		SessionTTL:     10 * time.Minute,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		MaxBodyBytes:   1 << 20,
		CORSOrigins:    []string{"*"},
		Seed:           true,
	}
}

// Load resolves configuration in priority order: defaults -> file -> env.
// An empty path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	if f.HTTP.Addr != "" {
		cfg.HTTPAddr = f.HTTP.Addr
	}
	if f.HTTP.RateLimitRPS > 0 {
		cfg.RateLimitRPS = f.HTTP.RateLimitRPS
	}
	if f.HTTP.RateBurst > 0 {
		cfg.RateLimitBurst = f.HTTP.RateBurst
	}
	if f.HTTP.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = f.HTTP.MaxBodyBytes
	}
	if len(f.HTTP.CORSOrigins) > 0 {
		cfg.CORSOrigins = f.HTTP.CORSOrigins
	}
	if f.Log.Level != "" {
		cfg.LogLevel = f.Log.Level
	}
	if f.Storage.Driver != "" {
		cfg.Storage.Driver = f.Storage.Driver
	}
	if f.Storage.Dir != "" {
		cfg.Storage.Dir = f.Storage.Dir
	}
	if f.Storage.DSN != "" {
		cfg.Storage.DSN = f.Storage.DSN
	}
	if f.Storage.RedisURL != "" {
		cfg.Storage.RedisURL = f.Storage.RedisURL
	}
	if f.Storage.RedisPrefix != "" {
		cfg.Storage.RedisPrefix = f.Storage.RedisPrefix
	}
	if f.Auth.Secret != "" {
		cfg.AuthSecret = f.Auth.Secret
	}
	if f.Auth.SessionTTL != "" {
		ttl, err := time.ParseDuration(f.Auth.SessionTTL)
		if err != nil {
			return fmt.Errorf("auth.session_ttl: %w", err)
		}
		cfg.SessionTTL = ttl
	}
	if f.Auth.BcryptCost > 0 {
		cfg.BcryptCost = f.Auth.BcryptCost
	}
	if f.Seed.Enabled != nil {
		cfg.Seed = *f.Seed.Enabled
	}
	if f.Seed.Admin.Email != "" {
		cfg.Admin = &AdminAccount{
			Username: f.Seed.Admin.Username,
			Email:    f.Seed.Admin.Email,
			Password: f.Seed.Admin.Password,
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = envOrDefault("OPTIGOV_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = envOrDefault("OPTIGOV_LOG_LEVEL", cfg.LogLevel)
	cfg.Storage.Driver = envOrDefault("OPTIGOV_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Dir = envOrDefault("OPTIGOV_STORAGE_DIR", cfg.Storage.Dir)
	cfg.Storage.DSN = envOrDefault("OPTIGOV_STORAGE_DSN", cfg.Storage.DSN)
	cfg.Storage.RedisURL = envOrDefault("OPTIGOV_REDIS_URL", cfg.Storage.RedisURL)
	cfg.Storage.RedisPrefix = envOrDefault("OPTIGOV_REDIS_PREFIX", cfg.Storage.RedisPrefix)
	cfg.AuthSecret = envOrDefault("OPTIGOV_AUTH_SECRET", cfg.AuthSecret)
	cfg.BcryptCost = envInt("OPTIGOV_BCRYPT_COST", cfg.BcryptCost)
	cfg.RateLimitBurst = envInt("OPTIGOV_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.Seed = envBool("OPTIGOV_SEED", cfg.Seed)
	cfg.CORSOrigins = envCSV("OPTIGOV_CORS_ORIGINS", cfg.CORSOrigins)

	if raw := os.Getenv("OPTIGOV_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("OPTIGOV_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = ttl
	}
	if raw := os.Getenv("OPTIGOV_RATE_LIMIT_RPS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("OPTIGOV_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = v
	}
	if email := os.Getenv("OPTIGOV_ADMIN_EMAIL"); email != "" {
		cfg.Admin = &AdminAccount{
			Username: envOrDefault("OPTIGOV_ADMIN_USERNAME", "admin"),
			Email:    email,
			Password: os.Getenv("OPTIGOV_ADMIN_PASSWORD"),
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case kv.DriverMemory, kv.DriverFile, kv.DriverSQLite, kv.DriverPostgres, kv.DriverRedis:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Admin != nil && (c.Admin.Password == "" || c.Admin.Username == "") {
		return errors.New("seed.admin requires username and password")
	}
	return nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
