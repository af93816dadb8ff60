package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Turnstile TurnstileConfig `yaml:"turnstile"`
	Email     EmailConfig     `yaml:"email"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Signing   SigningConfig   `yaml:"signing"`
	Admin     AdminConfig     `yaml:"admin"`
	App       AppConfig       `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	if c.Host == "" {
		return "127.0.0.1"
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis settings for the rate limiter. Redis is optional;
// when disabled the service counts recent signatures in Postgres instead.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// TurnstileConfig holds Cloudflare Turnstile bot-verification settings
type TurnstileConfig struct {
	SecretKey      string `yaml:"secret_key"`
	BaseURL        string `yaml:"base_url"`
	BypassToken    string `yaml:"bypass_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c TurnstileConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmailConfig holds AWS SES settings for transactional email
type EmailConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	From           string `yaml:"from"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c EmailConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RateLimitConfig holds the signing rate-limit policy
type RateLimitConfig struct {
	WindowMinutes int `yaml:"window_minutes"`
	MaxRequests   int `yaml:"max_requests"`
}

// Window returns the rolling rate-limit window as a duration
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.WindowMinutes) * time.Minute
}

// SigningConfig holds confirmation-flow policy
type SigningConfig struct {
	ConfirmTTLHours int `yaml:"confirm_ttl_hours"`
}

// ConfirmTTL returns how long a confirm token stays valid
func (c SigningConfig) ConfirmTTL() time.Duration {
	if c.ConfirmTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ConfirmTTLHours) * time.Hour
}

// AdminConfig holds admin authentication settings
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	APIKey    string `yaml:"api_key"`
}

// AppConfig holds deployment-level settings
type AppConfig struct {
	Environment string   `yaml:"environment"`
	FrontendURL string   `yaml:"frontend_url"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// IsDevelopment reports whether the deployment runs in development mode,
// which enables the Turnstile bypass.
func (c AppConfig) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == ""
}

// Load reads configuration from a YAML file and applies defaults.
// A missing file is not an error; everything can come from env overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Turnstile.BaseURL == "" {
		cfg.Turnstile.BaseURL = "https://challenges.cloudflare.com/turnstile/v0"
	}
	if cfg.RateLimit.WindowMinutes == 0 {
		cfg.RateLimit.WindowMinutes = 60
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 3
	}
	if cfg.Signing.ConfirmTTLHours == 0 {
		cfg.Signing.ConfirmTTLHours = 24
	}
	if cfg.Email.From == "" {
		cfg.Email.From = "Petitions <no-reply@example.com>"
	}
	if cfg.App.FrontendURL == "" {
		cfg.App.FrontendURL = "http://localhost:3000"
	}
	if len(cfg.App.CORSOrigins) == 0 {
		cfg.App.CORSOrigins = []string{cfg.App.FrontendURL}
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("TURNSTILE_SECRET_KEY"); v != "" {
		cfg.Turnstile.SecretKey = v
	}
	if v := os.Getenv("TURNSTILE_BYPASS_TOKEN"); v != "" {
		cfg.Turnstile.BypassToken = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.Region = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		cfg.Admin.APIKey = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.App.Environment = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.App.FrontendURL = v
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.WindowMinutes = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.MaxRequests = n
		}
	}

	return cfg, nil
}
